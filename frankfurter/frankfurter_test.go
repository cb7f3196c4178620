package frankfurter

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/depotlens/depotlens"
)

// stubTransport answers every request from a canned table keyed by URL path.
type stubTransport struct {
	responses map[string]string // path -> JSON body
	calls     int
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	body, ok := s.responses[req.URL.Path]
	if !ok {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(strings.NewReader(`{"message":"not found"}`)),
			Request:    req,
		}, nil
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}, nil
}

func stubClient(responses map[string]string) (*Client, *stubTransport) {
	transport := &stubTransport{responses: responses}
	return NewWithHTTPClient(&http.Client{Transport: transport}), transport
}

func TestRate(t *testing.T) {
	client, _ := stubClient(map[string]string{
		"/2025-06-30": `{"amount":1.0,"base":"USD","date":"2025-06-30","rates":{"EUR":0.8532}}`,
	})

	rate, err := client.Rate("USD", "EUR", depotlens.MustParseDate("2025-06-30"))
	if err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	if !rate.Equal(depotlens.Q(0.8532)) {
		t.Errorf("Rate() = %v, want 0.8532", rate)
	}
}

func TestRateUnknownPair(t *testing.T) {
	client, _ := stubClient(nil) // everything 404s

	_, err := client.Rate("XXX", "EUR", depotlens.MustParseDate("2025-06-30"))
	if !errors.Is(err, depotlens.ErrNotAvailable) {
		t.Fatalf("Rate() error = %v, want ErrNotAvailable", err)
	}
}

func TestRateMissingTargetCurrency(t *testing.T) {
	// A valid answer that lacks the requested currency is an absent rate.
	client, _ := stubClient(map[string]string{
		"/2025-06-30": `{"amount":1.0,"base":"USD","date":"2025-06-30","rates":{"CHF":0.7954}}`,
	})

	_, err := client.Rate("USD", "EUR", depotlens.MustParseDate("2025-06-30"))
	if !errors.Is(err, depotlens.ErrNotAvailable) {
		t.Fatalf("Rate() error = %v, want ErrNotAvailable", err)
	}
}

func TestRateRequestShape(t *testing.T) {
	var gotURL string
	transport := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`{"rates":{"EUR":0.9}}`)),
			Request:    req,
		}, nil
	})
	client := NewWithHTTPClient(&http.Client{Transport: transport})

	if _, err := client.Rate("USD", "EUR", depotlens.MustParseDate("2025-06-30")); err != nil {
		t.Fatalf("Rate() error = %v", err)
	}
	want := fmt.Sprintf("%s/2025-06-30?from=USD&to=EUR", defaultBaseURL)
	if gotURL != want {
		t.Errorf("request URL = %s, want %s", gotURL, want)
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
