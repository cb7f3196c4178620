// Package frankfurter resolves currency conversion rates from the
// frankfurter.app API, which republishes the ECB reference rates. It
// implements the engine's RateSource.
//
// Rates for a historical date are immutable, so responses are cached on disk
// and the cache expires daily, which also covers the "latest" endpoint.
package frankfurter

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"

	"github.com/PaesslerAG/jsonpath"
	"github.com/charmbracelet/log"

	"github.com/depotlens/depotlens"
)

const defaultBaseURL = "https://api.frankfurter.app"

// Client queries frankfurter.app. The zero value is not usable, use New.
type Client struct {
	http *http.Client
	base string
}

// New returns a client with a daily-expiring disk cache.
func New() *Client {
	return &Client{http: daily(), base: defaultBaseURL}
}

// NewWithHTTPClient returns a client using the given http.Client, for tests
// and callers that bring their own transport.
func NewWithHTTPClient(c *http.Client) *Client {
	return &Client{http: c, base: defaultBaseURL}
}

// Rate returns the value of 1 unit of from in to as of the given date.
// The API resolves a date with no published rate (weekends, holidays) to the
// closest preceding business day, which is the behavior valuation wants.
func (c *Client) Rate(from, to string, on depotlens.Date) (depotlens.Quantity, error) {
	addr := fmt.Sprintf("%s/%s?from=%s&to=%s", c.base, on, from, to)

	var jobj any
	if err := c.jwget(addr, &jobj); err != nil {
		// The API answers 404 for an unknown currency pair: that is an
		// absence, not a transport failure.
		var status *statusError
		if errors.As(err, &status) && status.code == http.StatusNotFound {
			return depotlens.Quantity{}, depotlens.ErrNotAvailable
		}
		return depotlens.Quantity{}, fmt.Errorf("fetching rate %s/%s: %w", from, to, err)
	}

	path := "$.rates." + to
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		// A well-formed answer without the target currency means the API has
		// no rate for the pair.
		return depotlens.Quantity{}, depotlens.ErrNotAvailable
	}
	// jsonpath sometimes wraps a single answer in a list; unwrap it.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok {
		return depotlens.Quantity{}, fmt.Errorf("rate %s/%s on %s: %q is not a number: %v", from, to, on, path, jval)
	}
	return depotlens.Q(val), nil
}

// statusError carries a non-200 HTTP answer.
type statusError struct {
	code   int
	status string
}

func (e *statusError) Error() string { return e.status }

// jwget performs a GET and unmarshals the JSON response into data.
func (c *Client) jwget(addr string, data any) error {
	resp, err := c.http.Get(addr)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode, status: resp.Status}
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return err
	}
	return json.Unmarshal(buf.Bytes(), data)
}

// diskCache implements a simple disk cache for HTTP responses.
type diskCache struct {
	base http.RoundTripper
}

func (c *diskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	// The key embeds today's date, so the cache expires every day.
	key := fmt.Sprintf("%s %s %s", depotlens.Today(), req.Method, req.URL.String())
	key = fmt.Sprintf("%x", sha1.Sum([]byte(key)))

	if resp, err := c.get(key, req); err == nil {
		return resp, nil
	}

	resp, err := c.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	log.Debug("fetched", "method", resp.Request.Method, "host", resp.Request.URL.Host, "status", resp.Status)
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		log.Warn("cache write failed", "err", err)
	}
	return resp, nil
}

func (c *diskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(os.TempDir(), key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewBuffer(content)), req)
}

func (c *diskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(os.TempDir(), key))
	if err != nil {
		return err
	}
	_, err = f.Write(content)
	f.Close()
	return err
}

// daily returns a client whose responses are cached until the end of the day.
func daily() *http.Client {
	client := new(http.Client)
	client.Transport = &diskCache{http.DefaultTransport}
	return client
}

var _ depotlens.RateSource = (*Client)(nil)
