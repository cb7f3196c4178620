package depotlens

import (
	"errors"
	"testing"
)

func testHoldings(positions map[string]float64) *Holdings {
	h := &Holdings{
		On:        MustParseDate("2025-06-30"),
		Positions: make(map[string]Position),
		Diagnostics: ReplayDiagnostics{
			Unclassified:  make(map[string]int),
			MissingShares: make(map[string]int),
			UnknownLabels: make(map[string]int),
		},
	}
	for id, shares := range positions {
		h.Positions[id] = Position{Shares: Q(shares)}
	}
	return h
}

func TestValuePortfolio(t *testing.T) {
	h := testHoldings(map[string]float64{
		"US0378331005": 10, // USD quote
		"DE0007164600": 4,  // EUR quote
	})
	prices := fixedPrices{
		"US0378331005": {price: 200, currency: "USD"},
		"DE0007164600": {price: 150, currency: "EUR"},
	}
	conv := NewConverter(fixedRates{{"USD", "EUR"}: 0.9})

	v := ValuePortfolio(h, prices, conv, "EUR", nil)
	// 10 × 200 × 0.9 + 4 × 150 = 1800 + 600
	if !v.Total.Equal(eur(2400)) {
		t.Errorf("Total = %v, want 2400 EUR", v.Total)
	}
	if len(v.Unpriced) != 0 {
		t.Errorf("Unpriced = %v, want none", v.Unpriced)
	}
	apple, ok := v.Value("US0378331005")
	if !ok {
		t.Fatalf("Value(US0378331005) not found")
	}
	if !apple.Value.Equal(eur(1800)) {
		t.Errorf("apple value = %v, want 1800 EUR", apple.Value)
	}
}

func TestValuePortfolioOrderIndependentTotal(t *testing.T) {
	prices := fixedPrices{
		"AAA": {price: 0.1, currency: "EUR"},
		"BBB": {price: 0.2, currency: "EUR"},
		"CCC": {price: 0.3, currency: "EUR"},
	}
	conv := NewConverter(fixedRates{})

	first := ValuePortfolio(testHoldings(map[string]float64{"AAA": 1, "BBB": 1, "CCC": 1}),
		prices, conv, "EUR", nil)
	second := ValuePortfolio(testHoldings(map[string]float64{"CCC": 1, "AAA": 1, "BBB": 1}),
		prices, conv, "EUR", nil)
	if !first.Total.Equal(second.Total) {
		t.Errorf("total depends on iteration order: %v vs %v", first.Total, second.Total)
	}
	if !first.Total.Equal(eur(0.6)) {
		t.Errorf("Total = %v, want 0.6 EUR", first.Total)
	}
}

func TestValuePortfolioUnpriced(t *testing.T) {
	h := testHoldings(map[string]float64{
		"US0378331005": 10,
		"XX0000000000": 5, // no quote at all
	})
	prices := fixedPrices{"US0378331005": {price: 200, currency: "EUR"}}
	conv := NewConverter(fixedRates{})

	v := ValuePortfolio(h, prices, conv, "EUR", nil)
	// The unpriceable holding is reported, not valued at zero.
	if !v.Total.Equal(eur(2000)) {
		t.Errorf("Total = %v, want 2000 EUR", v.Total)
	}
	if len(v.Unpriced) != 1 || v.Unpriced[0].Instrument != "XX0000000000" {
		t.Fatalf("Unpriced = %+v, want the quoteless instrument", v.Unpriced)
	}
	if v.Unpriced[0].Reason != ReasonNoQuote {
		t.Errorf("Reason = %q", v.Unpriced[0].Reason)
	}
}

func TestValuePortfolioMissingRateIsolated(t *testing.T) {
	h := testHoldings(map[string]float64{
		"US0378331005": 10, // USD, no rate known
		"DE0007164600": 4,  // EUR, fine
	})
	prices := fixedPrices{
		"US0378331005": {price: 200, currency: "USD"},
		"DE0007164600": {price: 150, currency: "EUR"},
	}
	conv := NewConverter(fixedRates{})

	v := ValuePortfolio(h, prices, conv, "EUR", nil)
	if !v.Total.Equal(eur(600)) {
		t.Errorf("Total = %v, want 600 EUR: the inconvertible holding must not count", v.Total)
	}
	if len(v.Unpriced) != 1 {
		t.Fatalf("Unpriced = %+v, want one entry", v.Unpriced)
	}
	if v.Unpriced[0].Reason != ReasonMissingRate {
		t.Errorf("Reason = %q, want %q", v.Unpriced[0].Reason, ReasonMissingRate)
	}
	var missing *MissingRateError
	if !errors.As(v.Unpriced[0].Err, &missing) {
		t.Errorf("Unpriced[0].Err = %v, want *MissingRateError", v.Unpriced[0].Err)
	}
}

func TestValuePortfolioUnknownQuoteCurrency(t *testing.T) {
	h := testHoldings(map[string]float64{"US0378331005": 10})
	// Legacy price records carry no currency. Guessing one is forbidden.
	prices := fixedPrices{"US0378331005": {price: 200, currency: ""}}
	conv := NewConverter(fixedRates{})

	v := ValuePortfolio(h, prices, conv, "EUR", nil)
	if !v.Total.IsZero() {
		t.Errorf("Total = %v, want 0: a currencyless quote must not be valued", v.Total)
	}
	if len(v.Unpriced) != 1 || v.Unpriced[0].Reason != ReasonUnknownQuoteCurrency {
		t.Fatalf("Unpriced = %+v, want one quote-currency-unknown entry", v.Unpriced)
	}
}

// flakyPrices fails for one instrument and answers from the fixture for the
// rest.
type flakyPrices struct {
	good fixedPrices
	bad  string
	err  error
}

func (p flakyPrices) Price(instrument string, on Date) (Quote, error) {
	if instrument == p.bad {
		return Quote{}, p.err
	}
	return p.good.Price(instrument, on)
}

func TestValuePortfolioLookupFailureIsolated(t *testing.T) {
	h := testHoldings(map[string]float64{
		"US0378331005": 10,
		"DE0007164600": 4,
	})
	boom := errors.New("connection reset")
	prices := flakyPrices{
		good: fixedPrices{"DE0007164600": {price: 150, currency: "EUR"}},
		bad:  "US0378331005",
		err:  boom,
	}

	// A broken price source must not abort the run: the rest of the
	// portfolio is still valued and the failure is reported per instrument.
	v := ValuePortfolio(h, prices, NewConverter(fixedRates{}), "EUR", nil)
	if !v.Total.Equal(eur(600)) {
		t.Errorf("Total = %v, want 600 EUR from the healthy holding", v.Total)
	}
	if len(v.Unpriced) != 1 || v.Unpriced[0].Reason != ReasonLookupFailed {
		t.Fatalf("Unpriced = %+v, want one lookup-failed entry", v.Unpriced)
	}
	if !errors.Is(v.Unpriced[0].Err, boom) {
		t.Errorf("Unpriced[0].Err = %v, want the source error", v.Unpriced[0].Err)
	}
}

func TestValuePortfolioExclusion(t *testing.T) {
	h := testHoldings(map[string]float64{
		"US0378331005": 10,
		"XF000BTC0017": 2, // crypto tracker: valued, excluded from the total
	})
	prices := fixedPrices{
		"US0378331005": {price: 200, currency: "EUR"},
		"XF000BTC0017": {price: 50000, currency: "EUR"},
	}
	conv := NewConverter(fixedRates{})

	v := ValuePortfolio(h, prices, conv, "EUR", nil)
	if !v.Total.Equal(eur(2000)) {
		t.Errorf("Total = %v, want 2000 EUR without the excluded tracker", v.Total)
	}
	btc, ok := v.Value("XF000BTC0017")
	if !ok {
		t.Fatalf("excluded instrument must still be valued")
	}
	if !btc.Excluded {
		t.Errorf("Excluded = false, want true")
	}
	if !btc.Value.Equal(eur(100000)) {
		t.Errorf("excluded value = %v, want 100000 EUR", btc.Value)
	}

	// ExcludeNone puts it back in.
	all := ValuePortfolio(h, prices, conv, "EUR", ExcludeNone())
	if !all.Total.Equal(eur(102000)) {
		t.Errorf("Total with ExcludeNone = %v, want 102000 EUR", all.Total)
	}
}

func TestValuePortfolioMinorUnitQuote(t *testing.T) {
	h := testHoldings(map[string]float64{"GB0002374006": 100})
	prices := fixedPrices{"GB0002374006": {price: 100, currency: "GBp"}}
	conv := NewConverter(fixedRates{{"GBP", "EUR"}: 1.17})

	v := ValuePortfolio(h, prices, conv, "EUR", nil)
	diageo, ok := v.Value("GB0002374006")
	if !ok {
		t.Fatalf("Value(GB0002374006) not found")
	}
	if !diageo.Price.Equal(eur(1.17)) {
		t.Errorf("per-share price = %v, want 1.17 EUR", diageo.Price)
	}
	if !v.Total.Equal(eur(117)) {
		t.Errorf("Total = %v, want 117 EUR", v.Total)
	}
}
