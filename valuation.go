package depotlens

import (
	"errors"
	"sort"
	"strings"
)

// NonPortfolioPrefix marks instruments that Trade Republic tracks for
// information only (its synthetic crypto identifiers). They are valued but
// excluded from the portfolio total by default policy.
const NonPortfolioPrefix = "XF000"

// ExcludeFunc decides whether an instrument is excluded from the portfolio
// total. Excluded instruments are still valued and reported; the exclusion
// is a named policy, not a silent drop.
type ExcludeFunc func(instrument string) bool

// ExcludeByPrefix returns the exclusion predicate matching any of the given
// instrument-identifier prefixes.
func ExcludeByPrefix(prefixes ...string) ExcludeFunc {
	return func(instrument string) bool {
		for _, p := range prefixes {
			if strings.HasPrefix(instrument, p) {
				return true
			}
		}
		return false
	}
}

// ExcludeNone excludes nothing.
func ExcludeNone() ExcludeFunc { return func(string) bool { return false } }

// InstrumentValue is the valuation of a single holding in the reporting
// currency.
type InstrumentValue struct {
	Instrument string
	Name       string
	Shares     Quantity
	Quote      Quote // the raw quote, in its source currency
	Price      Money // per-share price converted to the reporting currency
	Value      Money // Shares × Price
	Excluded   bool  // valued, but excluded from Total by policy
}

// UnpricedReason classifies why a holding could not be valued.
type UnpricedReason string

const (
	// ReasonNoQuote: the price source holds no quote for the instrument.
	ReasonNoQuote UnpricedReason = "no quote available"
	// ReasonUnknownQuoteCurrency: the quote exists but its currency is
	// unknown, so converting it would require a guess.
	ReasonUnknownQuoteCurrency UnpricedReason = "quote currency unknown"
	// ReasonMissingRate: no conversion rate exists for the quote's currency
	// pair on the valuation date.
	ReasonMissingRate UnpricedReason = "missing conversion rate"
	// ReasonLookupFailed: the price or rate source failed with a transport
	// error rather than a clean absence.
	ReasonLookupFailed UnpricedReason = "lookup failed"
)

// UnpricedInstrument records a holding that could not be valued. Callers can
// distinguish "contributes zero because verified worthless" from "excluded
// because unpriceable": the former would be a priced value of zero, the
// latter lands here.
type UnpricedInstrument struct {
	Instrument string
	Name       string
	Shares     Quantity
	Reason     UnpricedReason
	Err        error // the underlying error, when one exists
}

// Explain returns the human-readable explanation: the underlying error when
// one exists, the reason code otherwise.
func (u UnpricedInstrument) Explain() string {
	if u.Err != nil {
		return u.Err.Error()
	}
	return string(u.Reason)
}

// Valuation is the priced view of replayed holdings at a date.
type Valuation struct {
	On       Date
	Currency string            // reporting currency
	Values   []InstrumentValue // sorted by instrument for determinism
	Unpriced []UnpricedInstrument
	Total    Money // sum of non-excluded Values, in the reporting currency
}

// Value returns the valuation entry for an instrument, if present.
func (v *Valuation) Value(instrument string) (InstrumentValue, bool) {
	for _, iv := range v.Values {
		if iv.Instrument == instrument {
			return iv, true
		}
	}
	return InstrumentValue{}, false
}

// ValuePortfolio prices every replayed holding through the price source,
// converts each quote into the reporting currency, and aggregates the total.
//
// A valuation always completes. Per-instrument failures are isolated: a
// holding with no quote, a quote with no known currency, a quote whose
// currency cannot be converted, or a source that fails outright is recorded
// in Unpriced and excluded from the total, never assumed worthless and never
// valued at a guessed rate. Aggregation is an exact decimal sum, so the
// total is independent of iteration order.
func ValuePortfolio(h *Holdings, prices PriceSource, conv *Converter, currency string, exclude ExcludeFunc) *Valuation {
	if exclude == nil {
		exclude = ExcludeByPrefix(NonPortfolioPrefix)
	}
	v := &Valuation{
		On:       h.On,
		Currency: currency,
		Total:    M(0, currency),
	}

	for instrument := range h.Instruments() {
		pos := h.Positions[instrument]

		quote, err := prices.Price(instrument, h.On)
		switch {
		case errors.Is(err, ErrNotAvailable):
			v.Unpriced = append(v.Unpriced, UnpricedInstrument{
				Instrument: instrument, Name: pos.Name, Shares: pos.Shares,
				Reason: ReasonNoQuote,
			})
			continue
		case err != nil:
			v.Unpriced = append(v.Unpriced, UnpricedInstrument{
				Instrument: instrument, Name: pos.Name, Shares: pos.Shares,
				Reason: ReasonLookupFailed, Err: err,
			})
			continue
		}

		if quote.Currency == "" {
			// A quote with no currency is unusable: guessing the reporting
			// currency here is the legacy defect this engine exists to stop.
			v.Unpriced = append(v.Unpriced, UnpricedInstrument{
				Instrument: instrument, Name: pos.Name, Shares: pos.Shares,
				Reason: ReasonUnknownQuoteCurrency,
			})
			continue
		}

		price, err := conv.Convert(M(quote.Price.Decimal(), quote.Currency), currency, h.On)
		var missing *MissingRateError
		switch {
		case errors.As(err, &missing):
			v.Unpriced = append(v.Unpriced, UnpricedInstrument{
				Instrument: instrument, Name: pos.Name, Shares: pos.Shares,
				Reason: ReasonMissingRate, Err: missing,
			})
			continue
		case err != nil:
			v.Unpriced = append(v.Unpriced, UnpricedInstrument{
				Instrument: instrument, Name: pos.Name, Shares: pos.Shares,
				Reason: ReasonLookupFailed, Err: err,
			})
			continue
		}

		iv := InstrumentValue{
			Instrument: instrument,
			Name:       pos.Name,
			Shares:     pos.Shares,
			Quote:      quote,
			Price:      price,
			Value:      price.Mul(pos.Shares),
			Excluded:   exclude(instrument),
		}
		v.Values = append(v.Values, iv)
		if !iv.Excluded {
			v.Total = v.Total.Add(iv.Value)
		}
	}

	sort.Slice(v.Values, func(i, j int) bool {
		return v.Values[i].Instrument < v.Values[j].Instrument
	})
	sort.Slice(v.Unpriced, func(i, j int) bool {
		return v.Unpriced[i].Instrument < v.Unpriced[j].Instrument
	})
	return v
}
