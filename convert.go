package depotlens

import (
	"errors"
	"fmt"
)

// MissingRateError reports that no conversion rate exists for a currency
// pair on a given date. The converter fails loudly instead of falling back
// to an identity rate: silently treating an unknown currency as the target
// currency is precisely the defect class that produced six-figure valuation
// errors in the scripts this engine replaces.
type MissingRateError struct {
	From string
	To   string
	On   Date
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no conversion rate for %s/%s on %s", e.From, e.To, e.On)
}

// minorUnit describes a currency whose market quotes are expressed in a
// fraction of its major unit, like London quotes in pence.
type minorUnit struct {
	major   string
	divisor int64
}

// minorUnits maps minor-unit quote currencies to their major currency and
// divisor. The divisor applies BEFORE any cross-rate.
var minorUnits = map[string]minorUnit{
	"GBX": {major: "GBP", divisor: 100}, // British pence
	"GBp": {major: "GBP", divisor: 100}, // Yahoo's spelling of the same
	"ZAC": {major: "ZAR", divisor: 100}, // South African cents
	"ZAc": {major: "ZAR", divisor: 100},
	"ILA": {major: "ILS", divisor: 100}, // Israeli agorot
}

// Normalize rewrites a minor-unit amount into its major currency: 150 GBp
// becomes 1.50 GBP. Amounts in a major currency pass through unchanged.
// This is the one documented place where minor-unit handling happens;
// callers must never divide by 100 themselves.
func Normalize(amount Money) Money {
	mu, ok := minorUnits[amount.Currency()]
	if !ok {
		return amount
	}
	return M(amount.Decimal().Div(newDecimal(mu.divisor)), mu.major)
}

// Converter converts monetary amounts into a target currency using an
// injected rate source. It holds no rate data of its own.
type Converter struct {
	rates RateSource
}

// NewConverter returns a converter backed by the given rate source.
func NewConverter(rates RateSource) *Converter {
	return &Converter{rates: rates}
}

// Convert returns the amount expressed in the target currency as of the
// reference date.
//
// Identity conversions return the input unchanged, with no rounding drift.
// Minor-unit currencies are normalized first (see Normalize). When the rate
// source has no rate for the pair and date, Convert returns a
// *MissingRateError; it never substitutes a default rate.
func (c *Converter) Convert(amount Money, target string, on Date) (Money, error) {
	amount = Normalize(amount)
	if amount.Currency() == target {
		return amount, nil
	}
	rate, err := c.rates.Rate(amount.Currency(), target, on)
	if err != nil {
		if errors.Is(err, ErrNotAvailable) {
			return Money{}, &MissingRateError{From: amount.Currency(), To: target, On: on}
		}
		return Money{}, fmt.Errorf("rate lookup %s/%s on %s: %w", amount.Currency(), target, on, err)
	}
	return M(amount.Decimal().Mul(rate.Decimal()), target), nil
}
