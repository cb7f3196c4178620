package depotlens

import (
	"time"
)

// Test fixtures shared across the package tests.

func eur(v float64) Money { return M(v, "EUR") }
func usd(v float64) Money { return M(v, "USD") }

// tx builds a transaction at noon UTC of the given day.
func tx(instrument, day, label string, shares float64) Transaction {
	d := MustParseDate(day)
	return Transaction{
		Instrument: instrument,
		Time:       time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, time.UTC),
		Label:      label,
		Shares:     Q(shares),
	}
}

// rateKey identifies a currency pair; dates are ignored by the fixed source.
type rateKey struct{ from, to string }

// fixedRates is a RateSource backed by a static table.
type fixedRates map[rateKey]float64

func (r fixedRates) Rate(from, to string, on Date) (Quantity, error) {
	if v, ok := r[rateKey{from, to}]; ok {
		return Q(v), nil
	}
	return Quantity{}, ErrNotAvailable
}

// priceEntry is one static quote of a fixedPrices source.
type priceEntry struct {
	price    float64
	currency string
}

// fixedPrices is a PriceSource backed by a static table.
type fixedPrices map[string]priceEntry

func (p fixedPrices) Price(instrument string, on Date) (Quote, error) {
	e, ok := p[instrument]
	if !ok {
		return Quote{}, ErrNotAvailable
	}
	return Quote{Instrument: instrument, Price: Q(e.price), Currency: e.currency, On: on}, nil
}
