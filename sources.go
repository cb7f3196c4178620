package depotlens

import "errors"

// ErrNotAvailable is the sentinel returned by price and rate sources when
// they hold no data for the requested key. It is the only error the core
// treats as "absent"; anything else is a transport failure, which valuation
// isolates per instrument instead of failing the whole run.
var ErrNotAvailable = errors.New("not available")

// Quote is a raw price observation for one instrument: the price as quoted
// at the source, in the source's currency, which is not necessarily the
// reporting currency and may even be a minor unit (GBp). Quotes are fetched
// on demand and never cached inside the core.
type Quote struct {
	Instrument string
	Price      Quantity // raw price per share, in Currency
	Currency   string   // quote currency; empty means the source does not know
	On         Date
}

// PriceSource supplies a quote for an instrument on or before a date.
// It returns ErrNotAvailable when no quote exists. Implementations may do
// network or disk I/O; they are injected so callers can cache, batch, or
// retry without the core changing.
type PriceSource interface {
	Price(instrument string, on Date) (Quote, error)
}

// RateSource supplies the conversion rate from one currency to another as of
// a date: the value of 1 unit of from in to. It returns ErrNotAvailable when
// no rate exists for that date and pair.
type RateSource interface {
	Rate(from, to string, on Date) (Quantity, error)
}

// PriceFunc adapts a function to the PriceSource interface.
type PriceFunc func(instrument string, on Date) (Quote, error)

func (f PriceFunc) Price(instrument string, on Date) (Quote, error) { return f(instrument, on) }

// RateFunc adapts a function to the RateSource interface.
type RateFunc func(from, to string, on Date) (Quantity, error)

func (f RateFunc) Rate(from, to string, on Date) (Quantity, error) { return f(from, to, on) }
