package depotlens

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money represents a monetary value in a specific currency.
type Money struct {
	value decimal.Decimal // in major units
	cur   string
}

// M builds a Money from any numeric type and a currency code.
func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: newDecimal(value), cur: currency}
}

// currency returns the go-money currency metadata, never nil.
func (m Money) currency() money.Currency {
	return *money.New(0, m.cur).Currency()
}

// String formats the value with its currency's symbol and fraction digits.
func (m Money) String() string {
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

func (m Money) Currency() string             { return m.cur }
func (m Money) Equal(n Money) bool           { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Money) IsZero() bool                 { return m.value.IsZero() }
func (m Money) IsPositive() bool             { return m.value.IsPositive() }
func (m Money) IsNegative() bool             { return m.value.IsNegative() }
func (m Money) LessThan(n Money) bool        { return m.value.LessThan(n.value) }
func (m Money) GreaterThan(n Money) bool     { return m.value.GreaterThan(n.value) }
func (m Money) Neg() Money                   { return Money{value: m.value.Neg(), cur: m.cur} }
func (m Money) Abs() Money                   { return Money{value: m.value.Abs(), cur: m.cur} }
func (m Money) Mul(q Quantity) Money         { return Money{value: m.value.Mul(q.value), cur: m.cur} }
func (m Money) Div(q Quantity) Money         { return Money{value: m.value.Div(q.value), cur: m.cur} }

// Add and Sub panic on a currency mismatch: summing EUR with USD is always a
// programming error here, conversion must happen first.
func (m Money) Add(n Money) Money { return Money{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Money) Sub(n Money) Money { return Money{value: m.value.Sub(n.value), cur: cur(m, n)} }

// cur resolves the currency of a binary operation, treating "" as weak.
func cur(a, b Money) string {
	if a.cur == "" {
		return b.cur
	}
	if b.cur == "" {
		return a.cur
	}
	if a.cur != b.cur {
		panic("currency mismatch " + a.cur + " != " + b.cur)
	}
	return a.cur
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.value }

// InexactFloat64 returns the nearest float64. For display only.
func (m Money) InexactFloat64() float64 { return m.value.InexactFloat64() }

// SignedString renders the value with an explicit sign; zero becomes "-".
func (m Money) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

// MarshalJSON writes the value as {"currency": "...", "amount": ...}.
func (m Money) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("currency", m.cur)
	w.Append("amount", m.value)
	return w.MarshalJSON()
}
