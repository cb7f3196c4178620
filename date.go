package depotlens

import (
	"encoding/json"
	"fmt"
	"time"
)

const readDateFormat = "2006-1-2" // permissive read format (single-digit month/day ok)

// DateFormat is the canonical ISO-8601 representation used when writing dates.
const DateFormat = "2006-01-02"

// Date represents a calendar date with day granularity.
//
// Transactions carry full timestamps, but every question the engine answers
// ("what did I hold on date X") is a day-level question, so cutoffs,
// quotes, and FX rates are all keyed by Date.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month, and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// DateOf truncates a timestamp to its calendar day in UTC.
func DateOf(t time.Time) Date { return NewDate(t.UTC().Date()) }

// Today returns the current date.
func Today() Date { return NewDate(time.Now().Date()) }

// time returns the canonical time.Time for that day (midnight UTC).
func (d Date) time() time.Time { return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC) }

// Time returns the canonical timestamp for that day, midnight UTC.
func (d Date) Time() time.Time { return d.time() }

// Before reports whether d is strictly before x.
func (d Date) Before(x Date) bool { return d.time().Before(x.time()) }

// After reports whether d is strictly after x.
func (d Date) After(x Date) bool { return d.time().After(x.time()) }

// IsZero reports whether d is the zero date.
func (d Date) IsZero() bool { return d == Date{} }

// Add returns a new Date with the given number of days added.
func (d Date) Add(days int) Date { return NewDate(d.y, d.m, d.d+days) }

// Year returns the year of the date.
func (d Date) Year() int { return d.y }

// Month returns the month of the date.
func (d Date) Month() time.Month { return d.m }

// Day returns the day of the month.
func (d Date) Day() int { return d.d }

// String formats the date in its canonical format.
func (d Date) String() string { return d.time().Format(DateFormat) }

// ParseDate parses a Date from a string. It is lenient and accepts
// formats like "2025-7-1".
func ParseDate(str string) (Date, error) {
	on, err := time.Parse(readDateFormat, str)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q want format %q: %w", str, DateFormat, err)
	}
	return NewDate(on.Date()), nil
}

// MustParseDate is like ParseDate but panics on error. For tests and constants.
func MustParseDate(str string) Date {
	d, err := ParseDate(str)
	if err != nil {
		panic(err.Error())
	}
	return d
}

// UnmarshalJSON implements json.Unmarshaler from an ISO-8601 string.
func (d *Date) UnmarshalJSON(bytes []byte) error {
	var str string
	if err := json.Unmarshal(bytes, &str); err != nil {
		return err
	}
	parsed, err := ParseDate(str)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON implements json.Marshaler as an ISO-8601 string.
func (d Date) MarshalJSON() ([]byte, error) {
	str := d.String()
	return json.Marshal(&str)
}

var _ json.Marshaler = (*Date)(nil)
var _ json.Unmarshaler = (*Date)(nil)
