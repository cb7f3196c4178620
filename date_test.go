package depotlens

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2025-06-30", NewDate(2025, time.June, 30), true},
		{"2025-7-1", NewDate(2025, time.July, 1), true},
		{"30.06.2025", Date{}, false},
		{"", Date{}, false},
	}
	for _, tc := range tests {
		got, err := ParseDate(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("ParseDate(%q) error = %v, ok = %v", tc.in, err, tc.ok)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDateNormalization(t *testing.T) {
	// Out-of-range days roll over, like time.Date.
	if got := NewDate(2025, time.January, 32); got != NewDate(2025, time.February, 1) {
		t.Errorf("NewDate(2025, Jan, 32) = %v", got)
	}
	if got := NewDate(2025, time.June, 30).Add(1); got != NewDate(2025, time.July, 1) {
		t.Errorf("Add(1) = %v", got)
	}
}

func TestDateOfTruncatesToUTC(t *testing.T) {
	zone := time.FixedZone("CEST", 2*60*60)
	// 00:30 CEST on July 1 is still June 30 in UTC.
	ts := time.Date(2025, time.July, 1, 0, 30, 0, 0, zone)
	if got := DateOf(ts); got != NewDate(2025, time.June, 30) {
		t.Errorf("DateOf(%v) = %v, want 2025-06-30", ts, got)
	}
}

func TestDateOrdering(t *testing.T) {
	a, b := MustParseDate("2025-06-30"), MustParseDate("2025-07-01")
	if !a.Before(b) || b.Before(a) || !b.After(a) {
		t.Errorf("ordering broken for %v and %v", a, b)
	}
	if a.After(a) || a.Before(a) {
		t.Errorf("a date must not order against itself")
	}
}
