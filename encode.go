package depotlens

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// timestampFormats lists the layouts observed in brokerage exports, tried in
// order. The second is RFC3339 with the zone offset written without a colon,
// which is what Trade Republic's API emits.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
	DateFormat,
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// DecodeLedger reads a JSONL stream, one transaction per line, and returns
// the sorted ledger.
//
// A line that is not valid JSON makes the whole decode fail: a structurally
// broken file should be fixed, not partially ingested. A line that parses but
// lacks an instrument or timestamp is quarantined on the ledger instead, so
// one bad record never hides the rest of the history.
func DecodeLedger(r io.Reader) (*Ledger, error) {
	ledger := NewLedger()
	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue
		}

		var temp struct {
			Instrument string          `json:"instrument"`
			Timestamp  string          `json:"timestamp"`
			Label      string          `json:"label"`
			Shares     Quantity        `json:"shares"`
			Amount     decimal.Decimal `json:"amount"`
			Currency   string          `json:"currency"`
			Name       string          `json:"name"`
		}
		if err := json.Unmarshal(lineBytes, &temp); err != nil {
			return nil, fmt.Errorf("invalid ledger line %d %q: %w", line, string(lineBytes), err)
		}

		tx := Transaction{
			Instrument: temp.Instrument,
			Label:      temp.Label,
			Shares:     temp.Shares,
			Amount:     M(temp.Amount, temp.Currency),
			Name:       temp.Name,
		}
		if temp.Timestamp != "" {
			t, err := parseTimestamp(temp.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("ledger line %d: %w", line, err)
			}
			tx.Time = t
		}
		// Append validates and quarantines records with no instrument or
		// timestamp.
		ledger.Append(tx)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return ledger, nil
}

// EncodeTransaction writes one transaction as a single JSON line with a fixed
// field order, so re-encoding a ledger yields byte-stable, diffable output.
func EncodeTransaction(w io.Writer, tx Transaction) error {
	var obj jsonObjectWriter
	obj.Append("instrument", tx.Instrument)
	obj.Append("timestamp", tx.Time.UTC().Format(time.RFC3339))
	obj.Append("label", tx.Label)
	obj.Optional("shares", tx.Shares)
	if !tx.Amount.IsZero() || tx.Amount.Currency() != "" {
		obj.Append("amount", tx.Amount.Decimal())
		obj.Optional("currency", tx.Amount.Currency())
	}
	obj.Optional("name", tx.Name)

	data, err := obj.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encoding transaction for %s: %w", tx.Instrument, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

// EncodeLedger writes the ledger as JSONL in chronological order.
func EncodeLedger(w io.Writer, l *Ledger) error {
	for _, tx := range l.Transactions() {
		if err := EncodeTransaction(w, tx); err != nil {
			return err
		}
	}
	return nil
}
