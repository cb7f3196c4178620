package depotlens

import (
	"bytes"
	"strings"
	"testing"
)

func TestDecodeLedger(t *testing.T) {
	input := strings.Join([]string{
		`{"instrument":"US0378331005","timestamp":"2025-01-10T12:30:00+0000","label":"Kauforder","shares":10,"amount":-1500.50,"currency":"EUR","name":"Apple"}`,
		``,
		`{"instrument":"US0378331005","timestamp":"2025-02-01T09:00:00Z","label":"Verkaufsorder","shares":3}`,
		`{"instrument":"DE0007164600","timestamp":"2025-03-01","label":"Dividende","amount":12.34,"currency":"EUR"}`,
	}, "\n")

	ledger, err := DecodeLedger(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeLedger() error = %v", err)
	}
	if ledger.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ledger.Len())
	}

	h := Replay(ledger, MustParseDate("2025-12-31"))
	if got := h.Shares("US0378331005"); !got.Equal(Q(7)) {
		t.Errorf("Shares(US0378331005) = %v, want 7", got)
	}
	if got := ledger.OldestTransactionDate(); got != MustParseDate("2025-01-10") {
		t.Errorf("OldestTransactionDate() = %v", got)
	}
}

func TestDecodeLedgerQuarantinesIncomplete(t *testing.T) {
	input := strings.Join([]string{
		`{"instrument":"US0378331005","timestamp":"2025-01-10T12:30:00Z","label":"Kauforder","shares":10}`,
		`{"timestamp":"2025-01-11T12:30:00Z","label":"Kauforder","shares":5}`,
		`{"instrument":"DE0007164600","label":"Kauforder","shares":5}`,
	}, "\n")

	ledger, err := DecodeLedger(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeLedger() error = %v", err)
	}
	if ledger.Len() != 1 {
		t.Errorf("Len() = %d, want 1", ledger.Len())
	}
	if len(ledger.Malformed()) != 2 {
		t.Errorf("Malformed() = %d records, want 2", len(ledger.Malformed()))
	}
}

func TestDecodeLedgerRejectsBrokenJSON(t *testing.T) {
	input := `{"instrument":"US0378331005","timestamp":`
	if _, err := DecodeLedger(strings.NewReader(input)); err == nil {
		t.Fatalf("DecodeLedger() accepted structurally invalid input")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ledger := NewLedger()
	apple := tx("US0378331005", "2025-01-10", "Kauforder", 10)
	apple.Amount = eur(-1500.50)
	apple.Name = "Apple"
	ledger.Append(apple, tx("DE0007164600", "2025-02-01", "Verkaufsorder", 3))

	var buf bytes.Buffer
	if err := EncodeLedger(&buf, ledger); err != nil {
		t.Fatalf("EncodeLedger() error = %v", err)
	}

	decoded, err := DecodeLedger(&buf)
	if err != nil {
		t.Fatalf("DecodeLedger() error = %v", err)
	}
	if decoded.Len() != ledger.Len() {
		t.Fatalf("Len() = %d, want %d", decoded.Len(), ledger.Len())
	}
	for i, got := range decoded.Transactions() {
		want := ledger.transactions[i]
		if got.Instrument != want.Instrument || got.Label != want.Label ||
			!got.Shares.Equal(want.Shares) || !got.Time.Equal(want.Time) {
			t.Errorf("transaction %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestEncodeTransactionFieldOrder(t *testing.T) {
	apple := tx("US0378331005", "2025-01-10", "Kauforder", 10)
	apple.Amount = eur(-1500.50)
	apple.Name = "Apple"

	var buf bytes.Buffer
	if err := EncodeTransaction(&buf, apple); err != nil {
		t.Fatalf("EncodeTransaction() error = %v", err)
	}
	want := `{"instrument":"US0378331005","timestamp":"2025-01-10T12:00:00Z","label":"Kauforder","shares":10,"amount":-1500.5,"currency":"EUR","name":"Apple"}` + "\n"
	if got := buf.String(); got != want {
		t.Errorf("EncodeTransaction()\n got %s want %s", got, want)
	}
}
