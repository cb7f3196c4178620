package depotlens

import (
	"fmt"
	"iter"
	"sort"
	"time"
)

// Transaction is one immutable record of the append-only brokerage ledger.
// The ledger is the sole source of truth for historical state: records are
// never mutated after ingestion, all derived figures are recomputed from it.
type Transaction struct {
	Instrument string    // unique security identifier (ISIN-like)
	Time       time.Time // moment of the event; ordering key
	Label      string    // raw source label, classified via Classify
	Shares     Quantity  // signed share quantity; zero may mean "not determinable"
	Amount     Money     // signed monetary value; zero for pure corporate actions
	Name       string    // display label, may differ between records of one instrument
}

// Date returns the calendar day of the transaction.
func (t Transaction) Date() Date { return DateOf(t.Time) }

// Action returns the semantic classification of the transaction's label.
func (t Transaction) Action() Action { return Classify(t.Label) }

// Validate reports a *MalformedTransactionError when the record is missing
// the fields replay cannot work without.
func (t Transaction) Validate() error {
	if t.Instrument == "" {
		return &MalformedTransactionError{Reason: "missing instrument identifier", Label: t.Label}
	}
	if t.Time.IsZero() {
		return &MalformedTransactionError{Reason: "missing timestamp", Label: t.Label, Instrument: t.Instrument}
	}
	return nil
}

// MalformedTransactionError marks a record that cannot take part in replay
// because it lacks an instrument identifier or a timestamp. Such records are
// quarantined and counted, never silently treated as zero-impact.
type MalformedTransactionError struct {
	Reason     string
	Instrument string
	Label      string
}

func (e *MalformedTransactionError) Error() string {
	if e.Instrument != "" {
		return fmt.Sprintf("malformed transaction for %s: %s", e.Instrument, e.Reason)
	}
	return fmt.Sprintf("malformed transaction (label %q): %s", e.Label, e.Reason)
}

// Ledger is an append-only, chronologically ordered list of transactions.
type Ledger struct {
	transactions []Transaction
	malformed    []*MalformedTransactionError
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds transactions to the ledger, quarantining malformed records,
// and maintains the chronological order. The sort is stable: transactions at
// the same instant keep their relative order.
func (l *Ledger) Append(txs ...Transaction) {
	for _, tx := range txs {
		if err := tx.Validate(); err != nil {
			l.malformed = append(l.malformed, err.(*MalformedTransactionError))
			continue
		}
		l.transactions = append(l.transactions, tx)
	}
	l.stableSort()
}

func (l *Ledger) stableSort() {
	sort.SliceStable(l.transactions, func(i, j int) bool {
		return l.transactions[i].Time.Before(l.transactions[j].Time)
	})
}

// Len returns the number of well-formed transactions in the ledger.
func (l *Ledger) Len() int { return len(l.transactions) }

// Malformed returns the quarantined records, in ingestion order.
func (l *Ledger) Malformed() []*MalformedTransactionError { return l.malformed }

// Transactions iterates over all transactions in chronological order.
func (l *Ledger) Transactions() iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			if !yield(i, tx) {
				return
			}
		}
	}
}

// InstrumentTransactions iterates over the transactions of one instrument up
// to and including the given date.
func (l *Ledger) InstrumentTransactions(instrument string, max Date) iter.Seq2[int, Transaction] {
	return func(yield func(int, Transaction) bool) {
		for i, tx := range l.transactions {
			if tx.Date().After(max) {
				// the ledger is sorted, safe to stop
				return
			}
			if tx.Instrument != instrument {
				continue
			}
			if !yield(i, tx) {
				return
			}
		}
	}
}

// OldestTransactionDate returns the date of the earliest transaction, or the
// zero Date for an empty ledger.
func (l *Ledger) OldestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[0].Date()
}

// NewestTransactionDate returns the date of the latest transaction, or the
// zero Date for an empty ledger.
func (l *Ledger) NewestTransactionDate() Date {
	if len(l.transactions) == 0 {
		return Date{}
	}
	return l.transactions[len(l.transactions)-1].Date()
}

// LabelCounts tallies the raw labels present in the ledger, keyed by label,
// with the classified action. Used by the label audit.
func (l *Ledger) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, tx := range l.transactions {
		counts[tx.Label]++
	}
	return counts
}
