package depotlens

import (
	"iter"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// closedPositionEpsilon guards against floating-point residue carried in by
// the source data: repeated fractional buys and sells of a fully closed
// position can leave a dust balance. Anything at or below this absolute
// share count is treated as a closed position and dropped.
var closedPositionEpsilon = decimal.NewFromFloat(1e-4)

// Position is the replayed balance of one instrument as of a date. It is
// never persisted: it is recomputed from the ledger on every query.
type Position struct {
	Shares Quantity
	Name   string // last-seen display label for the instrument
}

// ReplayDiagnostics records everything the replayer had to skip or guess
// about, so reconciliation can explain gaps instead of hiding them.
type ReplayDiagnostics struct {
	// Unclassified counts, per instrument, the transactions whose label the
	// classifier does not know. Their shares were NOT applied.
	Unclassified map[string]int
	// MissingShares counts, per instrument, the buy/sell-like transactions
	// carrying a zero or absent share quantity. They contributed zero.
	MissingShares map[string]int
	// UnknownLabels tallies the distinct unrecognized labels encountered.
	UnknownLabels map[string]int
	// Malformed is the number of quarantined records in the source ledger.
	Malformed int
}

// UnclassifiedTotal returns the total count of unclassified transactions.
func (d ReplayDiagnostics) UnclassifiedTotal() int {
	var n int
	for _, c := range d.Unclassified {
		n += c
	}
	return n
}

// MissingSharesTotal returns the total count of buy/sell-like transactions
// that carried no share quantity.
func (d ReplayDiagnostics) MissingSharesTotal() int {
	var n int
	for _, c := range d.MissingShares {
		n += c
	}
	return n
}

// Holdings is the result of replaying a ledger up to a cutoff date.
type Holdings struct {
	On          Date
	Positions   map[string]Position
	Diagnostics ReplayDiagnostics
}

// Instruments iterates over held instrument identifiers in lexical order.
func (h *Holdings) Instruments() iter.Seq[string] {
	return func(yield func(string) bool) {
		ids := slices.Collect(maps.Keys(h.Positions))
		slices.Sort(ids)
		for _, id := range ids {
			if !yield(id) {
				return
			}
		}
	}
}

// Shares returns the replayed share balance for an instrument, zero when the
// instrument is not held.
func (h *Holdings) Shares(instrument string) Quantity {
	return h.Positions[instrument].Shares
}

// Replay folds the ledger into per-instrument share balances as of the
// cutoff date.
//
// Replay is a pure function of the ledger: it never mutates its input and
// replaying the same ledger twice yields bit-identical results. Transactions
// after the cutoff are ignored, which is what makes point-in-time queries
// ("what did I hold on date X") and reconciliation against historical
// snapshots possible.
func Replay(l *Ledger, cutoff Date) *Holdings {
	h := &Holdings{
		On:        cutoff,
		Positions: make(map[string]Position),
		Diagnostics: ReplayDiagnostics{
			Unclassified:  make(map[string]int),
			MissingShares: make(map[string]int),
			UnknownLabels: make(map[string]int),
			Malformed:     len(l.Malformed()),
		},
	}

	for _, tx := range l.Transactions() {
		if tx.Date().After(cutoff) {
			// the ledger is sorted, safe to stop
			break
		}

		pos := h.Positions[tx.Instrument]
		if tx.Name != "" {
			pos.Name = tx.Name
		}

		switch action := tx.Action(); {
		case action == ActionUnknown:
			// Unknown labels must not contribute to share totals.
			h.Diagnostics.Unclassified[tx.Instrument]++
			h.Diagnostics.UnknownLabels[tx.Label]++
		case action.ShareNeutral():
			// dividends: cash only, position untouched
		case tx.Shares.IsZero():
			// A buy or sell whose share count the source did not provide.
			// It contributes zero but is flagged: this is a prime cause of
			// share mismatches against the broker's own numbers.
			h.Diagnostics.MissingShares[tx.Instrument]++
		case action.AddsShares():
			pos.Shares = pos.Shares.Add(tx.Shares.Abs())
		case action.SubtractsShares():
			pos.Shares = pos.Shares.Sub(tx.Shares.Abs())
		}

		h.Positions[tx.Instrument] = pos
	}

	// Drop fully-closed positions (dust below the epsilon).
	for id, pos := range h.Positions {
		if pos.Shares.Abs().Decimal().LessThanOrEqual(closedPositionEpsilon) {
			delete(h.Positions, id)
		}
	}

	return h
}
