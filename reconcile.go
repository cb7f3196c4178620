package depotlens

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Cause is a diagnostic tag explaining why a discrepancy is plausible.
type Cause string

const (
	// CauseShareMismatch: replayed and reported share counts differ beyond
	// the share tolerance.
	CauseShareMismatch Cause = "share-mismatch"
	// CauseValueMismatch: replayed and reported values differ beyond both
	// the absolute and relative thresholds.
	CauseValueMismatch Cause = "value-mismatch"
	// CauseUnclassifiedTransactions: the instrument has transactions whose
	// label the classifier does not know; their shares were not applied.
	CauseUnclassifiedTransactions Cause = "unclassified-transactions"
	// CauseMissingShareFields: the instrument has buys or sells with an
	// absent or zero share quantity.
	CauseMissingShareFields Cause = "missing-share-fields"
	// CauseCurrencyConversionSuspect: a currency conversion stands between
	// the two sides and failed. The quote's currency was unknown or had no
	// rate, or the snapshot's value could not be converted into the
	// reporting currency.
	CauseCurrencyConversionSuspect Cause = "currency-conversion-suspect"
	// CauseExcludedByPolicy: the instrument was excluded from the total by
	// the non-portfolio policy while the broker still reports a value.
	CauseExcludedByPolicy Cause = "excluded-by-policy"
)

// SnapshotPosition is one position of the authoritative snapshot: ground
// truth reported by a system this engine does not control. Snapshots are
// only compared against, never merged into the ledger.
type SnapshotPosition struct {
	Instrument string
	Shares     Quantity
	Value      Money
	Invested   Money
	Name       string
}

// Thresholds configures when a difference becomes a reported mismatch.
type Thresholds struct {
	// ShareTolerance is the maximum absolute share delta treated as equal.
	ShareTolerance decimal.Decimal
	// AbsoluteValue and RelativeValue must BOTH be exceeded for a
	// value-mismatch tag; a large relative delta on a tiny position is
	// noise, and a small relative delta on a huge one is rounding.
	AbsoluteValue decimal.Decimal
	RelativeValue decimal.Decimal
}

// DefaultThresholds matches the tolerances the legacy diagnostics converged
// on: one hundredth of a share, 100 units of reporting currency, 5%.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShareTolerance: decimal.NewFromFloat(0.01),
		AbsoluteValue:  decimal.NewFromInt(100),
		RelativeValue:  decimal.NewFromFloat(0.05),
	}
}

// Discrepancy is the reconciliation result for one instrument.
type Discrepancy struct {
	Instrument     string
	Name           string
	ReplayedShares Quantity
	ReportedShares Quantity
	ShareDelta     Quantity // replayed - reported
	ReplayedValue  Money
	// ReportedValue is the snapshot's value converted into the reporting
	// currency. When no conversion rate exists it keeps the snapshot's own
	// currency and the discrepancy is tagged currency-conversion-suspect.
	ReportedValue Money
	// ValueDelta is replayed - reported, in the reporting currency. It is
	// zero when ReportedValue could not be converted: a delta across two
	// currencies would be a fabricated number.
	ValueDelta Money
	Causes     []Cause
}

// Mismatch reports whether the discrepancy carries any mismatch tag.
func (d Discrepancy) Mismatch() bool { return len(d.Causes) > 0 }

// Has reports whether the discrepancy carries the given cause tag.
func (d Discrepancy) Has(c Cause) bool {
	for _, cause := range d.Causes {
		if cause == c {
			return true
		}
	}
	return false
}

// Report is the outcome of one reconciliation run. A run always completes:
// per-instrument problems become discrepancies and tags, not failures.
type Report struct {
	On       Date
	Currency string
	// Discrepancies covers every instrument present on either side, sorted
	// by descending absolute value delta so the largest divergence comes
	// first. This ordering is part of the contract.
	Discrepancies []Discrepancy
	// Unpriced carries over the valuation's unpriceable holdings.
	Unpriced []UnpricedInstrument
	// Diagnostics carries over the replay diagnostics.
	Diagnostics ReplayDiagnostics
}

// Mismatches returns only the discrepancies carrying at least one cause.
func (r *Report) Mismatches() []Discrepancy {
	var out []Discrepancy
	for _, d := range r.Discrepancies {
		if d.Mismatch() {
			out = append(out, d)
		}
	}
	return out
}

// Reconcile diffs the replayed and valued portfolio against the
// authoritative snapshot.
//
// Every instrument present on either side gets a Discrepancy. Share deltas
// beyond the tolerance are tagged share-mismatch; value deltas beyond both
// thresholds are tagged value-mismatch; then the applicable diagnostic tags
// are attached in priority order so the most actionable explanation comes
// first. The report is sorted by descending absolute value delta.
//
// Snapshot values denominated in another currency are converted into the
// reporting currency through conv before any delta is taken. Relabeling an
// amount into the reporting currency without converting it is exactly the
// defect this engine exists to catch, so when the conversion is impossible
// the value comparison is skipped and tagged instead. A nil conv permits
// identity conversions only.
func Reconcile(h *Holdings, v *Valuation, snapshot []SnapshotPosition, conv *Converter, t Thresholds) *Report {
	report := &Report{
		On:          v.On,
		Currency:    v.Currency,
		Unpriced:    v.Unpriced,
		Diagnostics: h.Diagnostics,
	}

	reported := make(map[string]SnapshotPosition, len(snapshot))
	for _, p := range snapshot {
		reported[p.Instrument] = p
	}

	unpriced := make(map[string]UnpricedInstrument, len(v.Unpriced))
	for _, u := range v.Unpriced {
		unpriced[u.Instrument] = u
	}

	seen := make(map[string]bool)
	consider := func(instrument string) {
		if seen[instrument] {
			return
		}
		seen[instrument] = true

		rep := reported[instrument] // zero value when only replayed
		pos := h.Positions[instrument]

		d := Discrepancy{
			Instrument:     instrument,
			Name:           pos.Name,
			ReplayedShares: pos.Shares,
			ReportedShares: rep.Shares,
			ReplayedValue:  M(0, v.Currency),
			ReportedValue:  M(0, v.Currency),
		}
		if d.Name == "" {
			d.Name = rep.Name
		}

		var inconvertible bool
		if !rep.Value.IsZero() {
			switch {
			case rep.Value.Currency() == v.Currency:
				d.ReportedValue = rep.Value
			case conv == nil:
				d.ReportedValue = rep.Value
				inconvertible = true
			default:
				converted, err := conv.Convert(rep.Value, v.Currency, v.On)
				if err != nil {
					d.ReportedValue = rep.Value
					inconvertible = true
				} else {
					d.ReportedValue = converted
				}
			}
		}

		var excluded bool
		if iv, ok := v.Value(instrument); ok {
			d.ReplayedValue = iv.Value
			excluded = iv.Excluded
		}
		d.ShareDelta = d.ReplayedShares.Sub(d.ReportedShares)
		d.ValueDelta = M(0, v.Currency)
		if !inconvertible {
			d.ValueDelta = d.ReplayedValue.Sub(d.ReportedValue)
		}

		if d.ShareDelta.Abs().Decimal().GreaterThan(t.ShareTolerance) {
			d.Causes = append(d.Causes, CauseShareMismatch)
		}
		if !inconvertible && valueMismatch(d.ValueDelta, d.ReportedValue, t) {
			d.Causes = append(d.Causes, CauseValueMismatch)
		}

		// Probable causes, in priority order.
		if h.Diagnostics.Unclassified[instrument] > 0 {
			d.Causes = append(d.Causes, CauseUnclassifiedTransactions)
		}
		if h.Diagnostics.MissingShares[instrument] > 0 {
			d.Causes = append(d.Causes, CauseMissingShareFields)
		}
		suspect := inconvertible
		if u, ok := unpriced[instrument]; ok {
			suspect = suspect || u.Reason == ReasonMissingRate || u.Reason == ReasonUnknownQuoteCurrency
		}
		if suspect {
			d.Causes = append(d.Causes, CauseCurrencyConversionSuspect)
		}
		if excluded && !rep.Value.IsZero() {
			d.Causes = append(d.Causes, CauseExcludedByPolicy)
		}

		report.Discrepancies = append(report.Discrepancies, d)
	}

	for instrument := range h.Instruments() {
		consider(instrument)
	}
	for _, p := range snapshot {
		consider(p.Instrument)
	}

	sort.SliceStable(report.Discrepancies, func(i, j int) bool {
		a := report.Discrepancies[i].ValueDelta.Abs().Decimal()
		b := report.Discrepancies[j].ValueDelta.Abs().Decimal()
		if !a.Equal(b) {
			return a.GreaterThan(b)
		}
		return report.Discrepancies[i].Instrument < report.Discrepancies[j].Instrument
	})

	return report
}

// valueMismatch applies the double threshold: the delta must exceed the
// absolute limit AND, when a reported value exists, the relative limit.
func valueMismatch(delta Money, reportedValue Money, t Thresholds) bool {
	abs := delta.Abs().Decimal()
	if abs.LessThanOrEqual(t.AbsoluteValue) {
		return false
	}
	if reportedValue.Decimal().IsPositive() {
		ratio := abs.Div(reportedValue.Decimal())
		return ratio.GreaterThan(t.RelativeValue)
	}
	return true
}
