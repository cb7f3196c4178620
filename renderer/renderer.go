// Package renderer turns engine results into markdown documents for the CLI.
// Rendering is presentation only: every number is computed upstream and
// printed as-is.
package renderer

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	md "github.com/nao1215/markdown"

	"github.com/depotlens/depotlens"
)

// HoldingsMarkdown renders replayed holdings as a markdown document.
func HoldingsMarkdown(h *depotlens.Holdings) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Holdings on %s", h.On))

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight},
		Header:    []string{"Instrument", "Name", "Shares"},
	}
	for instrument := range h.Instruments() {
		pos := h.Positions[instrument]
		table.Rows = append(table.Rows, []string{instrument, pos.Name, pos.Shares.String()})
	}
	doc.Table(table)

	diagnostics(doc, h.Diagnostics)
	return doc.String()
}

// ValuationMarkdown renders a valuation as a markdown document.
func ValuationMarkdown(v *depotlens.Valuation) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Portfolio value on %s", v.On))

	table := md.TableSet{
		Alignment: []md.TableAlignment{
			md.AlignLeft, md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight,
		},
		Header: []string{"Instrument", "Name", "Shares", "Price", "Value"},
	}
	for _, iv := range v.Values {
		name := iv.Name
		if iv.Excluded {
			name += " (not counted)"
		}
		table.Rows = append(table.Rows, []string{
			iv.Instrument, name, iv.Shares.String(), iv.Price.String(), iv.Value.String(),
		})
	}
	table.Rows = append(table.Rows, []string{"", md.Bold("Total"), "", "", md.Bold(v.Total.String())})
	doc.Table(table)

	unpriced(doc, v.Unpriced)
	return doc.String()
}

// ReportMarkdown renders a reconciliation report as a markdown document.
// Discrepancies appear in the report's own order: largest divergence first.
func ReportMarkdown(r *depotlens.Report) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1(fmt.Sprintf("Reconciliation on %s", r.On))

	mismatches := r.Mismatches()
	if len(mismatches) == 0 {
		doc.PlainText("Ledger and broker snapshot agree within the configured tolerances.")
	} else {
		table := md.TableSet{
			Alignment: []md.TableAlignment{
				md.AlignLeft, md.AlignRight, md.AlignRight, md.AlignRight, md.AlignLeft,
			},
			Header: []string{"Instrument", "Shares Δ", "Value Δ", "Reported", "Causes"},
		}
		for _, d := range mismatches {
			table.Rows = append(table.Rows, []string{
				d.Instrument,
				d.ShareDelta.String(),
				d.ValueDelta.SignedString(),
				d.ReportedValue.String(),
				causes(d.Causes),
			})
		}
		doc.Table(table)
	}

	unpriced(doc, r.Unpriced)
	diagnostics(doc, r.Diagnostics)
	return doc.String()
}

// LabelsMarkdown renders the ledger's label census with each label's
// classification, so unclassified labels stand out.
func LabelsMarkdown(l *depotlens.Ledger) string {
	var buf bytes.Buffer
	doc := md.NewMarkdown(&buf)

	doc.H1("Transaction labels")

	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignLeft, md.AlignRight},
		Header:    []string{"Label", "Action", "Count"},
	}
	counts := l.LabelCounts()
	for _, label := range sortedKeys(counts) {
		action := depotlens.Classify(label)
		name := action.String()
		if action == depotlens.ActionUnknown {
			name = md.Bold(name)
		}
		table.Rows = append(table.Rows, []string{label, name, fmt.Sprint(counts[label])})
	}
	doc.Table(table)
	return doc.String()
}

func causes(cs []depotlens.Cause) string {
	var b bytes.Buffer
	for i, c := range cs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(string(c))
	}
	return b.String()
}

func unpriced(doc *md.Markdown, list []depotlens.UnpricedInstrument) {
	if len(list) == 0 {
		return
	}
	doc.H2("Unpriced holdings")
	table := md.TableSet{
		Alignment: []md.TableAlignment{md.AlignLeft, md.AlignRight, md.AlignLeft},
		Header:    []string{"Instrument", "Shares", "Reason"},
	}
	for _, u := range list {
		table.Rows = append(table.Rows, []string{u.Instrument, u.Shares.String(), u.Explain()})
	}
	doc.Table(table)
}

func diagnostics(doc *md.Markdown, d depotlens.ReplayDiagnostics) {
	if d.UnclassifiedTotal() == 0 && d.MissingSharesTotal() == 0 && d.Malformed == 0 {
		return
	}
	doc.H2("Replay diagnostics")
	var lines []string
	if n := d.UnclassifiedTotal(); n > 0 {
		lines = append(lines, fmt.Sprintf("%d transactions with unrecognized labels were not applied", n))
		for _, label := range sortedKeys(d.UnknownLabels) {
			lines = append(lines, fmt.Sprintf("unknown label %q seen %d times", label, d.UnknownLabels[label]))
		}
	}
	if n := d.MissingSharesTotal(); n > 0 {
		lines = append(lines, fmt.Sprintf("%d buy or sell transactions without a share count contributed zero", n))
		for _, id := range sortedKeys(d.MissingShares) {
			lines = append(lines, fmt.Sprintf("%s: %d transactions without a share count", id, d.MissingShares[id]))
		}
	}
	if d.Malformed > 0 {
		lines = append(lines, fmt.Sprintf("%d malformed records were quarantined", d.Malformed))
	}
	doc.BulletList(lines...)
}

func sortedKeys(m map[string]int) []string {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}
