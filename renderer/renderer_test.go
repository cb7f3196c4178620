package renderer

import (
	"strings"
	"testing"

	"github.com/depotlens/depotlens"
)

func holdingsFixture() *depotlens.Holdings {
	return &depotlens.Holdings{
		On: depotlens.MustParseDate("2025-06-30"),
		Positions: map[string]depotlens.Position{
			"US0378331005": {Shares: depotlens.Q(10), Name: "Apple"},
			"DE0007164600": {Shares: depotlens.Q(4), Name: "Siemens"},
		},
		Diagnostics: depotlens.ReplayDiagnostics{
			Unclassified:  map[string]int{"US0378331005": 1},
			MissingShares: map[string]int{"DE0007164600": 2},
			UnknownLabels: map[string]int{"Vorabpauschale": 1},
		},
	}
}

func TestHoldingsMarkdown(t *testing.T) {
	out := HoldingsMarkdown(holdingsFixture())

	for _, want := range []string{
		"# Holdings on 2025-06-30",
		"US0378331005", "Apple",
		"DE0007164600", "Siemens",
		"Vorabpauschale",
		"2 buy or sell transactions without a share count",
		"DE0007164600: 2 transactions without a share count",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HoldingsMarkdown() missing %q:\n%s", want, out)
		}
	}
	// Instruments are listed in lexical order.
	if strings.Index(out, "DE0007164600") > strings.Index(out, "US0378331005") {
		t.Errorf("instruments out of order:\n%s", out)
	}
}

func TestValuationMarkdown(t *testing.T) {
	v := &depotlens.Valuation{
		On:       depotlens.MustParseDate("2025-06-30"),
		Currency: "EUR",
		Values: []depotlens.InstrumentValue{
			{Instrument: "US0378331005", Name: "Apple", Shares: depotlens.Q(10),
				Price: depotlens.M(180, "EUR"), Value: depotlens.M(1800, "EUR")},
			{Instrument: "XF000BTC0017", Name: "Bitcoin", Shares: depotlens.Q(0.5),
				Price: depotlens.M(60000, "EUR"), Value: depotlens.M(30000, "EUR"), Excluded: true},
		},
		Unpriced: []depotlens.UnpricedInstrument{
			{Instrument: "GB0002374006", Shares: depotlens.Q(100), Reason: depotlens.ReasonNoQuote},
		},
		Total: depotlens.M(1800, "EUR"),
	}

	out := ValuationMarkdown(v)
	for _, want := range []string{
		"# Portfolio value on 2025-06-30",
		"Apple",
		"not counted",
		"Unpriced holdings",
		"no quote available",
		"Total",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ValuationMarkdown() missing %q:\n%s", want, out)
		}
	}
}

func TestReportMarkdown(t *testing.T) {
	r := &depotlens.Report{
		On:       depotlens.MustParseDate("2025-06-30"),
		Currency: "EUR",
		Discrepancies: []depotlens.Discrepancy{
			{
				Instrument:     "US0378331005",
				ReplayedShares: depotlens.Q(10),
				ReportedShares: depotlens.Q(12),
				ShareDelta:     depotlens.Q(-2),
				ValueDelta:     depotlens.M(-400, "EUR"),
				ReportedValue:  depotlens.M(2400, "EUR"),
				Causes: []depotlens.Cause{
					depotlens.CauseShareMismatch,
					depotlens.CauseUnclassifiedTransactions,
				},
			},
			{Instrument: "DE0007164600"}, // clean, must not be listed as a mismatch
		},
	}

	out := ReportMarkdown(r)
	for _, want := range []string{
		"# Reconciliation on 2025-06-30",
		"US0378331005",
		string(depotlens.CauseShareMismatch),
		string(depotlens.CauseUnclassifiedTransactions),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("ReportMarkdown() missing %q:\n%s", want, out)
		}
	}

	clean := ReportMarkdown(&depotlens.Report{On: r.On, Currency: "EUR"})
	if !strings.Contains(clean, "agree within") {
		t.Errorf("clean report should say both sides agree:\n%s", clean)
	}
}

func TestLabelsMarkdown(t *testing.T) {
	l := depotlens.NewLedger()
	l.Append(
		depotlens.Transaction{Instrument: "US0378331005", Time: depotlens.MustParseDate("2025-01-10").Time(), Label: "Kauforder", Shares: depotlens.Q(1)},
		depotlens.Transaction{Instrument: "US0378331005", Time: depotlens.MustParseDate("2025-01-11").Time(), Label: "Vorabpauschale"},
	)

	out := LabelsMarkdown(l)
	for _, want := range []string{"Kauforder", "buy", "Vorabpauschale", "unknown"} {
		if !strings.Contains(out, want) {
			t.Errorf("LabelsMarkdown() missing %q:\n%s", want, out)
		}
	}
}
