package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"github.com/depotlens/depotlens"
	"github.com/depotlens/depotlens/renderer"
)

// reconcileCmd holds the flags for the 'reconcile' subcommand.
type reconcileCmd struct {
	date     string
	currency string
	shareTol float64
	absTol   float64
	relTol   float64
}

func (*reconcileCmd) Name() string { return "reconcile" }
func (*reconcileCmd) Synopsis() string {
	return "compare the replayed portfolio against the broker snapshot"
}
func (*reconcileCmd) Usage() string {
	return `depot reconcile [-d <date>] [-c <currency>] [-share-tol <n>] [-abs-tol <n>] [-rel-tol <n>]

  Replays and values the portfolio, then compares it against the broker's
  own snapshot. Discrepancies are listed largest first, each with the
  probable causes: unrecognized transaction labels, missing share counts,
  failed currency conversions, or instruments excluded by policy.
`
}

func (c *reconcileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", depotlens.Today().String(), "Date for the reconciliation (YYYY-MM-DD)")
	f.StringVar(&c.currency, "c", "EUR", "Reporting currency")
	f.Float64Var(&c.shareTol, "share-tol", 0.01, "Maximum share delta treated as equal")
	f.Float64Var(&c.absTol, "abs-tol", 100, "Absolute value delta threshold, in the reporting currency")
	f.Float64Var(&c.relTol, "rel-tol", 0.05, "Relative value delta threshold")
}

func (c *reconcileCmd) thresholds() depotlens.Thresholds {
	return depotlens.Thresholds{
		ShareTolerance: decimal.NewFromFloat(c.shareTol),
		AbsoluteValue:  decimal.NewFromFloat(c.absTol),
		RelativeValue:  decimal.NewFromFloat(c.relTol),
	}
}

func (c *reconcileCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	setupLogging()
	on, err := depotlens.ParseDate(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}

	ledger, err := LoadLedger()
	if err != nil {
		return fail(err)
	}
	snapshot, err := LoadSnapshot()
	if err != nil {
		return fail(err)
	}
	prices, rates, err := NewSources()
	if err != nil {
		return fail(err)
	}

	holdings := depotlens.Replay(ledger, on)
	conv := depotlens.NewConverter(rates)
	valuation := depotlens.ValuePortfolio(holdings, prices, conv, c.currency, nil)

	report := depotlens.Reconcile(holdings, valuation, snapshot.Positions, conv, c.thresholds())
	printMarkdown(renderer.ReportMarkdown(report))
	return subcommands.ExitSuccess
}
