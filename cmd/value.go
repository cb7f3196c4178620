package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/depotlens/depotlens"
	"github.com/depotlens/depotlens/renderer"
)

// valueCmd holds the flags for the 'value' subcommand.
type valueCmd struct {
	date     string
	currency string
	all      bool
}

func (*valueCmd) Name() string     { return "value" }
func (*valueCmd) Synopsis() string { return "value the replayed holdings in a reporting currency" }
func (*valueCmd) Usage() string {
	return `depot value [-d <date>] [-c <currency>] [-all]

  Replays the transaction history up to the given date, prices every holding
  in the reporting currency, and displays the per-instrument values and the
  total. Holdings that cannot be priced or converted are listed separately,
  never silently valued at zero.
`
}

func (c *valueCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", depotlens.Today().String(), "Date for the valuation (YYYY-MM-DD)")
	f.StringVar(&c.currency, "c", "EUR", "Reporting currency for market values")
	f.BoolVar(&c.all, "all", false, "Count informational instruments in the total as well")
}

func (c *valueCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	prices, rates, err := NewSources()
	if err != nil {
		return fail(err)
	}

	var exclude depotlens.ExcludeFunc
	if c.all {
		exclude = depotlens.ExcludeNone()
	}

	holdings := depotlens.Replay(ledger, on)
	valuation := depotlens.ValuePortfolio(holdings, prices, depotlens.NewConverter(rates), c.currency, exclude)

	printMarkdown(renderer.ValuationMarkdown(valuation))
	return subcommands.ExitSuccess
}
