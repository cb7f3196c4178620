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

// holdingCmd holds the flags for the 'holding' subcommand.
type holdingCmd struct {
	date string
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display replayed holdings for a specific date" }
func (*holdingCmd) Usage() string {
	return `depot holding [-d <date>]

  Replays the transaction history up to the given date and displays the
  resulting share balances, with diagnostics about records the replay had
  to skip.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", depotlens.Today().String(), "Date for the holdings report (YYYY-MM-DD)")
}

func (c *holdingCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	holdings := depotlens.Replay(ledger, on)
	printMarkdown(renderer.HoldingsMarkdown(holdings))
	return subcommands.ExitSuccess
}
