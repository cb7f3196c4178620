package cmd

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/depotlens/depotlens/renderer"
)

// labelsCmd audits the raw transaction labels in the ledger.
type labelsCmd struct{}

func (*labelsCmd) Name() string     { return "labels" }
func (*labelsCmd) Synopsis() string { return "list raw transaction labels and their classification" }
func (*labelsCmd) Usage() string {
	return `depot labels

  Lists every raw transaction label present in the ledger with its
  classification and count. Labels classified as unknown do not contribute
  to replayed share balances; this is the place to spot them.
`
}

func (*labelsCmd) SetFlags(_ *flag.FlagSet) {}

func (c *labelsCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	setupLogging()
	ledger, err := LoadLedger()
	if err != nil {
		return fail(err)
	}
	printMarkdown(renderer.LabelsMarkdown(ledger))
	return subcommands.ExitSuccess
}
