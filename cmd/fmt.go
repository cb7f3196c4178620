package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/depotlens/depotlens"
)

// fmtCmd exports the ledger in canonical JSONL form.
type fmtCmd struct {
	output string
}

func (*fmtCmd) Name() string     { return "fmt" }
func (*fmtCmd) Synopsis() string { return "write the ledger in canonical JSONL form" }
func (*fmtCmd) Usage() string {
	return `depot fmt [-o <file>]

  Reads the transaction history, sorts it chronologically, and writes it as
  canonical JSONL with a stable field order, one transaction per line. The
  output is diffable and can be fed back via -ledger-file.

  Writes to stdout by default.
`
}

func (c *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.output, "o", "", "Output file; stdout when empty")
}

func (c *fmtCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	setupLogging()
	ledger, err := LoadLedger()
	if err != nil {
		return fail(err)
	}

	out := os.Stdout
	if c.output != "" {
		out, err = os.Create(c.output)
		if err != nil {
			return fail(err)
		}
		defer out.Close()
	}

	if err := depotlens.EncodeLedger(out, ledger); err != nil {
		return fail(err)
	}
	if n := len(ledger.Malformed()); n > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d malformed records were not exported.\n", n)
	}
	return subcommands.ExitSuccess
}
