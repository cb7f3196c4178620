package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"google.golang.org/genai"

	"github.com/depotlens/depotlens"
	"github.com/depotlens/depotlens/agent"
	"github.com/depotlens/depotlens/renderer"
)

// assistCmd starts the interactive reconciliation assistant.
type assistCmd struct {
	currency string
}

func (*assistCmd) Name() string     { return "assist" }
func (*assistCmd) Synopsis() string { return "start an interactive session with the AI assistant" }
func (*assistCmd) Usage() string {
	return `depot assist [-c <currency>] [question...]

  Starts an interactive session with an assistant that can replay the
  ledger, value the portfolio, and read the reconciliation report to
  explain where the numbers diverge and why.
`
}

func (c *assistCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.currency, "c", "EUR", "Reporting currency")
}

func (c *assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	setupLogging()
	initialPrompt := ""
	if f.NArg() > 0 {
		initialPrompt = strings.Join(f.Args(), " ")
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing the model client:", err)
		return subcommands.ExitFailure
	}

	analyst := agent.NewAnalyst(c.workspace())
	a := agent.New(os.Stdout, os.Stdin, analyst)

	if err := a.Run(ctx, client, initialPrompt); err != nil {
		fmt.Fprintln(os.Stderr, "Assistant failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// workspace exposes the engine's reports to the assistant's tools.
func (c *assistCmd) workspace() agent.Workspace {
	return agent.Workspace{
		Holdings: func(on depotlens.Date) (string, error) {
			ledger, err := LoadLedger()
			if err != nil {
				return "", err
			}
			return renderer.HoldingsMarkdown(depotlens.Replay(ledger, on)), nil
		},
		Valuation: func(on depotlens.Date) (string, error) {
			valuation, err := c.value(on)
			if err != nil {
				return "", err
			}
			return renderer.ValuationMarkdown(valuation), nil
		},
		Reconciliation: func(on depotlens.Date) (string, error) {
			ledger, err := LoadLedger()
			if err != nil {
				return "", err
			}
			snapshot, err := LoadSnapshot()
			if err != nil {
				return "", err
			}
			prices, rates, err := NewSources()
			if err != nil {
				return "", err
			}
			holdings := depotlens.Replay(ledger, on)
			conv := depotlens.NewConverter(rates)
			valuation := depotlens.ValuePortfolio(holdings, prices, conv, c.currency, nil)
			report := depotlens.Reconcile(holdings, valuation, snapshot.Positions, conv, depotlens.DefaultThresholds())
			return renderer.ReportMarkdown(report), nil
		},
		Labels: func() (string, error) {
			ledger, err := LoadLedger()
			if err != nil {
				return "", err
			}
			return renderer.LabelsMarkdown(ledger), nil
		},
	}
}

func (c *assistCmd) value(on depotlens.Date) (*depotlens.Valuation, error) {
	ledger, err := LoadLedger()
	if err != nil {
		return nil, err
	}
	return c.valueHoldings(depotlens.Replay(ledger, on))
}

func (c *assistCmd) valueHoldings(holdings *depotlens.Holdings) (*depotlens.Valuation, error) {
	prices, rates, err := NewSources()
	if err != nil {
		return nil, err
	}
	return depotlens.ValuePortfolio(holdings, prices, depotlens.NewConverter(rates), c.currency, nil), nil
}
