// Command depot reconstructs a brokerage portfolio from its transaction
// history and reconciles it against the broker's own numbers.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"

	"github.com/depotlens/depotlens/cmd"
)

func main() {
	completion()

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "help")
	commander.Register(commander.FlagsCommand(), "help")
	commander.Register(commander.CommandsCommand(), "help")
	cmd.Register(commander)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// completion installs shell completion; it exits the process when invoked by
// the shell's completion machinery.
func completion() {
	sub := make(map[string]*complete.Command)
	for _, c := range cmd.Commands() {
		sub[c.Name()] = &complete.Command{}
	}
	root := &complete.Command{
		Sub: sub,
		Flags: map[string]complete.Predictor{
			"cache-dir":   predict.Dirs("*"),
			"ledger-file": predict.Files("*.jsonl"),
			"price-db":    predict.Files("*.db"),
			"v":           predict.Nothing,
		},
	}
	root.Complete(path.Base(os.Args[0]))
}
