// Package cmd implements the depot CLI: replaying the brokerage cache into
// holdings, valuing them, and reconciling against the broker's snapshot.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/google/subcommands"

	"github.com/depotlens/depotlens"
	"github.com/depotlens/depotlens/frankfurter"
	"github.com/depotlens/depotlens/pricedb"
	"github.com/depotlens/depotlens/trcache"
)

// Register registers all subcommands.
func Register(c *subcommands.Commander) {
	c.Register(&holdingCmd{}, "reports")
	c.Register(&valueCmd{}, "reports")
	c.Register(&reconcileCmd{}, "reports")
	c.Register(&labelsCmd{}, "reports")

	c.Register(&fmtCmd{}, "ledger")

	c.Register(&assistCmd{}, "assistant")
}

// Commands lists every subcommand, for shell completion.
func Commands() []subcommands.Command {
	return []subcommands.Command{
		&holdingCmd{}, &valueCmd{}, &reconcileCmd{}, &labelsCmd{},
		&fmtCmd{}, &assistCmd{},
	}
}

// As a short-lived CLI the app keeps its shared flags in globals.

var (
	cacheDir   = flag.String("cache-dir", "", "Path to the brokerage cache directory (default ~/.pytr)")
	ledgerFile = flag.String("ledger-file", "", "Path to a JSONL ledger file, used instead of the cached timeline")
	priceDB    = flag.String("price-db", "", "Path to the local price database (SQLite); empty keeps everything in memory")
	verbose    = flag.Bool("v", false, "Enable debug logging")
)

func init() {
	log.SetReportTimestamp(false)
}

func setupLogging() {
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
}

func openCache() (trcache.Dir, error) {
	if *cacheDir != "" {
		return trcache.Open(*cacheDir)
	}
	return trcache.DefaultDir()
}

// LoadLedger reads the transaction history: an explicit JSONL file when
// -ledger-file is set, the cached brokerage timeline otherwise.
func LoadLedger() (*depotlens.Ledger, error) {
	if *ledgerFile != "" {
		f, err := os.Open(*ledgerFile)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("ledger file does not exist, starting empty", "file", *ledgerFile)
				return depotlens.NewLedger(), nil
			}
			return nil, fmt.Errorf("opening ledger file %q: %w", *ledgerFile, err)
		}
		defer f.Close()
		return depotlens.DecodeLedger(f)
	}
	cache, err := openCache()
	if err != nil {
		return nil, err
	}
	return cache.Ledger()
}

// LoadSnapshot reads the broker's portfolio snapshot from the cache.
func LoadSnapshot() (*trcache.Snapshot, error) {
	cache, err := openCache()
	if err != nil {
		return nil, err
	}
	return cache.Snapshot()
}

// NewSources returns the price and rate sources: cached price observations
// and the ECB reference rates, both wrapped in the local price database when
// one is configured.
func NewSources() (depotlens.PriceSource, depotlens.RateSource, error) {
	cache, err := openCache()
	if err != nil {
		return nil, nil, err
	}
	prices, err := cache.Prices()
	if err != nil {
		return nil, nil, err
	}
	rates := frankfurter.New()
	if *priceDB == "" {
		return prices, rates, nil
	}
	db, err := pricedb.Open(*priceDB, pricedb.Options{Quotes: prices, Rates: rates})
	if err != nil {
		return nil, nil, err
	}
	return db, db, nil
}

// printMarkdown renders a markdown document to the terminal; on any render
// failure the raw markdown is printed instead.
func printMarkdown(doc string) {
	out, err := glamour.Render(doc, "auto")
	if err != nil {
		fmt.Print(doc)
		return
	}
	fmt.Print(out)
}

func fail(err error) subcommands.ExitStatus {
	fmt.Fprintln(os.Stderr, "Error:", err)
	return subcommands.ExitFailure
}
