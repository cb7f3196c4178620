// Package trcache reads the local cache files that the pytr tooling keeps
// under ~/.pytr: the raw timeline export, the broker's portfolio snapshot,
// and the accumulated price observations.
//
// The caches are treated as read-only input. In particular the timeline
// export is ingested as-is: records keep their raw German subtitles as
// labels, classification happens downstream.
package trcache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/charmbracelet/log"

	"github.com/depotlens/depotlens"
)

const (
	transactionsFile = "transactions_cache.json"
	portfolioFile    = "portfolio_cache.json"
	pricesFile       = "price_cache.json"
)

// snapshotCurrency is the denomination of the broker snapshot. Trade
// Republic accounts are EUR accounts; the snapshot stores bare numbers in
// that currency.
const snapshotCurrency = "EUR"

// isinFromIcon extracts the instrument identifier from a timeline icon path
// like "logos/IE00B5BMR087/v2". The icon is the only reliable ISIN carrier
// in the timeline export.
var isinFromIcon = regexp.MustCompile(`logos/([A-Z0-9]{12})`)

// Dir is an opened cache directory.
type Dir struct {
	path string
}

// Open returns the cache directory at path. It fails when the directory does
// not exist, so a typo'd path cannot silently read an empty portfolio.
func Open(path string) (Dir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Dir{}, fmt.Errorf("opening cache dir: %w", err)
	}
	if !info.IsDir() {
		return Dir{}, fmt.Errorf("opening cache dir: %s is not a directory", path)
	}
	return Dir{path: path}, nil
}

// DefaultDir opens ~/.pytr, the directory the pytr tooling writes to.
func DefaultDir() (Dir, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Dir{}, err
	}
	return Open(filepath.Join(home, ".pytr"))
}

// Path returns the directory path.
func (d Dir) Path() string { return d.path }

// jtransaction is one raw timeline record as cached by pytr.
type jtransaction struct {
	Title     string             `json:"title"`
	Subtitle  string             `json:"subtitle"`
	Icon      string             `json:"icon"`
	Timestamp string             `json:"timestamp"`
	Amount    json.RawMessage    `json:"amount"`
	Shares    depotlens.Quantity `json:"shares"`
}

// amount decodes the amount field, which older exports store as a bare
// number and newer ones as {"value": ..., "currency": ...}.
func (j jtransaction) amount() depotlens.Money {
	if len(j.Amount) == 0 {
		return depotlens.Money{}
	}
	var obj struct {
		Value    float64 `json:"value"`
		Currency string  `json:"currency"`
	}
	if err := json.Unmarshal(j.Amount, &obj); err == nil && obj.Currency != "" {
		return depotlens.M(obj.Value, obj.Currency)
	}
	var bare float64
	if err := json.Unmarshal(j.Amount, &bare); err == nil {
		// Legacy bare amounts carry no currency; the value is kept but the
		// currency stays empty rather than guessed.
		return depotlens.M(bare, "")
	}
	return depotlens.Money{}
}

var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05.000-0700",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Ledger reads transactions_cache.json into a ledger. Timeline records with
// no extractable ISIN or no parseable timestamp end up quarantined on the
// ledger, counted but never applied.
func (d Dir) Ledger() (*depotlens.Ledger, error) {
	content, err := os.ReadFile(filepath.Join(d.path, transactionsFile))
	if err != nil {
		return nil, fmt.Errorf("reading transactions cache: %w", err)
	}
	var records []jtransaction
	if err := json.Unmarshal(content, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", transactionsFile, err)
	}

	ledger := depotlens.NewLedger()
	for _, rec := range records {
		tx := depotlens.Transaction{
			Label:  rec.Subtitle,
			Name:   rec.Title,
			Shares: rec.Shares,
			Amount: rec.amount(),
		}
		if m := isinFromIcon.FindStringSubmatch(rec.Icon); m != nil {
			tx.Instrument = m[1]
		}
		if t, ok := parseTimestamp(rec.Timestamp); ok {
			tx.Time = t
		}
		ledger.Append(tx)
	}
	if n := len(ledger.Malformed()); n > 0 {
		log.Warn("timeline records quarantined", "count", n, "file", transactionsFile)
	}
	return ledger, nil
}

// Snapshot is the broker-reported portfolio state: the authoritative numbers
// reconciliation compares against.
type Snapshot struct {
	Positions []depotlens.SnapshotPosition
	Cash      depotlens.Money
}

// Snapshot reads portfolio_cache.json.
func (d Dir) Snapshot() (*Snapshot, error) {
	content, err := os.ReadFile(filepath.Join(d.path, portfolioFile))
	if err != nil {
		return nil, fmt.Errorf("reading portfolio cache: %w", err)
	}
	var cache struct {
		Data struct {
			Positions []struct {
				ISIN           string  `json:"isin"`
				Name           string  `json:"name"`
				Quantity       float64 `json:"quantity"`
				Value          float64 `json:"value"`
				Invested       float64 `json:"invested"`
				InstrumentType string  `json:"instrumentType"`
			} `json:"positions"`
			Cash float64 `json:"cash"`
		} `json:"data"`
	}
	if err := json.Unmarshal(content, &cache); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", portfolioFile, err)
	}

	snap := &Snapshot{Cash: depotlens.M(cache.Data.Cash, snapshotCurrency)}
	for _, p := range cache.Data.Positions {
		snap.Positions = append(snap.Positions, depotlens.SnapshotPosition{
			Instrument: p.ISIN,
			Name:       p.Name,
			Shares:     depotlens.Q(p.Quantity),
			Value:      depotlens.M(p.Value, snapshotCurrency),
			Invested:   depotlens.M(p.Invested, snapshotCurrency),
		})
	}
	return snap, nil
}

// jprice is one cached price observation. Legacy entries are bare numbers
// with no currency; newer entries record the quote currency.
type jprice struct {
	Price    float64
	Currency string
}

func (p *jprice) UnmarshalJSON(data []byte) error {
	var bare float64
	if err := json.Unmarshal(data, &bare); err == nil {
		p.Price, p.Currency = bare, ""
		return nil
	}
	var obj struct {
		Price    float64 `json:"price"`
		Currency string  `json:"currency"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Price, p.Currency = obj.Price, obj.Currency
	return nil
}

// prices is a PriceSource over price_cache.json: {isin: {date: price}}.
type prices map[string]map[string]jprice

// Prices reads price_cache.json into a PriceSource. Lookups resolve to the
// most recent observation on or before the requested date. Legacy entries
// with no recorded currency yield quotes with an empty currency, which the
// valuation refuses to guess about.
func (d Dir) Prices() (depotlens.PriceSource, error) {
	content, err := os.ReadFile(filepath.Join(d.path, pricesFile))
	if err != nil {
		return nil, fmt.Errorf("reading price cache: %w", err)
	}
	var p prices
	if err := json.Unmarshal(content, &p); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", pricesFile, err)
	}
	return p, nil
}

func (p prices) Price(instrument string, on depotlens.Date) (depotlens.Quote, error) {
	byDate, ok := p[instrument]
	if !ok {
		return depotlens.Quote{}, depotlens.ErrNotAvailable
	}

	var bestDay depotlens.Date
	var best jprice
	found := false
	for day, obs := range byDate {
		parsed, err := depotlens.ParseDate(day)
		if err != nil {
			continue
		}
		if parsed.After(on) {
			continue
		}
		if !found || parsed.After(bestDay) {
			bestDay, best, found = parsed, obs, true
		}
	}
	if !found {
		return depotlens.Quote{}, depotlens.ErrNotAvailable
	}
	return depotlens.Quote{
		Instrument: instrument,
		Price:      depotlens.Q(best.Price),
		Currency:   best.Currency,
		On:         bestDay,
	}, nil
}
