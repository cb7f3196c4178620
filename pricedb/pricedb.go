// Package pricedb persists price and rate observations in a local SQLite
// database and serves them as a read-through cache in front of slower
// sources: a hit answers from disk, a miss consults the upstream source and
// stores the answer for the next run.
//
// Historical quotes and FX rates never change once published, so cached rows
// have no expiry.
package pricedb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/depotlens/depotlens"
)

// DB is an opened price database. It implements both PriceSource and
// RateSource, each optionally backed by an upstream source for misses.
type DB struct {
	db     *sql.DB
	quotes depotlens.PriceSource
	rates  depotlens.RateSource
}

// Options configures Open.
type Options struct {
	// Quotes answers quote misses; nil makes the database quote-read-only.
	Quotes depotlens.PriceSource
	// Rates answers rate misses; nil makes the database rate-read-only.
	Rates depotlens.RateSource
}

// Open opens or creates the database at path.
func Open(path string, opts Options) (*DB, error) {
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", clean)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db, quotes: opts.Quotes, rates: opts.Rates}, nil
}

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quotes (
			instrument TEXT NOT NULL,
			day TEXT NOT NULL,
			price TEXT NOT NULL,
			currency TEXT NOT NULL,
			PRIMARY KEY (instrument, day)
		);
		CREATE TABLE IF NOT EXISTS fx_rates (
			from_currency TEXT NOT NULL,
			to_currency TEXT NOT NULL,
			day TEXT NOT NULL,
			rate TEXT NOT NULL,
			PRIMARY KEY (from_currency, to_currency, day)
		);
	`)
	return err
}

// Price returns the stored quote for the instrument and day, consulting the
// upstream source on a miss and persisting its answer. Prices are stored as
// decimal strings, never floats.
func (d *DB) Price(instrument string, on depotlens.Date) (depotlens.Quote, error) {
	row := d.db.QueryRow(
		"SELECT price, currency FROM quotes WHERE instrument = ? AND day = ?",
		instrument, on.String())
	var price, currency string
	switch err := row.Scan(&price, &currency); {
	case err == nil:
		q, err := depotlens.ParseQuantity(price)
		if err != nil {
			return depotlens.Quote{}, fmt.Errorf("corrupt price for %s on %s: %w", instrument, on, err)
		}
		return depotlens.Quote{Instrument: instrument, Price: q, Currency: currency, On: on}, nil
	case errors.Is(err, sql.ErrNoRows):
		// fall through to the upstream
	default:
		return depotlens.Quote{}, fmt.Errorf("querying quote: %w", err)
	}

	if d.quotes == nil {
		return depotlens.Quote{}, depotlens.ErrNotAvailable
	}
	quote, err := d.quotes.Price(instrument, on)
	if err != nil {
		return depotlens.Quote{}, err
	}
	if err := d.putQuote(quote); err != nil {
		return depotlens.Quote{}, err
	}
	return quote, nil
}

func (d *DB) putQuote(q depotlens.Quote) error {
	_, err := d.db.Exec(`
		INSERT INTO quotes (instrument, day, price, currency)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(instrument, day) DO UPDATE SET
			price = excluded.price,
			currency = excluded.currency
	`, q.Instrument, q.On.String(), q.Price.String(), q.Currency)
	if err != nil {
		return fmt.Errorf("storing quote for %s: %w", q.Instrument, err)
	}
	return nil
}

// Rate returns the stored rate for the pair and day, consulting the upstream
// source on a miss and persisting its answer.
func (d *DB) Rate(from, to string, on depotlens.Date) (depotlens.Quantity, error) {
	row := d.db.QueryRow(
		"SELECT rate FROM fx_rates WHERE from_currency = ? AND to_currency = ? AND day = ?",
		from, to, on.String())
	var rate string
	switch err := row.Scan(&rate); {
	case err == nil:
		q, err := depotlens.ParseQuantity(rate)
		if err != nil {
			return depotlens.Quantity{}, fmt.Errorf("corrupt rate %s/%s on %s: %w", from, to, on, err)
		}
		return q, nil
	case errors.Is(err, sql.ErrNoRows):
		// fall through to the upstream
	default:
		return depotlens.Quantity{}, fmt.Errorf("querying rate: %w", err)
	}

	if d.rates == nil {
		return depotlens.Quantity{}, depotlens.ErrNotAvailable
	}
	q, err := d.rates.Rate(from, to, on)
	if err != nil {
		return depotlens.Quantity{}, err
	}
	if err := d.putRate(from, to, on, q); err != nil {
		return depotlens.Quantity{}, err
	}
	return q, nil
}

func (d *DB) putRate(from, to string, on depotlens.Date, rate depotlens.Quantity) error {
	_, err := d.db.Exec(`
		INSERT INTO fx_rates (from_currency, to_currency, day, rate)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(from_currency, to_currency, day) DO UPDATE SET
			rate = excluded.rate
	`, from, to, on.String(), rate.String())
	if err != nil {
		return fmt.Errorf("storing rate %s/%s: %w", from, to, err)
	}
	return nil
}

var (
	_ depotlens.PriceSource = (*DB)(nil)
	_ depotlens.RateSource  = (*DB)(nil)
)
