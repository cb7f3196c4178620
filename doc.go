// Package depotlens reconstructs a brokerage portfolio from its append-only
// transaction ledger and reconciles the result against the positions the
// broker itself reports.
//
// The engine is a pipeline of pure functions over explicit inputs:
//   - Classification: raw, locale-specific transaction labels are mapped to a
//     closed taxonomy of semantic actions (buy, sell, split, dividend, ...).
//   - Replay: the classified ledger is folded into per-instrument share
//     balances as of an arbitrary cutoff date.
//   - Valuation: replayed holdings are priced through an injected price
//     source and normalized into a single reporting currency.
//   - Reconciliation: the derived figures are diffed against an authoritative
//     snapshot, and every discrepancy is annotated with its probable causes.
//
// Price lookups, FX rates, and persistence are capabilities injected by the
// caller (see the trcache, frankfurter, and pricedb packages); the core holds
// no filesystem or process-wide state. A reconciliation run always completes
// and returns a report: per-instrument failures are isolated and reported,
// never papered over with plausible-looking numbers.
//
// This package is the foundation of the `depot` command-line tool.
package depotlens
