// Package models defines the core domain entities for the stockwatch application:
// canonical market items, snapshot results with provenance flags, comment records,
// and vote aggregates. All models include built-in validation to ensure data
// integrity throughout the application.
//
// Terminology:
//   - MarketItem: the canonical, fully-typed record produced by normalization,
//     safe for direct display. Price and percent fields are always strings so
//     downstream rendering never branches on type.
//   - Snapshot: one batched read of current price/percent-change for a set of
//     symbols, tagged with exactly one provenance state (fresh, fallback, or
//     stale cache).
package models

import (
	"errors"
	"time"
)

// Placeholder is the display value used when a field cannot be recovered
// from upstream data.
const Placeholder = "—"

// MarketItem is the canonical record for one tracked symbol. It is immutable
// for the duration of a fetch cycle.
type MarketItem struct {
	Symbol        string   `json:"symbol"`         // Uppercase, trimmed; "—" if unrecoverable
	Name          string   `json:"name"`           // Display name; falls back to Symbol
	LastPrice     string   `json:"last_price"`     // Formatted decimal or "—"
	PercentChange string   `json:"percent_change"` // Formatted decimal, never empty
	LastClose     *float64 `json:"last_close,omitempty"`
	Image         string   `json:"image,omitempty"`
	Summary       string   `json:"summary,omitempty"`
}

// Validate checks the canonical-item invariants: symbol, price, and percent
// fields must always carry a non-empty value.
func (m *MarketItem) Validate() error {
	if m.Symbol == "" {
		return errors.New("symbol must not be empty")
	}
	if m.Name == "" {
		return errors.New("name must not be empty")
	}
	if m.LastPrice == "" {
		return errors.New("last price must not be empty")
	}
	if m.PercentChange == "" {
		return errors.New("percent change must not be empty")
	}
	return nil
}

// SnapshotResult is the outcome of one batched snapshot fetch. Failure states
// are encoded in flags rather than errors; the fetcher is a total function.
type SnapshotResult struct {
	Items          []MarketItem `json:"items"`
	FromFallback   bool         `json:"from_fallback"`
	Error502       bool         `json:"error_502"`
	FromStaleCache bool         `json:"from_stale_cache"`
	FetchedAt      time.Time    `json:"fetched_at"`
}

// Validate checks the provenance invariants: at most one of fallback and
// stale-cache may hold, and a 502 classification implies an empty fallback
// result.
func (r *SnapshotResult) Validate() error {
	if r.FromFallback && r.FromStaleCache {
		return errors.New("fallback and stale-cache provenance are mutually exclusive")
	}
	if r.Error502 {
		if !r.FromFallback {
			return errors.New("502 classification requires the fallback flag")
		}
		if len(r.Items) != 0 {
			return errors.New("502 classification requires an empty item list")
		}
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
