// Package store provides thread-safe in-memory storage for the most recent
// reconciled snapshot. Snapshots are not persisted; the watchlist core holds
// only what the UI currently renders, and every poll cycle replaces the
// whole set.
package store

import (
	"sync"

	"github.com/rewired-gh/stockwatch/internal/models"
)

// Store holds the latest snapshot result and the previous cycle's closing
// view for per-symbol direction highlighting.
type Store struct {
	mu       sync.RWMutex
	latest   models.SnapshotResult
	previous map[string]models.MarketItem // symbol -> item from the prior cycle
}

// New creates an empty store. Before the first SetSnapshot the latest
// result is a zero value with no items.
func New() *Store {
	return &Store{previous: make(map[string]models.MarketItem)}
}

// SetSnapshot replaces the latest result. The items of the outgoing fresh
// result are retained as the previous cycle; fallback and 502 results do
// not overwrite the previous view, so highlighting survives an outage.
func (s *Store) SetSnapshot(result models.SnapshotResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.latest.FromFallback && len(s.latest.Items) > 0 {
		for _, item := range s.latest.Items {
			s.previous[item.Symbol] = item
		}
	}
	s.latest = result
}

// Snapshot returns a copy of the latest result.
func (s *Store) Snapshot() models.SnapshotResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.latest
	out.Items = make([]models.MarketItem, len(s.latest.Items))
	copy(out.Items, s.latest.Items)
	return out
}

// Previous returns the prior cycle's item for a symbol, if one exists.
func (s *Store) Previous(symbol string) (models.MarketItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.previous[symbol]
	return item, ok
}
