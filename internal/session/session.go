// Package session coordinates the per-symbol detail view: the comment store,
// its realtime stream, and the vote aggregator all follow the currently
// selected symbol. Switching symbols tears the old subscription down before
// the new one starts, and late events from a torn-down stream are discarded.
package session

import (
	"context"
	"sync"

	"github.com/rewired-gh/stockwatch/internal/comments"
	"github.com/rewired-gh/stockwatch/internal/identity"
	"github.com/rewired-gh/stockwatch/internal/logger"
	"github.com/rewired-gh/stockwatch/internal/votes"
)

// Config carries the endpoints and paging behavior shared by every
// activated symbol.
type Config struct {
	CommentsBaseURL string
	StreamURL       string
	VotesBaseURL    string
	PageLimit       int
}

// Manager owns at most one active symbol view at a time.
type Manager struct {
	cfg          Config
	commentsDoer comments.Doer
	votesDoer    votes.Doer
	resolver     identity.Resolver

	mu         sync.Mutex
	generation uint64
	active     *View
}

// View bundles the live state for one symbol.
type View struct {
	Symbol   string
	Comments *comments.Store
	Votes    *votes.Aggregator

	generation uint64
	cancel     context.CancelFunc
	stream     *comments.Stream
}

func NewManager(cfg Config, commentsDoer comments.Doer, votesDoer votes.Doer, resolver identity.Resolver) *Manager {
	return &Manager{
		cfg:          cfg,
		commentsDoer: commentsDoer,
		votesDoer:    votesDoer,
		resolver:     resolver,
	}
}

// Activate switches the manager to the given symbol. Any previous view is
// deactivated first so its stream cannot deliver events into the new one.
// The initial comment page and vote state are loaded before the stream is
// opened; a failed stream dial leaves the loaded view usable without
// realtime updates.
func (m *Manager) Activate(ctx context.Context, symbol string) (*View, error) {
	m.mu.Lock()
	m.generation++
	gen := m.generation
	prev := m.active
	m.active = nil
	m.mu.Unlock()

	if prev != nil {
		prev.teardown()
	}

	store := comments.NewStore(
		comments.NewClient(m.cfg.CommentsBaseURL, m.commentsDoer),
		m.resolver, symbol, m.cfg.PageLimit,
	)
	agg := votes.NewAggregator(votes.NewClient(m.cfg.VotesBaseURL, m.votesDoer), m.resolver, symbol)

	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	if err := agg.Refresh(ctx); err != nil {
		// The vote widget falls back to its 50/50 default.
		logger.Warn("vote refresh failed for %s: %v", symbol, err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	view := &View{
		Symbol:     symbol,
		Comments:   store,
		Votes:      agg,
		generation: gen,
		cancel:     cancel,
	}

	handler := func(ev comments.Event) {
		if !m.isCurrent(gen) {
			return
		}
		store.Apply(ev)
	}
	stream, err := comments.Subscribe(streamCtx, m.cfg.StreamURL, symbol, handler)
	if err != nil {
		logger.Warn("comment stream unavailable for %s: %v", symbol, err)
	} else {
		view.stream = stream
	}

	m.mu.Lock()
	// A concurrent Activate may have raced ahead; if so this view is
	// already stale and must not become active.
	if m.generation != gen {
		m.mu.Unlock()
		view.teardown()
		return nil, context.Canceled
	}
	m.active = view
	m.mu.Unlock()
	return view, nil
}

// Ensure returns the active view when it already covers the symbol, and
// activates the symbol otherwise.
func (m *Manager) Ensure(ctx context.Context, symbol string) (*View, error) {
	m.mu.Lock()
	if m.active != nil && m.active.Symbol == symbol {
		view := m.active
		m.mu.Unlock()
		return view, nil
	}
	m.mu.Unlock()

	return m.Activate(ctx, symbol)
}

// Active returns the current view, or nil when no symbol is selected.
func (m *Manager) Active() *View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Deactivate tears down the current view, if any.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	m.generation++
	prev := m.active
	m.active = nil
	m.mu.Unlock()

	if prev != nil {
		prev.teardown()
	}
}

func (m *Manager) isCurrent(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation == gen
}

func (v *View) teardown() {
	v.cancel()
	if v.stream != nil {
		v.stream.Close()
	}
}
