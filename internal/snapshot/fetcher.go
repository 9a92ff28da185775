// Package snapshot fetches batched market snapshots from the upstream
// provider and reconciles them into canonical results.
//
// The fetcher is a total function over the network: it never returns an
// error to its caller. Failures are classified into typed provenance flags —
// a 502 from upstream means the data source itself is down and yields an
// empty flagged result, while any other failure silently degrades to the
// deterministic placeholder set.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rewired-gh/stockwatch/internal/logger"
	"github.com/rewired-gh/stockwatch/internal/models"
	"github.com/rewired-gh/stockwatch/internal/normalize"
)

// maxBatchSize is the upstream batching limit. One request carries at most
// this many symbols; the tracked set is truncated, never split into several
// requests, to stay clear of upstream rate limiting.
const maxBatchSize = 30

// Doer issues HTTP requests. *http.Client satisfies it; tests inject doubles.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher issues one batched snapshot request per Fetch call and normalizes
// whatever comes back.
type Fetcher struct {
	baseURL        string
	client         Doer
	filter         *normalize.SymbolFilter
	defaultSymbols []string
	batchSize      int
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithBatchSize lowers the per-request symbol cap. Values outside
// [1, maxBatchSize] are clamped.
func WithBatchSize(n int) Option {
	return func(f *Fetcher) {
		if n < 1 {
			n = 1
		}
		if n > maxBatchSize {
			n = maxBatchSize
		}
		f.batchSize = n
	}
}

// New creates a Fetcher. client must not be nil; pass an *http.Client with
// the provider timeout configured.
func New(baseURL string, client Doer, filter *normalize.SymbolFilter, defaultSymbols []string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL:        strings.TrimRight(baseURL, "/"),
		client:         client,
		filter:         filter,
		defaultSymbols: defaultSymbols,
		batchSize:      maxBatchSize,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves a snapshot for the given symbols with exactly one network
// call. The result always validates: fresh items, a stale-cache-tagged set,
// the placeholder fallback, or the empty 502 classification.
func (f *Fetcher) Fetch(ctx context.Context, symbols []string) models.SnapshotResult {
	now := time.Now()

	batch := symbols
	if len(batch) > f.batchSize {
		logger.Warn("snapshot batch truncated from %d to %d symbols", len(batch), f.batchSize)
		batch = batch[:f.batchSize]
	}

	payload, status, err := f.request(ctx, batch)
	if err != nil {
		if status == http.StatusBadGateway {
			// The data source behind the backend failed; the UI shows a
			// distinct "source down" state instead of placeholders.
			logger.Warn("snapshot upstream returned 502, data source down")
			return models.SnapshotResult{
				Items:        []models.MarketItem{},
				FromFallback: true,
				Error502:     true,
				FetchedAt:    now,
			}
		}
		logger.Debug("snapshot fetch failed, serving placeholders: %v", err)
		return f.fallback(now)
	}

	entries, stale := normalize.Flatten(payload)

	items := make([]models.MarketItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, normalize.Item(entry))
	}
	items = f.filter.Apply(items)

	if len(items) == 0 {
		logger.Debug("snapshot produced no usable items, serving placeholders")
		return f.fallback(now)
	}

	return models.SnapshotResult{
		Items:          items,
		FromStaleCache: stale,
		FetchedAt:      now,
	}
}

func (f *Fetcher) fallback(now time.Time) models.SnapshotResult {
	return models.SnapshotResult{
		Items:        normalize.FallbackItems(f.defaultSymbols),
		FromFallback: true,
		FetchedAt:    now,
	}
}

// request performs the single batched GET. The returned status is nonzero
// only when an HTTP response was actually received.
func (f *Fetcher) request(ctx context.Context, symbols []string) (interface{}, int, error) {
	endpoint := fmt.Sprintf("%s/snapshot?symbols=%s", f.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build snapshot request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, fmt.Errorf("snapshot request returned status %d", resp.StatusCode)
	}

	var payload interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}

	return payload, resp.StatusCode, nil
}
