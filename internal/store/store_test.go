package store

import (
	"testing"
	"time"

	"github.com/rewired-gh/stockwatch/internal/models"
)

func freshResult(items ...models.MarketItem) models.SnapshotResult {
	return models.SnapshotResult{Items: items, FetchedAt: time.Now()}
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := New()

	empty := s.Snapshot()
	if len(empty.Items) != 0 {
		t.Fatalf("expected empty initial snapshot, got %d items", len(empty.Items))
	}

	s.SetSnapshot(freshResult(models.MarketItem{Symbol: "AAPL", LastPrice: "190.00"}))

	got := s.Snapshot()
	if len(got.Items) != 1 || got.Items[0].Symbol != "AAPL" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	// The returned slice is a copy.
	got.Items[0].Symbol = "MUTATED"
	if s.Snapshot().Items[0].Symbol != "AAPL" {
		t.Fatal("snapshot copy leaked internal state")
	}
}

func TestPreviousCycleRetained(t *testing.T) {
	s := New()

	s.SetSnapshot(freshResult(models.MarketItem{Symbol: "AAPL", LastPrice: "190.00"}))
	if _, ok := s.Previous("AAPL"); ok {
		t.Fatal("previous should be empty after the first cycle")
	}

	s.SetSnapshot(freshResult(models.MarketItem{Symbol: "AAPL", LastPrice: "191.50"}))

	prev, ok := s.Previous("AAPL")
	if !ok || prev.LastPrice != "190.00" {
		t.Fatalf("expected previous price 190.00, got %+v ok=%v", prev, ok)
	}
}

func TestFallbackDoesNotOverwritePrevious(t *testing.T) {
	s := New()

	s.SetSnapshot(freshResult(models.MarketItem{Symbol: "TSLA", LastPrice: "250.00"}))
	s.SetSnapshot(freshResult(models.MarketItem{Symbol: "TSLA", LastPrice: "255.00"}))

	s.SetSnapshot(models.SnapshotResult{
		Items:        []models.MarketItem{{Symbol: "TSLA", LastPrice: models.Placeholder}},
		FromFallback: true,
		FetchedAt:    time.Now(),
	})
	s.SetSnapshot(freshResult(models.MarketItem{Symbol: "TSLA", LastPrice: "260.00"}))

	// The fallback cycle is skipped: previous still points at the last
	// fresh result before the outage.
	prev, ok := s.Previous("TSLA")
	if !ok || prev.LastPrice != "255.00" {
		t.Fatalf("fallback cycle should not advance previous view, got %+v ok=%v", prev, ok)
	}
}
