package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/rewired-gh/stockwatch/internal/models"
)

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"AAPL", "AAPL"},
		{"-1.25%", "\\-1\\.25%"},
		{"a_b*c", "a\\_b\\*c"},
		{"(x)", "\\(x\\)"},
	}

	for _, tt := range tests {
		result := escapeMarkdownV2(tt.input)
		if result != tt.expected {
			t.Errorf("escapeMarkdownV2(%q) = %q, expected %q", tt.input, result, tt.expected)
		}
	}
}

func testClient(topMovers int, cooldown time.Duration) *Client {
	return &Client{
		topMovers:      topMovers,
		moversCooldown: cooldown,
		lastDigest:     make(map[string]time.Time),
		now:            time.Now,
	}
}

func moverResult(items ...models.MarketItem) models.SnapshotResult {
	return models.SnapshotResult{Items: items, FetchedAt: time.Now()}
}

func TestFormatMoversPicksLargestAbsoluteChange(t *testing.T) {
	c := testClient(2, time.Hour)

	digest, symbols := c.formatMoversLocked(moverResult(
		models.MarketItem{Symbol: "AAPL", LastPrice: "190.00", PercentChange: "1.20"},
		models.MarketItem{Symbol: "TSLA", LastPrice: "250.00", PercentChange: "-5.40"},
		models.MarketItem{Symbol: "MSFT", LastPrice: "410.00", PercentChange: "3.10"},
	))

	if !strings.Contains(digest, "TSLA") || !strings.Contains(digest, "MSFT") {
		t.Errorf("expected the two largest movers in digest, got:\n%s", digest)
	}
	if strings.Contains(digest, "AAPL") {
		t.Errorf("AAPL should be cut by the top-movers limit, got:\n%s", digest)
	}
	if !strings.Contains(digest, "📉") {
		t.Errorf("negative mover should carry the down emoji, got:\n%s", digest)
	}
	if len(symbols) != 2 {
		t.Errorf("expected 2 digested symbols, got %v", symbols)
	}
}

func TestFormatMoversCooldownSuppressesRepeats(t *testing.T) {
	c := testClient(5, time.Hour)

	result := moverResult(models.MarketItem{Symbol: "TSLA", LastPrice: "250.00", PercentChange: "-5.40"})

	digest, symbols := c.formatMoversLocked(result)
	if digest == "" {
		t.Fatal("first digest should include TSLA")
	}
	c.recordDigestLocked(symbols)

	if digest, _ := c.formatMoversLocked(result); digest != "" {
		t.Errorf("repeat inside cooldown should produce no digest, got:\n%s", digest)
	}

	// Advance past the cooldown.
	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if digest, _ := c.formatMoversLocked(result); digest == "" {
		t.Error("digest should resume after the cooldown expires")
	}
}

func TestUndeliveredDigestDoesNotConsumeCooldown(t *testing.T) {
	c := testClient(5, time.Hour)

	result := moverResult(models.MarketItem{Symbol: "TSLA", LastPrice: "250.00", PercentChange: "-5.40"})

	// Formatting alone must not stamp the cooldown: when delivery fails the
	// mover stays eligible for the next cycle.
	if digest, _ := c.formatMoversLocked(result); digest == "" {
		t.Fatal("first digest should include TSLA")
	}
	digest, symbols := c.formatMoversLocked(result)
	if digest == "" {
		t.Fatal("mover should still be eligible after an undelivered digest")
	}

	c.recordDigestLocked(symbols)
	if digest, _ := c.formatMoversLocked(result); digest != "" {
		t.Errorf("delivered digest should start the cooldown, got:\n%s", digest)
	}
}

func TestFormatMoversSkipsFlatAndPlaceholderItems(t *testing.T) {
	c := testClient(5, time.Hour)

	digest, _ := c.formatMoversLocked(moverResult(
		models.MarketItem{Symbol: "AAPL", LastPrice: "190.00", PercentChange: "0.00"},
		models.MarketItem{Symbol: "GOOG", LastPrice: models.Placeholder, PercentChange: models.Placeholder},
	))

	if digest != "" {
		t.Errorf("flat and placeholder items should produce no digest, got:\n%s", digest)
	}
}

func TestFormatOutageAndRecovery(t *testing.T) {
	c := testClient(5, time.Hour)
	at := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

	outage := c.formatOutage(models.SnapshotResult{FromFallback: true, Error502: true, FetchedAt: at})
	if !strings.Contains(outage, "502") {
		t.Errorf("502 outage should name the status, got:\n%s", outage)
	}

	generic := c.formatOutage(models.SnapshotResult{FromFallback: true, FetchedAt: at})
	if !strings.Contains(generic, "unreachable") {
		t.Errorf("generic outage should report unreachable, got:\n%s", generic)
	}

	recovery := c.formatRecovery(moverResult(models.MarketItem{Symbol: "AAPL"}))
	if !strings.Contains(recovery, "1 symbols") {
		t.Errorf("recovery should report the symbol count, got:\n%s", recovery)
	}
}
