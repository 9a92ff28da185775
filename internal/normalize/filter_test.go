package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/stockwatch/internal/models"
)

func TestSymbolFilterAllowed(t *testing.T) {
	f := NewSymbolFilter([]string{"BINANCE", "OANDA"})

	tests := []struct {
		symbol string
		want   bool
	}{
		{symbol: "AAPL", want: true},
		{symbol: "TSLA", want: true},
		{symbol: "BTCUSD", want: false},
		{symbol: "ETH-USD", want: false},
		{symbol: "DOGEUSDT", want: false},
		{symbol: "usdcusd", want: false}, // case-insensitive
		{symbol: "BINANCE:SOLUSDT", want: false},
		{symbol: "OANDA:EURUSD", want: false},
		{symbol: "SOFI", want: true}, // SOL prefix must not match mid-string
		{symbol: "ADBE", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Allowed(tt.symbol))
		})
	}
}

func TestSymbolFilterApplyPreservesOrderAndInput(t *testing.T) {
	f := NewSymbolFilter(nil)

	items := []models.MarketItem{
		{Symbol: "TSLA", Name: "TSLA", LastPrice: "700.00", PercentChange: "0.00"},
		{Symbol: "BTCUSD", Name: "BTCUSD", LastPrice: "—", PercentChange: "0.00"},
		{Symbol: "AAPL", Name: "AAPL", LastPrice: "150.00", PercentChange: "1.20"},
	}

	filtered := f.Apply(items)
	require.Len(t, filtered, 2)
	assert.Equal(t, "TSLA", filtered[0].Symbol)
	assert.Equal(t, "AAPL", filtered[1].Symbol)

	// Input untouched.
	assert.Len(t, items, 3)
	assert.Equal(t, "BTCUSD", items[1].Symbol)
}

func TestSymbolFilterIdempotent(t *testing.T) {
	f := NewSymbolFilter([]string{"KRAKEN"})

	items := []models.MarketItem{
		{Symbol: "AAPL", Name: "AAPL", LastPrice: "150.00", PercentChange: "0.00"},
		{Symbol: "XRPUSD", Name: "XRPUSD", LastPrice: "—", PercentChange: "0.00"},
		{Symbol: "KRAKEN:ADAEUR", Name: "ADA", LastPrice: "—", PercentChange: "0.00"},
		{Symbol: "MSFT", Name: "MSFT", LastPrice: "415.00", PercentChange: "0.00"},
	}

	once := f.Apply(items)
	twice := f.Apply(once)
	assert.Equal(t, once, twice)
}

func TestFallbackItems(t *testing.T) {
	defaults := []string{
		"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA",
		"TSLA", "META", "NFLX", "AMD", "INTC",
		"DIS", "BA",
	}

	items := FallbackItems(defaults)
	require.Len(t, items, 10, "placeholder set is capped at the first 10 defaults")

	for i, item := range items {
		assert.Equal(t, defaults[i], item.Symbol)
		assert.Equal(t, defaults[i], item.Name)
		assert.Equal(t, models.Placeholder, item.LastPrice)
		assert.Equal(t, "0.00", item.PercentChange)
		require.NoError(t, item.Validate())
	}

	// Deterministic: same input, same output.
	assert.Equal(t, items, FallbackItems(defaults))

	// Shorter universes are used as-is.
	assert.Len(t, FallbackItems([]string{"AAPL", "TSLA"}), 2)
}
