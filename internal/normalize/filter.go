package normalize

import (
	"regexp"
	"strings"

	"github.com/rewired-gh/stockwatch/internal/models"
)

// cryptoPrefix matches tickers from the crypto/FX namespace that the
// watchlist does not support.
var cryptoPrefix = regexp.MustCompile(`^(BTC|ETH|DOGE|XRP|ADA|SOL|USDT|USDC)`)

// SymbolFilter decides whether a ticker belongs to the supported instrument
// universe. It is a pure predicate; Apply preserves order and never mutates
// its input, which makes it idempotent.
type SymbolFilter struct {
	excludedExchanges []string
}

// NewSymbolFilter creates a filter excluding the given venue codes in
// addition to the built-in crypto/FX prefixes. Codes are compared
// case-insensitively as substrings, matching venue-prefixed notation
// such as "BINANCE:BTCUSDT".
func NewSymbolFilter(excludedExchanges []string) *SymbolFilter {
	upper := make([]string, 0, len(excludedExchanges))
	for _, code := range excludedExchanges {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			upper = append(upper, code)
		}
	}
	return &SymbolFilter{excludedExchanges: upper}
}

// Allowed reports whether the symbol belongs to the supported universe.
func (f *SymbolFilter) Allowed(symbol string) bool {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if cryptoPrefix.MatchString(s) {
		return false
	}
	for _, code := range f.excludedExchanges {
		if strings.Contains(s, code) {
			return false
		}
	}
	return true
}

// Apply returns the items whose symbols pass the filter, in their original
// order. The input slice is left untouched.
func (f *SymbolFilter) Apply(items []models.MarketItem) []models.MarketItem {
	filtered := make([]models.MarketItem, 0, len(items))
	for _, item := range items {
		if f.Allowed(item.Symbol) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
