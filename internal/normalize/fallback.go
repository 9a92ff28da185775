package normalize

import (
	"strings"

	"github.com/rewired-gh/stockwatch/internal/models"
)

// fallbackSize caps the deterministic placeholder set.
const fallbackSize = 10

// FallbackItems produces the deterministic placeholder set shown when live
// data cannot be produced: the first ten configured default symbols with a
// "—" price and a zero percent change. Placeholders are never mixed with
// partial live data.
func FallbackItems(defaultSymbols []string) []models.MarketItem {
	n := len(defaultSymbols)
	if n > fallbackSize {
		n = fallbackSize
	}

	items := make([]models.MarketItem, 0, n)
	for _, symbol := range defaultSymbols[:n] {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			symbol = models.Placeholder
		}
		items = append(items, models.MarketItem{
			Symbol:        symbol,
			Name:          symbol,
			LastPrice:     models.Placeholder,
			PercentChange: "0.00",
		})
	}
	return items
}
