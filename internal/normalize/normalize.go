// Package normalize converts the upstream provider's inconsistent JSON shapes
// into canonical, UI-safe market items.
//
// The provider is not under our control: price and percent fields appear at
// the top level, under a "quote" sub-object, or under a "data" sub-object,
// and under several alternate names. Resolution is table-driven — an ordered
// list of field-name candidates per logical field — so the fallback rules
// stay in one place instead of nested conditional chains.
//
// Every function in this package is total: no input, however malformed,
// produces an error or a partially-typed record. Missing or unparseable
// values come back as typed defaults.
package normalize

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rewired-gh/stockwatch/internal/models"
)

// Ordered field-name candidate tables. Earlier names win.
var (
	symbolKeys = []string{
		"symbol", "ticker", "Symbol", "Ticker", "code", "instrument",
		"stock_symbol", "symbol_id", "ticker_symbol",
	}
	priceKeys = []string{
		"lastPrice", "price", "close", "current_price", "previous_close", "last",
	}
	percentKeys = []string{
		"percentChange", "percent_change", "changesPercentage", "change_pct",
		"change_percent", "change", "pct_change",
	}
	lastCloseKeys = []string{
		"previousClose", "previous_close", "prevClose", "lastClose",
	}
	nameKeys    = []string{"name", "companyName", "company_name", "shortName"}
	imageKeys   = []string{"image", "logo", "icon"}
	summaryKeys = []string{"summary", "description"}

	// Sub-objects scanned after the top level, in order.
	containerKeys = []string{"quote", "data"}
)

// Item converts one untyped upstream object into a canonical MarketItem.
// It never returns an error; unrecoverable fields carry typed defaults
// (symbol "—", price/percent formatted from zero).
func Item(obj map[string]interface{}) models.MarketItem {
	symbol := resolveSymbol(obj)

	price, _ := resolveNumber(obj, priceKeys)
	percent, _ := resolveNumber(obj, percentKeys)

	item := models.MarketItem{
		Symbol:        symbol,
		Name:          resolveString(obj, nameKeys),
		LastPrice:     FormatPrice(price),
		PercentChange: FormatPercent(percent),
		Image:         resolveString(obj, imageKeys),
		Summary:       resolveString(obj, summaryKeys),
	}
	if item.Name == "" {
		item.Name = item.Symbol
	}

	if lastClose, ok := resolveNumber(obj, lastCloseKeys); ok && !math.IsNaN(lastClose) {
		item.LastClose = &lastClose
	}

	return item
}

// HasSymbol reports whether the object resolves a usable symbol on its own,
// without falling back to the name field or the "—" placeholder. Payload
// flattening uses this to decide whether a symbol-keyed entry needs its map
// key injected.
func HasSymbol(obj map[string]interface{}) bool {
	return rawSymbol(obj) != ""
}

// resolveSymbol resolves the display symbol: candidate keys first, then a
// case-insensitive scan for anything symbol/ticker-like, then the name
// field, then the placeholder.
func resolveSymbol(obj map[string]interface{}) string {
	if s := rawSymbol(obj); s != "" {
		return strings.ToUpper(s)
	}
	if name := resolveString(obj, nameKeys); name != "" {
		return strings.ToUpper(name)
	}
	return models.Placeholder
}

func rawSymbol(obj map[string]interface{}) string {
	for _, key := range symbolKeys {
		if s := stringValue(obj[key]); s != "" {
			return s
		}
	}
	// Last resort before name fallback: any key mentioning symbol or ticker.
	for key, v := range obj {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "symbol") || strings.Contains(lower, "ticker") {
			if s := stringValue(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// resolveNumber scans the top-level object, then each container sub-object,
// trying every candidate key in order. The first present value wins, even
// if it parses to NaN; formatting is responsible for clamping. Returns
// (0, false) when no candidate exists anywhere.
func resolveNumber(obj map[string]interface{}, keys []string) (float64, bool) {
	for _, container := range containers(obj) {
		for _, key := range keys {
			if v, exists := container[key]; exists {
				if f, ok := numberValue(v); ok {
					return f, true
				}
			}
		}
	}
	return 0, false
}

func resolveString(obj map[string]interface{}, keys []string) string {
	for _, container := range containers(obj) {
		for _, key := range keys {
			if s := stringValue(container[key]); s != "" {
				return s
			}
		}
	}
	return ""
}

func containers(obj map[string]interface{}) []map[string]interface{} {
	out := []map[string]interface{}{obj}
	for _, key := range containerKeys {
		if sub, ok := obj[key].(map[string]interface{}); ok {
			out = append(out, sub)
		}
	}
	return out
}

// numberValue coerces a decoded JSON value into a float64. Strings are
// parsed; unparseable strings yield NaN (present but useless), which the
// formatters clamp. Booleans and composites are rejected.
func numberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
		if trimmed == "" {
			return math.NaN(), true
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	default:
		return 0, false
	}
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

var one = decimal.NewFromInt(1)

// FormatPrice renders a price with 4 fractional digits when the magnitude is
// below 1, else 2. NaN and infinities render as zero.
func FormatPrice(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	d := decimal.NewFromFloat(v)
	if d.Abs().LessThan(one) {
		return d.StringFixed(4)
	}
	return d.StringFixed(2)
}

// FormatPercent renders a percent change with 2 fractional digits, clamping
// NaN and infinities to "0.00".
func FormatPercent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
