package normalize

import (
	"sort"
	"strings"
)

// Wrapper keys under which the provider sometimes buries the entry list.
var wrapperKeys = []string{"marketSnapshot", "data"}

// Keys the provider uses to signal that the payload was served from its own
// cache rather than a live upstream call.
var staleFlagKeys = []string{"cached", "from_cache", "fromCache", "stale"}

// maxWrapperDepth bounds unwrapping: entries may sit one level deeper than a
// wrapper key, never more.
const maxWrapperDepth = 2

// Flatten normalizes any of the provider's response layouts into a flat list
// of entry objects, plus whether the payload carried a stale-cache signal.
// Accepted layouts:
//
//	[ {...}, {...} ]
//	{ "marketSnapshot": [...] } or { "data": [...] }
//	{ "AAPL": {...}, "TSLA": {...} }            (keyed by symbol)
//	{ "marketSnapshot": { "AAPL": {...} } }      (keyed, nested one deeper)
//
// Symbol-keyed entries that carry no symbol field of their own get the map
// key injected. Unrecognized payloads produce an empty list, never an error.
func Flatten(payload interface{}) ([]map[string]interface{}, bool) {
	switch v := payload.(type) {
	case []interface{}:
		return entryList(v), false
	case map[string]interface{}:
		return flattenObject(v, 0), staleSignal(v)
	default:
		return nil, false
	}
}

func flattenObject(obj map[string]interface{}, depth int) []map[string]interface{} {
	// Wrapper keys take precedence over symbol-keyed interpretation.
	if depth < maxWrapperDepth {
		for _, key := range wrapperKeys {
			switch sub := obj[key].(type) {
			case []interface{}:
				return entryList(sub)
			case map[string]interface{}:
				return flattenObject(sub, depth+1)
			}
		}
	}

	// Keyed by symbol: every key with an object value is one entry. Keys are
	// walked in sorted order so the output is deterministic.
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var entries []map[string]interface{}
	for _, key := range keys {
		entry, ok := obj[key].(map[string]interface{})
		if !ok {
			continue
		}
		if !HasSymbol(entry) {
			entry["symbol"] = key
		}
		entries = append(entries, entry)
	}
	return entries
}

func entryList(list []interface{}) []map[string]interface{} {
	var entries []map[string]interface{}
	for _, v := range list {
		if entry, ok := v.(map[string]interface{}); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// staleSignal reports whether an object-shaped payload marks itself as
// served from the provider's cache. Bare arrays carry no such signal.
func staleSignal(obj map[string]interface{}) bool {
	for _, key := range staleFlagKeys {
		if b, ok := obj[key].(bool); ok && b {
			return true
		}
	}
	if src, ok := obj["source"].(string); ok && strings.EqualFold(src, "cache") {
		return true
	}
	return false
}
