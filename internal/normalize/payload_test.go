package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeAny(t *testing.T, raw string) interface{} {
	t.Helper()
	var payload interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestFlattenShapes(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantCount int
	}{
		{name: "bare array", raw: `[{"symbol":"AAPL"},{"symbol":"TSLA"}]`, wantCount: 2},
		{name: "market snapshot wrapper", raw: `{"marketSnapshot":[{"symbol":"AAPL"}]}`, wantCount: 1},
		{name: "data wrapper", raw: `{"data":[{"symbol":"AAPL"},{"symbol":"TSLA"},{"symbol":"KO"}]}`, wantCount: 3},
		{name: "keyed by symbol", raw: `{"AAPL":{"price":150},"TSLA":{"price":700}}`, wantCount: 2},
		{name: "keyed under wrapper", raw: `{"marketSnapshot":{"AAPL":{"price":150}}}`, wantCount: 1},
		{name: "wrapper nested in wrapper", raw: `{"data":{"marketSnapshot":[{"symbol":"AAPL"}]}}`, wantCount: 1},
		{name: "keyed map skips scalar values", raw: `{"AAPL":{"price":150},"count":2,"ok":true}`, wantCount: 1},
		{name: "array with junk entries", raw: `[{"symbol":"AAPL"},42,"junk"]`, wantCount: 1},
		{name: "empty array", raw: `[]`, wantCount: 0},
		{name: "empty object", raw: `{}`, wantCount: 0},
		{name: "scalar payload", raw: `"oops"`, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, _ := Flatten(decodeAny(t, tt.raw))
			assert.Len(t, entries, tt.wantCount)
		})
	}
}

func TestFlattenInjectsSymbolKey(t *testing.T) {
	entries, _ := Flatten(decodeAny(t, `{"AAPL":{"price":150},"TSLA":{"close":700}}`))
	require.Len(t, entries, 2)

	// Sorted key order makes the output deterministic.
	assert.Equal(t, "AAPL", entries[0]["symbol"])
	assert.Equal(t, "TSLA", entries[1]["symbol"])

	// An entry that already names its symbol keeps it.
	entries, _ = Flatten(decodeAny(t, `{"aapl-us":{"symbol":"AAPL","price":150}}`))
	require.Len(t, entries, 1)
	assert.Equal(t, "AAPL", entries[0]["symbol"])
}

func TestFlattenStaleSignal(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantStale bool
	}{
		{name: "cached flag", raw: `{"cached":true,"data":[{"symbol":"AAPL"}]}`, wantStale: true},
		{name: "snake case flag", raw: `{"from_cache":true,"data":[]}`, wantStale: true},
		{name: "source marker", raw: `{"source":"cache","data":[{"symbol":"AAPL"}]}`, wantStale: true},
		{name: "cached false", raw: `{"cached":false,"data":[{"symbol":"AAPL"}]}`, wantStale: false},
		{name: "fresh payload", raw: `{"data":[{"symbol":"AAPL"}]}`, wantStale: false},
		{name: "bare array never stale", raw: `[{"symbol":"AAPL"}]`, wantStale: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stale := Flatten(decodeAny(t, tt.raw))
			assert.Equal(t, tt.wantStale, stale)
		})
	}
}
