package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitLiveKey(t *testing.T) {
	tests := []struct {
		key      string
		venue    string
		marketID string
		ok       bool
	}{
		{"live:kalshi:FED-25DEC", "kalshi", "FED-25DEC", true},
		{"live:theoddsapi:nba:lakers-celtics", "theoddsapi", "nba:lakers-celtics", true},
		{"live:kalshi:", "", "", false},
		{"live:", "", "", false},
	}
	for _, tt := range tests {
		venue, marketID, ok := splitLiveKey(tt.key)
		assert.Equal(t, tt.ok, ok, tt.key)
		assert.Equal(t, tt.venue, venue, tt.key)
		assert.Equal(t, tt.marketID, marketID, tt.key)
	}
}

func TestEntryRowsExtractsOutcomes(t *testing.T) {
	entry := map[string]string{
		"market_title":      "Will the Fed cut rates in December?",
		"venue":             "kalshi",
		"updated_at":        "2026-03-01T12:00:00Z",
		"outcome_0_name":    "Yes",
		"outcome_0_price":   "0.47",
		"outcome_0_implied": "0.47",
		"outcome_1_name":    "No",
		"outcome_1_price":   "0.55",
		"outcome_1_implied": "0.55",
	}

	rows := entryRows("kalshi", "FED-25DEC", entry)
	require.Len(t, rows, 2)

	byIdx := map[int]Row{}
	for _, r := range rows {
		byIdx[r.OutcomeIndex] = r
	}
	assert.Equal(t, "Yes", byIdx[0].OutcomeName)
	assert.Equal(t, 0.47, byIdx[0].ImpliedProb)
	assert.Equal(t, "No", byIdx[1].OutcomeName)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), byIdx[0].CapturedAt)
}

// Rows with non-positive implied probability never reach durable storage.
func TestEntryRowsDropsNonPositiveImplied(t *testing.T) {
	entry := map[string]string{
		"updated_at":        "2026-03-01T12:00:00Z",
		"outcome_0_name":    "Yes",
		"outcome_0_price":   "0",
		"outcome_0_implied": "0",
		"outcome_1_name":    "No",
		"outcome_1_price":   "0.55",
		"outcome_1_implied": "0.55",
	}

	rows := entryRows("kalshi", "FED-25DEC", entry)
	require.Len(t, rows, 1)
	assert.Equal(t, "No", rows[0].OutcomeName)
}

func TestEntryRowsSkipsMalformedFields(t *testing.T) {
	entry := map[string]string{
		"outcome_0_name":    "Yes",
		"outcome_0_price":   "not-a-number",
		"outcome_0_implied": "0.47",
	}
	assert.Empty(t, entryRows("kalshi", "FED-25DEC", entry))
}
