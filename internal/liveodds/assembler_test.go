package liveodds

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/internal/matcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAssembler(t *testing.T) (*Assembler, redismock.ClientMock) {
	t.Helper()
	m, err := matcher.New(matcher.Config{Logger: zap.NewNop()})
	require.NoError(t, err)
	t.Cleanup(m.Close)

	db, mock := redismock.NewClientMock()
	return New(db, m, Config{ResponseTTL: 2 * time.Minute, Logger: zap.NewNop()}), mock
}

func liveEntry(title, updatedAt string) map[string]string {
	return map[string]string{
		"market_title":      title,
		"category":          "economics",
		"venue":             "ignored-here",
		"updated_at":        updatedAt,
		"outcome_0_name":    "Yes",
		"outcome_0_price":   "0.47",
		"outcome_0_implied": "0.47",
		"outcome_1_name":    "No",
		"outcome_1_price":   "0.55",
		"outcome_1_implied": "0.55",
	}
}

func TestAssembleGroupsAcrossVenues(t *testing.T) {
	a, mock := newTestAssembler(t)

	title := "Will the Fed cut rates in December?"
	keys := []string{"live:kalshi:FED-25DEC", "live:polymarket:fed-december"}

	mock.ExpectGet("odds:response:all").RedisNil()
	mock.ExpectScan(0, "live:*", scanPageSize).SetVal(keys, 0)
	mock.ExpectHGetAll(keys[0]).SetVal(liveEntry(title, "2026-03-01T12:00:00Z"))
	mock.ExpectHGetAll(keys[1]).SetVal(liveEntry(title, "2026-03-01T12:00:05Z"))
	mock.ExpectGet(CanonicalMapKey).RedisNil()
	mock.Regexp().ExpectSet(CanonicalMapKey, `.*`, canonicalMapTTL).SetVal("OK")
	mock.Regexp().ExpectSet("odds:response:all", `.*`, 2*time.Minute).SetVal("OK")

	groups, err := a.Assemble(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, title, groups[0].CanonicalTitle)
	assert.Equal(t, 2, groups[0].VenueCount)
	require.Len(t, groups[0].Venues, 2)
	// Outcomes come back in index order regardless of hash iteration.
	require.Len(t, groups[0].Venues[0].Outcomes, 2)
	assert.Equal(t, "Yes", groups[0].Venues[0].Outcomes[0].Name)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssembleCategoryFilter(t *testing.T) {
	a, mock := newTestAssembler(t)

	keys := []string{"live:kalshi:FED-25DEC"}
	mock.ExpectGet("odds:response:sports").RedisNil()
	mock.ExpectScan(0, "live:*", scanPageSize).SetVal(keys, 0)
	mock.ExpectHGetAll(keys[0]).SetVal(liveEntry("Will the Fed cut rates?", "2026-03-01T12:00:00Z"))
	mock.ExpectGet(CanonicalMapKey).RedisNil()
	mock.Regexp().ExpectSet(CanonicalMapKey, `.*`, canonicalMapTTL).SetVal("OK")
	mock.Regexp().ExpectSet("odds:response:sports", `.*`, 2*time.Minute).SetVal("OK")

	groups, err := a.Assemble(context.Background(), "sports")
	require.NoError(t, err)
	assert.Empty(t, groups)
	require.NoError(t, mock.ExpectationsWereMet())
}

// Two markets from one venue landing in the same group collapse to the
// fresher entry.
func TestAssembleDeduplicatesSameVenue(t *testing.T) {
	a, mock := newTestAssembler(t)

	title := "Will the Fed cut rates in December?"
	keys := []string{"live:kalshi:FED-25DEC-OLD", "live:kalshi:FED-25DEC"}

	mock.ExpectGet("odds:response:all").RedisNil()
	mock.ExpectScan(0, "live:*", scanPageSize).SetVal(keys, 0)
	mock.ExpectHGetAll(keys[0]).SetVal(liveEntry(title, "2026-03-01T11:00:00Z"))
	mock.ExpectHGetAll(keys[1]).SetVal(liveEntry(title, "2026-03-01T12:00:00Z"))
	mock.ExpectGet(CanonicalMapKey).RedisNil()
	mock.Regexp().ExpectSet(CanonicalMapKey, `.*`, canonicalMapTTL).SetVal("OK")
	mock.Regexp().ExpectSet("odds:response:all", `.*`, 2*time.Minute).SetVal("OK")

	groups, err := a.Assemble(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Venues, 1)
	assert.Equal(t, "FED-25DEC", groups[0].Venues[0].MarketID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAssembleServesResponseCache(t *testing.T) {
	a, mock := newTestAssembler(t)

	cached := []MarketGroup{{CanonicalTitle: "cached", VenueCount: 1}}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)

	mock.ExpectGet("odds:response:all").SetVal(string(payload))

	groups, err := a.Assemble(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, cached, groups)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupReturnsAllVenueEntries(t *testing.T) {
	a, mock := newTestAssembler(t)

	title := "Will the Fed cut rates in December?"
	keys := []string{"live:polymarket:FED-25DEC", "live:kalshi:FED-25DEC"}

	mock.ExpectScan(0, "live:*:FED-25DEC", scanPageSize).SetVal(keys, 0)
	mock.ExpectHGetAll(keys[0]).SetVal(liveEntry(title, "2026-03-01T12:00:00Z"))
	mock.ExpectHGetAll(keys[1]).SetVal(liveEntry(title, "2026-03-01T12:00:05Z"))

	entries, err := a.Lookup(context.Background(), "FED-25DEC")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Sorted by venue slug.
	assert.Equal(t, "kalshi", entries[0].Venue)
	assert.Equal(t, "polymarket", entries[1].Venue)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLookupUnknownMarket(t *testing.T) {
	a, mock := newTestAssembler(t)

	mock.ExpectScan(0, "live:*:ghost", scanPageSize).SetVal([]string{}, 0)

	entries, err := a.Lookup(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseEntry(t *testing.T) {
	e, ok := parseEntry("live:kalshi:FED-25DEC", liveEntry("Will the Fed cut rates?", "2026-03-01T12:00:00Z"))
	require.True(t, ok)
	assert.Equal(t, "kalshi", e.Venue)
	assert.Equal(t, "FED-25DEC", e.MarketID)
	require.Len(t, e.Outcomes, 2)
	assert.Equal(t, 0.55, e.Outcomes[1].Price)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), e.UpdatedAt)
}

func TestParseEntryRejectsEmpty(t *testing.T) {
	_, ok := parseEntry("live:kalshi:FED-25DEC", map[string]string{"market_title": "x"})
	assert.False(t, ok)

	_, ok = parseEntry("notlive", liveEntry("t", "2026-03-01T12:00:00Z"))
	assert.False(t, ok)
}
