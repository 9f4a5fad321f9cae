package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/oddsaxiom/pipeline/internal/engine"
	"github.com/oddsaxiom/pipeline/internal/liveodds"
	"github.com/oddsaxiom/pipeline/internal/matcher"
	"github.com/oddsaxiom/pipeline/pkg/healthprobe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, redismock.ClientMock) {
	t.Helper()
	rdb, mock := redismock.NewClientMock()

	store := engine.NewStore(rdb, engine.StoreConfig{
		OpportunityTTL: 5 * time.Minute,
		Logger:         zap.NewNop(),
	})
	hc := healthprobe.New()
	hc.SetReady(true)

	return New(&Config{
		Port:             "0",
		Logger:           zap.NewNop(),
		HealthChecker:    hc,
		OpportunityStore: store,
	}), mock
}

func TestHealthRoute(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestArbitrageListRoute(t *testing.T) {
	s, mock := newTestServer(t)

	opp := engine.Opportunity{
		ID:             "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		CanonicalTitle: "will the fed cut rates in december",
		Category:       "economics",
		TotalImplied:   0.95,
		ExpectedProfit: 0.05,
		DetectedAt:     time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}
	payload, err := json.Marshal(opp)
	require.NoError(t, err)

	mock.ExpectZRevRange(engine.ActiveSetKey, 0, 49).SetVal([]string{opp.StoreKey()})
	mock.ExpectHGet("arb:opp:"+opp.StoreKey(), "data").SetVal(string(payload))

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/arbitrage/opportunities", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ArbitrageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "will the fed cut rates in december", resp.Opportunities[0].CanonicalTitle)
	assert.InDelta(t, 0.05, resp.Opportunities[0].ExpectedProfit, 1e-9)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestArbitrageListSkipsExpiredHashes(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectZRevRange(engine.ActiveSetKey, 0, 49).SetVal([]string{"deadbeef"})
	mock.ExpectHGet("arb:opp:deadbeef", "data").RedisNil()

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/arbitrage/opportunities", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ArbitrageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 0, resp.Count)
	assert.NotNil(t, resp.Opportunities)
}

func TestArbitrageListRejectsBadLimit(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/arbitrage/opportunities?limit=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArbitrageListMinProfitFilter(t *testing.T) {
	s, mock := newTestServer(t)

	thin := engine.Opportunity{
		ID:             "0a0a0a0a-0000-4000-8000-000000000001",
		CanonicalTitle: "will it rain in london tomorrow",
		Category:       "science",
		TotalImplied:   0.99,
		ExpectedProfit: 0.01,
	}
	fat := engine.Opportunity{
		ID:             "0b0b0b0b-0000-4000-8000-000000000002",
		CanonicalTitle: "will the fed cut rates in december",
		Category:       "economics",
		TotalImplied:   0.92,
		ExpectedProfit: 0.08,
	}
	fatPayload, err := json.Marshal(fat)
	require.NoError(t, err)
	thinPayload, err := json.Marshal(thin)
	require.NoError(t, err)

	mock.ExpectZRevRange(engine.ActiveSetKey, 0, 49).SetVal([]string{fat.StoreKey(), thin.StoreKey()})
	mock.ExpectHGet("arb:opp:"+fat.StoreKey(), "data").SetVal(string(fatPayload))
	mock.ExpectHGet("arb:opp:"+thin.StoreKey(), "data").SetVal(string(thinPayload))

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/api/arbitrage/opportunities?min_profit=0.05", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp ArbitrageResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "will the fed cut rates in december", resp.Opportunities[0].CanonicalTitle)
}

func TestArbitrageListRejectsBadMinProfit(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/api/arbitrage/opportunities?min_profit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestArbitrageCountRoute(t *testing.T) {
	s, mock := newTestServer(t)

	mock.ExpectZCard(engine.ActiveSetKey).SetVal(3)

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/arbitrage/count", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp CountResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(3), resp.Count)
}

func TestOddsRouteAbsentWithoutAssembler(t *testing.T) {
	s, _ := newTestServer(t)

	// Assembler routes are only mounted when an assembler is configured.
	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/odds", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOddsRoutePagination(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m, err := matcher.New(matcher.Config{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer m.Close()

	assembler := liveodds.New(rdb, m, liveodds.Config{
		ResponseTTL: time.Minute,
		Logger:      zap.NewNop(),
	})
	s := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		OddsAssembler: assembler,
	})

	cached := []liveodds.MarketGroup{
		{CanonicalTitle: "a", VenueCount: 3},
		{CanonicalTitle: "b", VenueCount: 2},
		{CanonicalTitle: "c", VenueCount: 1},
	}
	payload, err := json.Marshal(cached)
	require.NoError(t, err)
	mock.ExpectGet("odds:response:all").SetVal(string(payload))

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/api/odds?limit=1&offset=1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp OddsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 3, resp.Total)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, 1, resp.Offset)
	require.Len(t, resp.Markets, 1)
	assert.Equal(t, "b", resp.Markets[0].CanonicalTitle)
}

func TestOddsMarketRoute(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m, err := matcher.New(matcher.Config{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer m.Close()

	assembler := liveodds.New(rdb, m, liveodds.Config{
		ResponseTTL: time.Minute,
		Logger:      zap.NewNop(),
	})
	hc := healthprobe.New()
	s := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: hc,
		OddsAssembler: assembler,
	})

	mock.ExpectScan(0, "live:*:mkt-42", 500).SetVal([]string{"live:polymarket:mkt-42"}, 0)
	mock.ExpectHGetAll("live:polymarket:mkt-42").SetVal(map[string]string{
		"market_title":      "Will the Fed cut rates in December?",
		"category":          "economics",
		"updated_at":        "2026-08-24T12:00:00Z",
		"outcome_0_name":    "Yes",
		"outcome_0_price":   "0.41",
		"outcome_0_implied": "0.41",
		"outcome_1_name":    "No",
		"outcome_1_price":   "0.61",
		"outcome_1_implied": "0.61",
	})

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/odds/markets/mkt-42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp MarketResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "polymarket", resp.Venues[0].Venue)
	assert.Equal(t, "mkt-42", resp.Venues[0].MarketID)
	assert.Len(t, resp.Venues[0].Outcomes, 2)
}

func TestOddsMarketRouteNotFound(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	m, err := matcher.New(matcher.Config{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer m.Close()

	assembler := liveodds.New(rdb, m, liveodds.Config{
		ResponseTTL: time.Minute,
		Logger:      zap.NewNop(),
	})
	s := New(&Config{
		Port:          "0",
		Logger:        zap.NewNop(),
		HealthChecker: healthprobe.New(),
		OddsAssembler: assembler,
	})

	mock.ExpectScan(0, "live:*:ghost", 500).SetVal([]string{}, 0)

	w := httptest.NewRecorder()
	s.server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/odds/markets/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOddsHandlerRejectsUnknownCategory(t *testing.T) {
	rdb, _ := redismock.NewClientMock()
	m, err := matcher.New(matcher.Config{Logger: zap.NewNop()})
	require.NoError(t, err)
	defer m.Close()

	assembler := liveodds.New(rdb, m, liveodds.Config{
		ResponseTTL: time.Minute,
		Logger:      zap.NewNop(),
	})
	handler := NewOddsHandler(assembler, zap.NewNop())

	w := httptest.NewRecorder()
	handler.HandleOdds(w, httptest.NewRequest(http.MethodGet, "/api/odds?category=astrology", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Error, "astrology")
}
