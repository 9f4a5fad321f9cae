package httpserver

import (
	"net/http"
	"strconv"

	"github.com/oddsaxiom/pipeline/internal/engine"
	"go.uber.org/zap"
)

const defaultOpportunityLimit = 50

// ArbitrageHandler serves the active opportunity set.
type ArbitrageHandler struct {
	store  *engine.Store
	logger *zap.Logger
}

// NewArbitrageHandler creates an arbitrage handler.
func NewArbitrageHandler(store *engine.Store, logger *zap.Logger) *ArbitrageHandler {
	return &ArbitrageHandler{store: store, logger: logger}
}

// ArbitrageResponse is the envelope for GET /api/arbitrage/opportunities.
type ArbitrageResponse struct {
	Count         int                  `json:"count"`
	Opportunities []engine.Opportunity `json:"opportunities"`
}

// CountResponse is the envelope for GET /api/arbitrage/count.
type CountResponse struct {
	Count int64 `json:"count"`
}

// HandleList handles GET /api/arbitrage/opportunities requests, best profit
// first. Optional query params: limit, min_profit, category.
func (h *ArbitrageHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := int64(defaultOpportunityLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, h.logger, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	minProfit := 0.0
	if raw := r.URL.Query().Get("min_profit"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			writeError(w, h.logger, "min_profit must be a non-negative number", http.StatusBadRequest)
			return
		}
		minProfit = parsed
	}
	category := r.URL.Query().Get("category")

	opps, err := h.store.ActiveOpportunities(r.Context(), limit)
	if err != nil {
		h.logger.Error("opportunity-read-failed", zap.Error(err))
		writeError(w, h.logger, "failed to read opportunities", http.StatusInternalServerError)
		return
	}

	if minProfit > 0 || category != "" {
		filtered := opps[:0]
		for _, opp := range opps {
			if opp.ExpectedProfit < minProfit {
				continue
			}
			if category != "" && opp.Category != category {
				continue
			}
			filtered = append(filtered, opp)
		}
		opps = filtered
	}
	if opps == nil {
		opps = []engine.Opportunity{}
	}

	writeJSON(w, h.logger, ArbitrageResponse{Count: len(opps), Opportunities: opps})
}

// HandleCount handles GET /api/arbitrage/count requests.
func (h *ArbitrageHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.store.ActiveCount(r.Context())
	if err != nil {
		h.logger.Error("opportunity-count-failed", zap.Error(err))
		writeError(w, h.logger, "failed to count opportunities", http.StatusInternalServerError)
		return
	}
	writeJSON(w, h.logger, CountResponse{Count: count})
}
