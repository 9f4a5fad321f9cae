package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/oddsaxiom/pipeline/internal/liveodds"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"go.uber.org/zap"
)

// OddsHandler serves grouped live odds.
type OddsHandler struct {
	assembler *liveodds.Assembler
	logger    *zap.Logger
}

// NewOddsHandler creates an odds handler.
func NewOddsHandler(assembler *liveodds.Assembler, logger *zap.Logger) *OddsHandler {
	return &OddsHandler{assembler: assembler, logger: logger}
}

// OddsResponse is the envelope for GET /api/odds.
type OddsResponse struct {
	Category string                 `json:"category,omitempty"`
	Total    int                    `json:"total"`
	Count    int                    `json:"count"`
	Offset   int                    `json:"offset"`
	Markets  []liveodds.MarketGroup `json:"markets"`
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

var validCategories = map[string]bool{
	string(types.CategoryPolitics):  true,
	string(types.CategoryEconomics): true,
	string(types.CategoryCrypto):    true,
	string(types.CategoryScience):   true,
	string(types.CategoryCulture):   true,
	string(types.CategorySports):    true,
}

// HandleOdds handles GET /api/odds?category=<c>&limit=<n>&offset=<n> requests.
// Without a category it returns every live market group; limit/offset page
// through the coverage-sorted groups.
func (h *OddsHandler) HandleOdds(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category != "" && !validCategories[category] {
		writeError(w, h.logger, "unknown category: "+category, http.StatusBadRequest)
		return
	}
	limit, ok := queryInt(r, "limit", 0)
	if !ok {
		writeError(w, h.logger, "limit must be a positive integer", http.StatusBadRequest)
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok {
		writeError(w, h.logger, "offset must be a positive integer", http.StatusBadRequest)
		return
	}

	groups, err := h.assembler.Assemble(r.Context(), category)
	if err != nil {
		h.logger.Error("odds-assembly-failed", zap.Error(err))
		writeError(w, h.logger, "failed to assemble odds", http.StatusInternalServerError)
		return
	}

	total := len(groups)
	if offset >= total {
		groups = nil
	} else {
		groups = groups[offset:]
	}
	if limit > 0 && limit < len(groups) {
		groups = groups[:limit]
	}
	if groups == nil {
		groups = []liveodds.MarketGroup{}
	}

	writeJSON(w, h.logger, OddsResponse{
		Category: category,
		Total:    total,
		Count:    len(groups),
		Offset:   offset,
		Markets:  groups,
	})
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}

// MarketResponse is the envelope for GET /api/odds/markets/{marketID}.
type MarketResponse struct {
	MarketID string               `json:"market_id"`
	Count    int                  `json:"count"`
	Venues   []liveodds.VenueOdds `json:"venues"`
}

// HandleMarket handles GET /api/odds/markets/{marketID} requests: every
// venue's live entry carrying that external market ID. 404 when no venue
// has a live entry for it.
func (h *OddsHandler) HandleMarket(w http.ResponseWriter, r *http.Request) {
	marketID := chi.URLParam(r, "marketID")
	if marketID == "" {
		writeError(w, h.logger, "market id is required", http.StatusBadRequest)
		return
	}

	entries, err := h.assembler.Lookup(r.Context(), marketID)
	if err != nil {
		h.logger.Error("market-lookup-failed", zap.Error(err))
		writeError(w, h.logger, "failed to look up market", http.StatusInternalServerError)
		return
	}
	if len(entries) == 0 {
		writeError(w, h.logger, "market not found: "+marketID, http.StatusNotFound)
		return
	}

	writeJSON(w, h.logger, MarketResponse{
		MarketID: marketID,
		Count:    len(entries),
		Venues:   entries,
	})
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: message}); err != nil {
		logger.Error("failed-to-encode-error-response", zap.Error(err))
	}
}
