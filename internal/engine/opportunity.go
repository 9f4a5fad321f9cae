package engine

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Leg is one side of an arbitrage: buy this outcome at this venue.
type Leg struct {
	VenueSlug        string  `json:"venue_slug"`
	ExternalMarketID string  `json:"external_market_id"`
	OutcomeName      string  `json:"outcome_name"`
	Price            float64 `json:"price"`
	ImpliedProb      float64 `json:"implied_prob"`
	SuggestedStake   float64 `json:"suggested_stake"`
}

// Opportunity is a set of legs, one per outcome, whose implied probabilities
// sum below 1. It lives only in the opportunity store for a short expiry.
type Opportunity struct {
	ID             string    `json:"id"`
	CanonicalTitle string    `json:"canonical_title"`
	Category       string    `json:"category"`
	TotalImplied   float64   `json:"total_implied"`
	ExpectedProfit float64   `json:"expected_profit"`
	Legs           []Leg     `json:"legs"`
	DetectedAt     time.Time `json:"detected_at"`
}

// NewOpportunity builds an opportunity from best-per-outcome legs and sizes
// the stakes so every leg pays out the same amount: stake_i is proportional
// to 1/p_i, normalised to totalStake.
func NewOpportunity(canonicalTitle, category string, legs []Leg, totalStake float64) *Opportunity {
	totalImplied := 0.0
	invSum := 0.0
	for _, leg := range legs {
		totalImplied += leg.ImpliedProb
		invSum += 1.0 / leg.ImpliedProb
	}
	for i := range legs {
		legs[i].SuggestedStake = totalStake * (1.0 / legs[i].ImpliedProb) / invSum
	}

	return &Opportunity{
		ID:             uuid.New().String(),
		CanonicalTitle: canonicalTitle,
		Category:       category,
		TotalImplied:   totalImplied,
		ExpectedProfit: 1.0 - totalImplied,
		Legs:           legs,
		DetectedAt:     time.Now().UTC(),
	}
}

// StoreKey hashes the canonical title together with the sorted outcome names,
// so two simultaneous opportunities on the same title but different outcome
// sets land on different store entries instead of clobbering each other.
func (o *Opportunity) StoreKey() string {
	names := make([]string, len(o.Legs))
	for i, leg := range o.Legs {
		names[i] = leg.OutcomeName
	}
	sort.Strings(names)

	h := fnv.New64a()
	h.Write([]byte(o.CanonicalTitle))
	for _, n := range names {
		h.Write([]byte{0})
		h.Write([]byte(n))
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// String renders a compact one-line summary for logs.
func (o *Opportunity) String() string {
	return fmt.Sprintf("Opportunity[%s] %q legs=%d total=%.4f profit=%.4f",
		o.ID[:8], o.CanonicalTitle, len(o.Legs), o.TotalImplied, o.ExpectedProfit)
}
