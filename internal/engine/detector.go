package engine

// detect runs the arbitrage check on one canonical book snapshot.
//
// The book qualifies only when it has at least two outcomes and its quotes
// span at least two venues; a single venue's own book always sums to 1 plus
// the vig and a single-outcome book has nothing to hedge against.
//
// For each outcome the cheapest venue wins (lowest implied probability is the
// best buy). Ties break to the earliest capturedAt, then venue slug, so the
// same snapshot always yields the same legs. The result must use distinct
// venues per leg and its implied total must sit below 1 - minProfit.
func detect(view bookView, minProfit, totalStake float64) (*Opportunity, bool) {
	if len(view.outcomes) < 2 {
		DetectionsSkippedTotal.WithLabelValues("single_outcome").Inc()
		return nil, false
	}

	venues := map[string]struct{}{}
	for _, slots := range view.outcomes {
		for _, s := range slots {
			venues[s.venue] = struct{}{}
		}
	}
	if len(venues) < 2 {
		DetectionsSkippedTotal.WithLabelValues("single_venue").Inc()
		return nil, false
	}

	legs := make([]Leg, 0, len(view.outcomes))
	legVenues := map[string]struct{}{}
	totalImplied := 0.0

	for outcome, slots := range view.outcomes {
		if len(slots) == 0 {
			DetectionsSkippedTotal.WithLabelValues("outcome_unquoted").Inc()
			return nil, false
		}
		best := bestSlot(slots)
		if _, dup := legVenues[best.venue]; dup {
			DetectionsSkippedTotal.WithLabelValues("overlapping_legs").Inc()
			return nil, false
		}
		legVenues[best.venue] = struct{}{}
		totalImplied += best.impliedProb
		legs = append(legs, Leg{
			VenueSlug:        best.venue,
			ExternalMarketID: best.marketID,
			OutcomeName:      outcome,
			Price:            best.price,
			ImpliedProb:      best.impliedProb,
		})
	}

	if totalImplied >= 1.0-minProfit {
		DetectionsSkippedTotal.WithLabelValues("no_edge").Inc()
		return nil, false
	}

	return NewOpportunity(view.canonical, view.category, legs, totalStake), true
}

func bestSlot(slots []quoteSlot) quoteSlot {
	best := slots[0]
	for _, s := range slots[1:] {
		switch {
		case s.impliedProb < best.impliedProb:
			best = s
		case s.impliedProb == best.impliedProb && earlier(s, best):
			best = s
		}
	}
	return best
}

func earlier(a, b quoteSlot) bool {
	if !a.capturedAt.Equal(b.capturedAt) {
		return a.capturedAt.Before(b.capturedAt)
	}
	return a.venue < b.venue
}
