package venues

import (
	"testing"
	"time"

	"github.com/oddsaxiom/pipeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPolymarketMarketQuotes(t *testing.T) {
	p := NewPolymarket(zap.NewNop())
	now := time.Now().UTC()

	event := gammaEvent{
		Title: "Fed decision",
		Slug:  "fed-decision-december",
	}
	market := gammaMarket{
		ConditionID:   "0xabc",
		Question:      "Will the Fed cut rates in December?",
		OutcomePrices: `["0.62", "0.39"]`,
		Outcomes:      `["Yes", "No"]`,
		Volume:        "125000.5",
		Liquidity:     "8000",
	}

	quotes := p.marketQuotes(event, market, types.CategoryEconomics, now)
	require.Len(t, quotes, 2)

	assert.Equal(t, "polymarket", quotes[0].VenueSlug)
	assert.Equal(t, "0xabc", quotes[0].ExternalMarketID)
	assert.Equal(t, "Will the Fed cut rates in December?", quotes[0].MarketTitle)
	assert.Equal(t, "Yes", quotes[0].OutcomeName)
	assert.InDelta(t, 0.62, quotes[0].Price, 1e-9)
	assert.Equal(t, types.FormatProbability, quotes[0].PriceFormat)
	assert.InDelta(t, 125000.5, quotes[0].VolumeUSD, 1e-9)
	assert.Equal(t, "https://polymarket.com/event/fed-decision-december", quotes[0].MarketURL)

	assert.Equal(t, "No", quotes[1].OutcomeName)
	assert.InDelta(t, 0.39, quotes[1].Price, 1e-9)
	require.Len(t, quotes[1].Outcomes, 2)
}

func TestPolymarketMarketQuotesMalformedPrices(t *testing.T) {
	p := NewPolymarket(zap.NewNop())
	now := time.Now().UTC()

	market := gammaMarket{
		ID:            "12345",
		Question:      "Broken market",
		OutcomePrices: `not-json`,
		Outcomes:      `["Yes", "No"]`,
	}
	assert.Empty(t, p.marketQuotes(gammaEvent{}, market, types.CategoryPolitics, now))
}

func TestPolymarketMarketQuotesFallsBackToYesNoNames(t *testing.T) {
	p := NewPolymarket(zap.NewNop())
	now := time.Now().UTC()

	market := gammaMarket{
		ID:            "67890",
		Question:      "Unnamed outcomes",
		OutcomePrices: `["0.5", "0.5"]`,
		Outcomes:      ``,
	}
	quotes := p.marketQuotes(gammaEvent{Slug: "x"}, market, types.CategoryPolitics, now)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Yes", quotes[0].OutcomeName)
	assert.Equal(t, "No", quotes[1].OutcomeName)
	assert.Equal(t, "67890", quotes[0].ExternalMarketID)
}

func TestPolymarketCandidateMarketsGetBinaryTitles(t *testing.T) {
	p := NewPolymarket(zap.NewNop())
	now := time.Now().UTC()

	event := gammaEvent{
		Title: "Who will win the 2028 Democratic nomination?",
		Slug:  "democratic-nomination-2028",
		Markets: []gammaMarket{
			{ID: "1", GroupItemTitle: "Gavin Newsom"},
			{ID: "2", GroupItemTitle: "Gretchen Whitmer"},
		},
	}
	market := gammaMarket{
		ID:             "1",
		GroupItemTitle: "Gavin Newsom",
		OutcomePrices:  `["0.25", "0.75"]`,
		Outcomes:       `["Yes", "No"]`,
	}

	quotes := p.marketQuotes(event, market, types.CategoryPolitics, now)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Will Gavin Newsom win the 2028 Democratic nomination?", quotes[0].MarketTitle)
}

func TestPolymarketSingleMarketKeepsEventTitle(t *testing.T) {
	p := NewPolymarket(zap.NewNop())
	now := time.Now().UTC()

	event := gammaEvent{
		Title:   "Will the Fed cut rates in December?",
		Slug:    "fed-december",
		Markets: []gammaMarket{{ID: "1"}},
	}
	market := gammaMarket{
		ID:             "1",
		GroupItemTitle: "Fed cut",
		OutcomePrices:  `["0.6", "0.4"]`,
		Outcomes:       `["Yes", "No"]`,
	}

	quotes := p.marketQuotes(event, market, types.CategoryEconomics, now)
	require.Len(t, quotes, 2)
	assert.Equal(t, "Will the Fed cut rates in December?", quotes[0].MarketTitle)
}

func TestPolymarketClassifyUsesTags(t *testing.T) {
	p := NewPolymarket(zap.NewNop())

	event := gammaEvent{
		Title: "Who wins the championship?",
		Tags:  []gammaTag{{Label: "NBA"}},
	}
	assert.Equal(t, types.CategorySports, p.classify(event))

	assert.Equal(t, types.CategoryPolitics,
		p.classify(gammaEvent{Title: "Completely unclassifiable"}))
}
