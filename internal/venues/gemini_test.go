package venues

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGeminiEventQuotesPriceFallbacks(t *testing.T) {
	g := NewGemini(zap.NewNop())
	now := time.Now().UTC()

	event := geminiEvent{
		ID:       "evt-9",
		Ticker:   "GEMFED25",
		Title:    "Fed cuts rates in December?",
		Slug:     "fed-cuts-december",
		Category: "Economics",
		Volume:   "54000",
		Contracts: []geminiContract{
			{Label: "Yes", Prices: geminiPrices{LastTradePrice: "0.41", BestBid: "0.40", BestAsk: "0.42"}},
			{Label: "No", Prices: geminiPrices{BestAsk: "0.60"}},
			{Label: "Maybe", Prices: geminiPrices{Buy: struct {
				Yes string `json:"yes"`
			}{Yes: "0.05"}}},
			{Label: "Unpriced"},
		},
	}

	quotes := g.eventQuotes(event, now)
	require.Len(t, quotes, 3)

	assert.Equal(t, "gemini", quotes[0].VenueSlug)
	assert.Equal(t, "GEMFED25", quotes[0].ExternalMarketID)
	assert.InDelta(t, 0.41, quotes[0].Price, 1e-9)
	assert.InDelta(t, 0.60, quotes[1].Price, 1e-9)
	assert.InDelta(t, 0.05, quotes[2].Price, 1e-9)
	assert.Equal(t, types.CategoryEconomics, quotes[0].Category)
	assert.Equal(t, "https://www.gemini.com/predictions/fed-cuts-december", quotes[0].MarketURL)
	assert.InDelta(t, 54000, quotes[0].VolumeUSD, 1e-9)
	// All four declared outcomes are listed even when some are unpriced.
	require.Len(t, quotes[0].Outcomes, 4)
}

func TestLimitlessRawID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{`"abc-123"`, "abc-123"},
		{`4711`, "4711"},
		{``, ""},
		{`{"nested": true}`, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rawID(json.RawMessage(tt.raw)), tt.raw)
	}
}

func TestLimitlessBinaryFallback(t *testing.T) {
	l := NewLimitless(zap.NewNop())
	yes := 0.27

	market := limitlessMarket{
		ID:       json.RawMessage(`"mk-42"`),
		Title:    "Will ETH flip BTC this year?",
		YesPrice: &yes,
		Volume:   12000,
	}

	quotes := l.marketQuotes(market, time.Now().UTC())
	require.Len(t, quotes, 2)
	assert.Equal(t, "limitless", quotes[0].VenueSlug)
	assert.Equal(t, types.CategoryCrypto, quotes[0].Category)
	assert.InDelta(t, 0.27, quotes[0].Price, 1e-9)
	assert.InDelta(t, 0.73, quotes[1].Price, 1e-9)
	assert.InDelta(t, 12000, quotes[0].VolumeUSD, 1e-9)
	assert.Equal(t, "https://limitless.exchange/markets/mk-42", quotes[0].MarketURL)
}

func TestLimitlessExplicitOutcomes(t *testing.T) {
	l := NewLimitless(zap.NewNop())
	p1, p2 := 0.6, 0.41

	market := limitlessMarket{
		Address: "0xdeadbeef",
		Title:   "Who wins the election?",
		Outcomes: []limitlessOutcome{
			{Name: "Candidate A", Price: &p1},
			{Title: "Candidate B", Price: &p2},
			{Name: "Candidate C"},
		},
	}

	quotes := l.marketQuotes(market, time.Now().UTC())
	require.Len(t, quotes, 2)
	assert.Equal(t, "0xdeadbeef", quotes[0].ExternalMarketID)
	assert.Equal(t, "Candidate B", quotes[1].OutcomeName)
	assert.Equal(t, types.CategoryPolitics, quotes[0].Category)
}
