package venues

import (
	"context"
	"testing"
	"time"

	"github.com/oddsaxiom/pipeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOddsAPIEventQuotes(t *testing.T) {
	event := oddsAPIEvent{
		ID:       "evt123",
		HomeTeam: "Celtics",
		AwayTeam: "Lakers",
		Bookmakers: []oddsAPIBookmaker{
			{
				Key: "draftkings",
				Markets: []oddsAPIMarket{
					{
						Key: "h2h",
						Outcomes: []oddsAPIOutcome{
							{Name: "Celtics", Price: -150},
							{Name: "Lakers", Price: 130},
						},
					},
					{Key: "spreads", Outcomes: []oddsAPIOutcome{{Name: "Celtics", Price: -110}}},
				},
			},
			{
				Key: "fanduel",
				Markets: []oddsAPIMarket{
					{
						Key: "h2h",
						Outcomes: []oddsAPIOutcome{
							{Name: "Celtics", Price: -145},
							{Name: "Lakers", Price: 0},
						},
					},
				},
			},
		},
	}

	quotes := eventQuotes(event, time.Now().UTC())
	// Non-h2h markets and zero prices are skipped.
	require.Len(t, quotes, 3)

	assert.Equal(t, "Lakers @ Celtics", quotes[0].MarketTitle)
	assert.Equal(t, "draftkings", quotes[0].VenueSlug)
	assert.Equal(t, "evt123_draftkings", quotes[0].ExternalMarketID)
	assert.Equal(t, types.FormatAmericanNegative, quotes[0].PriceFormat)
	assert.Equal(t, types.FormatAmericanPositive, quotes[1].PriceFormat)
	assert.Equal(t, "moneyline", quotes[0].OutcomeType)
	assert.Equal(t, types.CategorySports, quotes[0].Category)

	assert.Equal(t, "fanduel", quotes[2].VenueSlug)
	assert.Equal(t, "evt123_fanduel", quotes[2].ExternalMarketID)
}

func TestOddsAPIIdleWithoutKey(t *testing.T) {
	adapter := NewTheOddsAPI("", zapNop())
	require.NoError(t, adapter.Connect(context.Background()))

	quotes, err := adapter.FetchBatch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, quotes)
}
