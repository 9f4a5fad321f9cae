package venues

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"go.uber.org/zap"
)

const (
	theOddsAPIBase = "https://api.the-odds-api.com/v4"
	// theOddsAPISportSleep spaces per-sport requests to avoid burst 429s.
	theOddsAPISportSleep = 2 * time.Second
)

// Kept tight: the free plan allows 500 requests/month and every sport is one
// request per cycle.
var theOddsAPISports = []string{
	"basketball_nba",
	"icehockey_nhl",
	"baseball_mlb",
	"soccer_epl",
	"mma_mixed_martial_arts",
	"americanfootball_nfl",
}

const theOddsAPIBookmakers = "draftkings,fanduel,betmgm,bovada,betrivers"

// TheOddsAPI aggregates US sportsbook moneylines. Quotes carry the
// bookmaker's slug, never the aggregator's, so each book is its own venue in
// the live cache and the engine can arb across books.
type TheOddsAPI struct {
	client   *resty.Client
	apiKey   string
	disabled bool
	logger   *zap.Logger
}

// NewTheOddsAPI creates the aggregator adapter. Without an API key the
// adapter stays idle.
func NewTheOddsAPI(apiKey string, logger *zap.Logger) *TheOddsAPI {
	return &TheOddsAPI{
		apiKey: apiKey,
		logger: logger.With(zap.String("venue", "theoddsapi")),
	}
}

func (t *TheOddsAPI) Slug() string                { return "theoddsapi" }
func (t *TheOddsAPI) PollInterval() time.Duration { return 300 * time.Second }

func (t *TheOddsAPI) Connect(_ context.Context) error {
	if t.apiKey == "" {
		t.logger.Warn("venue-missing-api-key")
	}
	t.client = resty.New().
		SetBaseURL(theOddsAPIBase).
		SetTimeout(30 * time.Second)
	t.logger.Info("venue-connected", zap.Bool("has-key", t.apiKey != ""))
	return nil
}

func (t *TheOddsAPI) Stop() { t.client = nil }

type oddsAPIOutcome struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type oddsAPIMarket struct {
	Key      string           `json:"key"`
	Outcomes []oddsAPIOutcome `json:"outcomes"`
}

type oddsAPIBookmaker struct {
	Key     string          `json:"key"`
	Markets []oddsAPIMarket `json:"markets"`
}

type oddsAPIEvent struct {
	ID         string             `json:"id"`
	HomeTeam   string             `json:"home_team"`
	AwayTeam   string             `json:"away_team"`
	Bookmakers []oddsAPIBookmaker `json:"bookmakers"`
}

// FetchBatch walks the sport list. A 401 disables the adapter until restart;
// a 429 keeps whatever was gathered so far.
func (t *TheOddsAPI) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	if t.apiKey == "" || t.disabled {
		return nil, nil
	}

	now := time.Now().UTC()
	var quotes []types.RawQuote

	for _, sport := range theOddsAPISports {
		resp, err := t.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"apiKey":     t.apiKey,
				"regions":    "us",
				"markets":    "h2h",
				"oddsFormat": "american",
				"bookmakers": theOddsAPIBookmakers,
			}).
			Get("/sports/" + sport + "/odds/")
		if err != nil {
			t.logger.Warn("odds-api-sport-failed", zap.String("sport", sport), zap.Error(err))
			continue
		}

		switch resp.StatusCode() {
		case 401, 403:
			t.disabled = true
			t.logger.Error("odds-api-auth-failed-disabling", zap.Int("status", resp.StatusCode()))
			return quotes, nil
		case 429:
			t.logger.Warn("odds-api-rate-limited", zap.String("sport", sport))
			return quotes, nil
		}
		if resp.IsError() {
			t.logger.Warn("odds-api-sport-error",
				zap.String("sport", sport), zap.Int("status", resp.StatusCode()))
			continue
		}

		var events []oddsAPIEvent
		if err := json.Unmarshal(resp.Body(), &events); err != nil {
			ParseDropsTotal.WithLabelValues(t.Slug()).Inc()
			continue
		}
		for _, event := range events {
			quotes = append(quotes, eventQuotes(event, now)...)
		}

		if remaining := resp.Header().Get("x-requests-remaining"); remaining != "" {
			t.logger.Info("odds-api-quota",
				zap.String("sport", sport),
				zap.String("remaining", remaining),
				zap.Int("events", len(events)))
		}

		select {
		case <-ctx.Done():
			return quotes, ctx.Err()
		case <-time.After(theOddsAPISportSleep):
		}
	}
	return quotes, nil
}

func eventQuotes(event oddsAPIEvent, now time.Time) []types.RawQuote {
	title := event.ID
	if event.HomeTeam != "" && event.AwayTeam != "" {
		title = event.AwayTeam + " @ " + event.HomeTeam
	}

	var quotes []types.RawQuote
	for _, book := range event.Bookmakers {
		for _, market := range book.Markets {
			if market.Key != "h2h" {
				continue
			}
			outcomes := make([]types.OutcomeRef, len(market.Outcomes))
			for i, o := range market.Outcomes {
				outcomes[i] = types.OutcomeRef{Name: o.Name, Index: i}
			}
			for i, o := range market.Outcomes {
				if o.Price == 0 {
					continue
				}
				format := types.FormatAmericanPositive
				if o.Price < 0 {
					format = types.FormatAmericanNegative
				}
				quotes = append(quotes, types.RawQuote{
					VenueSlug:        book.Key,
					ExternalMarketID: fmt.Sprintf("%s_%s", event.ID, book.Key),
					MarketTitle:      title,
					Category:         types.CategorySports,
					OutcomeIndex:     i,
					OutcomeName:      o.Name,
					OutcomeType:      "moneyline",
					Price:            o.Price,
					PriceFormat:      format,
					Outcomes:         outcomes,
					CapturedAt:       now,
				})
			}
		}
	}
	return quotes
}
