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

const gammaAPIBase = "https://gamma-api.polymarket.com"

var polymarketKeywordRules = append([]keywordRule{
	{"trump", types.CategoryPolitics},
	{"biden", types.CategoryPolitics},
	{"recession", types.CategoryEconomics},
}, sharedKeywordRules...)

// Polymarket fetches active events from the Gamma API. Prices arrive as
// JSON-encoded string arrays alongside the outcome names.
type Polymarket struct {
	client *resty.Client
	logger *zap.Logger
}

// NewPolymarket creates the Polymarket adapter.
func NewPolymarket(logger *zap.Logger) *Polymarket {
	return &Polymarket{logger: logger.With(zap.String("venue", types.VenuePolymarket.Slug))}
}

func (p *Polymarket) Slug() string                { return types.VenuePolymarket.Slug }
func (p *Polymarket) PollInterval() time.Duration { return 30 * time.Second }

func (p *Polymarket) Connect(_ context.Context) error {
	p.client = resty.New().
		SetBaseURL(gammaAPIBase).
		SetTimeout(30 * time.Second)
	p.logger.Info("venue-connected")
	return nil
}

func (p *Polymarket) Stop() { p.client = nil }

type gammaTag struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

type gammaMarket struct {
	ID             string `json:"id"`
	ConditionID    string `json:"conditionId"`
	Question       string `json:"question"`
	GroupItemTitle string `json:"groupItemTitle"`
	OutcomePrices  string `json:"outcomePrices"`
	Outcomes       string `json:"outcomes"`
	Volume         string `json:"volume"`
	Liquidity      string `json:"liquidity"`
	Description    string `json:"description"`
}

type gammaEvent struct {
	Title   string        `json:"title"`
	Slug    string        `json:"slug"`
	Tags    []gammaTag    `json:"tags"`
	Markets []gammaMarket `json:"markets"`
}

// FetchBatch pulls active, unresolved events with their nested markets.
func (p *Polymarket) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"active": "true",
			"closed": "false",
			"limit":  "100",
		}).
		Get("/events")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("gamma events: status %d", resp.StatusCode())
	}

	var events []gammaEvent
	if err := json.Unmarshal(resp.Body(), &events); err != nil {
		return nil, fmt.Errorf("gamma events decode: %w", err)
	}

	now := time.Now().UTC()
	var quotes []types.RawQuote
	for _, event := range events {
		category := p.classify(event)
		for _, market := range event.Markets {
			quotes = append(quotes, p.marketQuotes(event, market, category, now)...)
		}
	}
	return quotes, nil
}

func (p *Polymarket) classify(event gammaEvent) types.Category {
	text := event.Title
	for _, tag := range event.Tags {
		text += " " + tag.Label + " " + tag.Name
	}
	return classifyKeywords(text, polymarketKeywordRules, types.CategoryPolitics)
}

func (p *Polymarket) marketQuotes(event gammaEvent, market gammaMarket, category types.Category, now time.Time) []types.RawQuote {
	marketID := market.ConditionID
	if marketID == "" {
		marketID = market.ID
	}
	// Candidate sub-markets of an event often carry the bare event title as
	// their question; rebuild a per-candidate binary title so they can match
	// per-candidate markets elsewhere.
	title := market.Question
	if market.GroupItemTitle != "" && (title == "" || title == event.Title) && len(event.Markets) > 1 {
		title = disambiguateTitle(event.Title, market.GroupItemTitle)
	}
	if title == "" {
		title = event.Title
	}

	// outcomePrices and outcomes are JSON string arrays embedded as strings.
	var prices, names []string
	if err := json.Unmarshal([]byte(market.OutcomePrices), &prices); err != nil {
		ParseDropsTotal.WithLabelValues(p.Slug()).Inc()
		return nil
	}
	if err := json.Unmarshal([]byte(market.Outcomes), &names); err != nil || len(names) == 0 {
		names = []string{"Yes", "No"}
	}

	outcomes := make([]types.OutcomeRef, len(names))
	for i, n := range names {
		outcomes[i] = types.OutcomeRef{Name: n, Index: i}
	}

	var quotes []types.RawQuote
	for i := 0; i < len(names) && i < len(prices); i++ {
		price, ok := parseFloat(prices[i])
		if !ok {
			ParseDropsTotal.WithLabelValues(p.Slug()).Inc()
			continue
		}
		quotes = append(quotes, types.RawQuote{
			VenueSlug:        p.Slug(),
			ExternalMarketID: marketID,
			MarketTitle:      title,
			Category:         category,
			OutcomeIndex:     i,
			OutcomeName:      names[i],
			Price:            price,
			PriceFormat:      types.FormatProbability,
			VolumeUSD:        parseFloatOrZero(market.Volume),
			LiquidityUSD:     parseFloatOrZero(market.Liquidity),
			MarketURL:        "https://polymarket.com/event/" + event.Slug,
			Description:      market.Description,
			Outcomes:         outcomes,
			CapturedAt:       now,
		})
	}
	return quotes
}
