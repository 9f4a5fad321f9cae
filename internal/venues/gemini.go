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
	geminiAPIBase   = "https://api.gemini.com/v1/prediction-markets"
	geminiPageLimit = 100
	geminiMaxPages  = 10
)

var geminiCategoryTable = map[string]types.Category{
	"politics":      types.CategoryPolitics,
	"elections":     types.CategoryPolitics,
	"economics":     types.CategoryEconomics,
	"economy":       types.CategoryEconomics,
	"financial":     types.CategoryEconomics,
	"crypto":        types.CategoryCrypto,
	"sports":        types.CategorySports,
	"entertainment": types.CategoryCulture,
	"fun/culture":   types.CategoryCulture,
	"media":         types.CategoryCulture,
	"science":       types.CategoryScience,
	"technology":    types.CategoryScience,
	"climate":       types.CategoryScience,
	"weather":       types.CategoryScience,
}

// Gemini fetches event contracts from the public predictions endpoint with
// offset pagination. Prices are nested per contract; lastTradePrice is
// canonical with bestAsk and buy.yes as fallbacks.
type Gemini struct {
	client *resty.Client
	logger *zap.Logger
}

// NewGemini creates the Gemini adapter.
func NewGemini(logger *zap.Logger) *Gemini {
	return &Gemini{logger: logger.With(zap.String("venue", types.VenueGemini.Slug))}
}

func (g *Gemini) Slug() string                { return types.VenueGemini.Slug }
func (g *Gemini) PollInterval() time.Duration { return 30 * time.Second }

func (g *Gemini) Connect(_ context.Context) error {
	g.client = resty.New().
		SetBaseURL(geminiAPIBase).
		SetTimeout(30 * time.Second)
	g.logger.Info("venue-connected")
	return nil
}

func (g *Gemini) Stop() { g.client = nil }

type geminiPrices struct {
	LastTradePrice string `json:"lastTradePrice"`
	BestAsk        string `json:"bestAsk"`
	BestBid        string `json:"bestBid"`
	Buy            struct {
		Yes string `json:"yes"`
	} `json:"buy"`
}

type geminiContract struct {
	Label  string       `json:"label"`
	Prices geminiPrices `json:"prices"`
}

type geminiEvent struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Slug      string           `json:"slug"`
	Category  string           `json:"category"`
	Ticker    string           `json:"ticker"`
	Volume    string           `json:"volume"`
	Volume24h string           `json:"volume24h"`
	Contracts []geminiContract `json:"contracts"`
}

type geminiPage struct {
	Data       []geminiEvent `json:"data"`
	Pagination struct {
		Total int `json:"total"`
	} `json:"pagination"`
}

// FetchBatch pages through active events. A 404 means the endpoint is not
// served in this region; a 429 keeps the partial batch.
func (g *Gemini) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	now := time.Now().UTC()
	var quotes []types.RawQuote
	offset := 0

	for page := 0; page < geminiMaxPages; page++ {
		resp, err := g.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"status[]": "active",
				"limit":    fmt.Sprint(geminiPageLimit),
				"offset":   fmt.Sprint(offset),
			}).
			Get("/events")
		if err != nil {
			return quotes, err
		}
		switch resp.StatusCode() {
		case 404:
			g.logger.Debug("gemini-predictions-unavailable")
			return nil, nil
		case 429:
			g.logger.Warn("gemini-rate-limited")
			return quotes, nil
		}
		if resp.IsError() {
			return quotes, fmt.Errorf("gemini events: status %d", resp.StatusCode())
		}

		var body geminiPage
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return quotes, fmt.Errorf("gemini events decode: %w", err)
		}
		if len(body.Data) == 0 {
			break
		}

		for _, event := range body.Data {
			quotes = append(quotes, g.eventQuotes(event, now)...)
		}

		offset += geminiPageLimit
		if offset >= body.Pagination.Total {
			break
		}
	}
	return quotes, nil
}

func (g *Gemini) eventQuotes(event geminiEvent, now time.Time) []types.RawQuote {
	if event.Title == "" || len(event.Contracts) == 0 {
		return nil
	}

	category, ok := mapNativeCategory(geminiCategoryTable, event.Category)
	if !ok {
		category = classifyKeywords(event.Title, sharedKeywordRules, types.CategoryPolitics)
	}

	marketID := event.Ticker
	if marketID == "" {
		marketID = event.ID
	}
	var url string
	if event.Slug != "" {
		url = "https://www.gemini.com/predictions/" + event.Slug
	}

	outcomes := make([]types.OutcomeRef, len(event.Contracts))
	for i, c := range event.Contracts {
		outcomes[i] = types.OutcomeRef{Name: c.Label, Index: i}
	}

	var quotes []types.RawQuote
	for i, c := range event.Contracts {
		priceStr := c.Prices.LastTradePrice
		if priceStr == "" {
			priceStr = c.Prices.BestAsk
		}
		if priceStr == "" {
			priceStr = c.Prices.Buy.Yes
		}
		price, ok := parseFloat(priceStr)
		if !ok || price <= 0 {
			ParseDropsTotal.WithLabelValues(g.Slug()).Inc()
			continue
		}
		quotes = append(quotes, types.RawQuote{
			VenueSlug:        g.Slug(),
			ExternalMarketID: marketID,
			MarketTitle:      event.Title,
			Category:         category,
			OutcomeIndex:     i,
			OutcomeName:      c.Label,
			Price:            price,
			PriceFormat:      types.FormatProbability,
			Bid:              parseFloatOrZero(c.Prices.BestBid),
			Ask:              parseFloatOrZero(c.Prices.BestAsk),
			VolumeUSD:        firstNonZero(parseFloatOrZero(event.Volume), parseFloatOrZero(event.Volume24h)),
			MarketURL:        url,
			Outcomes:         outcomes,
			CapturedAt:       now,
		})
	}
	return quotes
}
