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

const limitlessAPIBase = "https://api.limitless.exchange/api-v1"

// Limitless fetches active markets; binary markets without an explicit
// outcome list fall back to yes/no with the no side inferred as 1 - yes.
type Limitless struct {
	client *resty.Client
	logger *zap.Logger
}

// NewLimitless creates the Limitless adapter.
func NewLimitless(logger *zap.Logger) *Limitless {
	return &Limitless{logger: logger.With(zap.String("venue", types.VenueLimitless.Slug))}
}

func (l *Limitless) Slug() string                { return types.VenueLimitless.Slug }
func (l *Limitless) PollInterval() time.Duration { return 30 * time.Second }

func (l *Limitless) Connect(_ context.Context) error {
	l.client = resty.New().
		SetBaseURL(limitlessAPIBase).
		SetTimeout(30 * time.Second).
		SetHeader("Accept", "application/json")
	l.logger.Info("venue-connected")
	return nil
}

func (l *Limitless) Stop() { l.client = nil }

type limitlessOutcome struct {
	Name  string   `json:"name"`
	Title string   `json:"title"`
	Price *float64 `json:"price"`
}

type limitlessMarket struct {
	ID          json.RawMessage    `json:"id"`
	Address     string             `json:"address"`
	Title       string             `json:"title"`
	Question    string             `json:"question"`
	Description string             `json:"description"`
	Outcomes    []limitlessOutcome `json:"outcomes"`
	YesPrice    *float64           `json:"yes_price"`
	NoPrice     *float64           `json:"no_price"`
	Volume      float64            `json:"volume"`
	Liquidity   float64            `json:"liquidity"`
}

// FetchBatch pulls the active market list.
func (l *Limitless) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	resp, err := l.client.R().
		SetContext(ctx).
		SetQueryParam("status", "active").
		Get("/markets")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() == 404 {
		l.logger.Debug("limitless-markets-unavailable")
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("limitless markets: status %d", resp.StatusCode())
	}

	var markets []limitlessMarket
	if err := json.Unmarshal(resp.Body(), &markets); err != nil {
		// Some deployments wrap the list in an envelope.
		var envelope struct {
			Markets []limitlessMarket `json:"markets"`
			Data    []limitlessMarket `json:"data"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return nil, fmt.Errorf("limitless markets decode: %w", err)
		}
		markets = envelope.Markets
		if len(markets) == 0 {
			markets = envelope.Data
		}
	}

	now := time.Now().UTC()
	var quotes []types.RawQuote
	for _, market := range markets {
		quotes = append(quotes, l.marketQuotes(market, now)...)
	}
	return quotes, nil
}

func (l *Limitless) marketQuotes(market limitlessMarket, now time.Time) []types.RawQuote {
	title := market.Title
	if title == "" {
		title = market.Question
	}
	marketID := rawID(market.ID)
	if marketID == "" {
		marketID = market.Address
	}
	if title == "" || marketID == "" {
		return nil
	}

	category := classifyKeywords(title, sharedKeywordRules, types.CategoryCulture)
	url := "https://limitless.exchange/markets/" + marketID

	// Binary fallback: no explicit outcome list, just a yes price.
	if len(market.Outcomes) == 0 {
		if market.YesPrice == nil {
			return nil
		}
		quotes := binaryQuotes(l.Slug(), marketID, title, category, url,
			*market.YesPrice, types.FormatProbability, 0, 0, now)
		if market.NoPrice != nil {
			quotes[1].Price = *market.NoPrice
		}
		for i := range quotes {
			quotes[i].VolumeUSD = market.Volume
			quotes[i].LiquidityUSD = market.Liquidity
			quotes[i].Description = market.Description
		}
		return quotes
	}

	outcomes := make([]types.OutcomeRef, len(market.Outcomes))
	for i, o := range market.Outcomes {
		name := o.Name
		if name == "" {
			name = o.Title
		}
		outcomes[i] = types.OutcomeRef{Name: name, Index: i}
	}

	var quotes []types.RawQuote
	for i, o := range market.Outcomes {
		if o.Price == nil {
			continue
		}
		quotes = append(quotes, types.RawQuote{
			VenueSlug:        l.Slug(),
			ExternalMarketID: marketID,
			MarketTitle:      title,
			Category:         category,
			OutcomeIndex:     i,
			OutcomeName:      outcomes[i].Name,
			Price:            *o.Price,
			PriceFormat:      types.FormatProbability,
			VolumeUSD:        market.Volume,
			LiquidityUSD:     market.Liquidity,
			MarketURL:        url,
			Description:      market.Description,
			Outcomes:         outcomes,
			CapturedAt:       now,
		})
	}
	return quotes
}

// rawID renders a JSON id that may be either a number or a string.
func rawID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
