package venues

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"go.uber.org/zap"
)

const (
	kalshiAPIBase = "https://api.elections.kalshi.com/trade-api/v2"

	kalshiMaxPages  = 10
	kalshiPageLimit = 200
	// kalshiPageSleep spaces page requests to stay under the rate limit.
	kalshiPageSleep = 1500 * time.Millisecond
)

// Multi-game parlay tickers are unique to Kalshi and can never match
// cross-venue; there are thousands of them and they crowd out real markets.
var kalshiSkipPrefixes = []string{"KXMVESPORTSMULTIGAMEEXTENDED"}

var kalshiCategoryTable = map[string]types.Category{
	"politics":               types.CategoryPolitics,
	"elections":              types.CategoryPolitics,
	"world":                  types.CategoryPolitics,
	"economics":              types.CategoryEconomics,
	"financials":             types.CategoryEconomics,
	"companies":              types.CategoryEconomics,
	"crypto":                 types.CategoryCrypto,
	"sports":                 types.CategorySports,
	"entertainment":          types.CategoryCulture,
	"social":                 types.CategoryCulture,
	"mentions":               types.CategoryCulture,
	"science and technology": types.CategoryScience,
	"climate and weather":    types.CategoryScience,
	"health":                 types.CategoryScience,
	"transportation":         types.CategoryScience,
}

// Kalshi pulls binary markets in cents. Political markets carry status
// "active" while sports parlays use "open"; both statuses are fetched.
type Kalshi struct {
	client *resty.Client
	apiKey string
	logger *zap.Logger
}

// NewKalshi creates the Kalshi adapter. An empty apiKey still works for
// public market data.
func NewKalshi(apiKey string, logger *zap.Logger) *Kalshi {
	return &Kalshi{
		apiKey: apiKey,
		logger: logger.With(zap.String("venue", types.VenueKalshi.Slug)),
	}
}

func (k *Kalshi) Slug() string                { return types.VenueKalshi.Slug }
func (k *Kalshi) PollInterval() time.Duration { return 30 * time.Second }

func (k *Kalshi) Connect(_ context.Context) error {
	k.client = resty.New().
		SetBaseURL(kalshiAPIBase).
		SetTimeout(30 * time.Second)
	if k.apiKey != "" {
		k.client.SetAuthToken(k.apiKey)
	}
	k.logger.Info("venue-connected", zap.Bool("authenticated", k.apiKey != ""))
	return nil
}

func (k *Kalshi) Stop() { k.client = nil }

type kalshiMarket struct {
	Ticker      string  `json:"ticker"`
	EventTicker string  `json:"event_ticker"`
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle"`
	Category    string  `json:"category"`
	YesAsk      float64 `json:"yes_ask"`
	YesBid      float64 `json:"yes_bid"`
	NoAsk       float64 `json:"no_ask"`
	NoBid       float64 `json:"no_bid"`
	LastPrice   float64 `json:"last_price"`
	Volume      float64 `json:"volume"`
}

type kalshiMarketsPage struct {
	Markets []kalshiMarket `json:"markets"`
	Cursor  string         `json:"cursor"`
}

// FetchBatch pages through both market statuses with cursor pagination.
// A failing status yields what it got so far; the other status still runs.
func (k *Kalshi) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	now := time.Now().UTC()
	var quotes []types.RawQuote

	for _, status := range []string{"active", "open"} {
		page, err := k.fetchStatus(ctx, status, now)
		if err != nil {
			k.logger.Warn("kalshi-status-fetch-failed",
				zap.String("status", status), zap.Error(err))
			continue
		}
		quotes = append(quotes, page...)
	}
	return quotes, nil
}

func (k *Kalshi) fetchStatus(ctx context.Context, status string, now time.Time) ([]types.RawQuote, error) {
	var (
		quotes []types.RawQuote
		cursor string
	)

	for page := 0; page < kalshiMaxPages; page++ {
		req := k.client.R().
			SetContext(ctx).
			SetQueryParam("status", status).
			SetQueryParam("limit", fmt.Sprint(kalshiPageLimit))
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}

		resp, err := req.Get("/markets")
		if err != nil {
			return quotes, err
		}
		if resp.IsError() {
			return quotes, fmt.Errorf("kalshi markets: status %d", resp.StatusCode())
		}

		var body kalshiMarketsPage
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return quotes, fmt.Errorf("kalshi markets decode: %w", err)
		}

		for _, m := range body.Markets {
			quotes = append(quotes, k.marketQuotes(m, now)...)
		}

		cursor = body.Cursor
		if cursor == "" || len(body.Markets) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			return quotes, ctx.Err()
		case <-time.After(kalshiPageSleep):
		}
	}
	return quotes, nil
}

func (k *Kalshi) marketQuotes(m kalshiMarket, now time.Time) []types.RawQuote {
	for _, prefix := range kalshiSkipPrefixes {
		if strings.HasPrefix(m.EventTicker, prefix) {
			return nil
		}
	}

	title := m.Title
	if title == "" {
		title = m.Subtitle
	}
	yesPrice := firstNonZero(m.YesAsk, m.LastPrice)
	if title == "" || yesPrice == 0 {
		return nil
	}

	category, ok := mapNativeCategory(kalshiCategoryTable, m.Category)
	if !ok {
		category = classifyKeywords(title+" "+m.EventTicker, sharedKeywordRules, types.CategoryPolitics)
	}

	url := kalshiSeriesURL(m.Ticker)
	outcomes := []types.OutcomeRef{{Name: "Yes", Index: 0}, {Name: "No", Index: 1}}
	quotes := []types.RawQuote{{
		VenueSlug:        k.Slug(),
		ExternalMarketID: m.Ticker,
		MarketTitle:      title,
		Category:         category,
		OutcomeIndex:     0,
		OutcomeName:      "Yes",
		Price:            yesPrice,
		PriceFormat:      types.FormatCents,
		Bid:              m.YesBid,
		Ask:              m.YesAsk,
		Volume24h:        m.Volume,
		MarketURL:        url,
		Outcomes:         outcomes,
		CapturedAt:       now,
	}}
	if m.NoAsk != 0 {
		quotes = append(quotes, types.RawQuote{
			VenueSlug:        k.Slug(),
			ExternalMarketID: m.Ticker,
			MarketTitle:      title,
			Category:         category,
			OutcomeIndex:     1,
			OutcomeName:      "No",
			Price:            m.NoAsk,
			PriceFormat:      types.FormatCents,
			Bid:              m.NoBid,
			Ask:              m.NoAsk,
			Volume24h:        m.Volume,
			MarketURL:        url,
			Outcomes:         outcomes,
			CapturedAt:       now,
		})
	}
	return quotes
}

// kalshiSeriesURL rewrites a market ticker to its series-level page. Tickers
// look like KXFED-25DEC-T4.25; only the series segment has a stable page.
func kalshiSeriesURL(ticker string) string {
	series := ticker
	if i := strings.Index(ticker, "-"); i > 0 {
		series = ticker[:i]
	}
	return "https://kalshi.com/markets/" + strings.ToLower(series)
}
