package venues

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"go.uber.org/zap"
)

const predictItAPIURL = "https://www.predictit.org/api/marketdata/all/"

var predictItKeywordRules = append([]keywordRule{
	{"trump", types.CategoryPolitics},
	{"democrat", types.CategoryPolitics},
	{"republican", types.CategoryPolitics},
	{"house", types.CategoryPolitics},
}, sharedKeywordRules...)

// Interrogative lead-ins stripped when splitting a multi-candidate market
// into per-candidate binary titles.
var predictItLeadIns = []string{
	"who will win ",
	"which party will win ",
	"which candidate will win ",
	"who will be ",
}

// PredictIt polls the public market-data dump. Multi-candidate markets are
// split into per-candidate binary titles so they match per-candidate markets
// on other venues.
type PredictIt struct {
	client *resty.Client
	logger *zap.Logger
}

// NewPredictIt creates the PredictIt adapter.
func NewPredictIt(logger *zap.Logger) *PredictIt {
	return &PredictIt{logger: logger.With(zap.String("venue", types.VenuePredictIt.Slug))}
}

func (p *PredictIt) Slug() string                { return types.VenuePredictIt.Slug }
func (p *PredictIt) PollInterval() time.Duration { return 60 * time.Second }

func (p *PredictIt) Connect(_ context.Context) error {
	p.client = resty.New().SetTimeout(30 * time.Second)
	p.logger.Info("venue-connected")
	return nil
}

func (p *PredictIt) Stop() { p.client = nil }

type predictItContract struct {
	Name           string  `json:"name"`
	ShortName      string  `json:"shortName"`
	LastTradePrice float64 `json:"lastTradePrice"`
	BestBuyYes     float64 `json:"bestBuyYesCost"`
	BestBuyNo      float64 `json:"bestBuyNoCost"`
}

type predictItMarket struct {
	ID        int                 `json:"id"`
	Name      string              `json:"name"`
	URL       string              `json:"url"`
	Status    string              `json:"status"`
	Contracts []predictItContract `json:"contracts"`
}

type predictItDump struct {
	Markets []predictItMarket `json:"markets"`
}

// FetchBatch downloads the full market dump and flattens open markets.
func (p *PredictIt) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	resp, err := p.client.R().SetContext(ctx).Get(predictItAPIURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("predictit marketdata: status %d", resp.StatusCode())
	}

	var dump predictItDump
	if err := json.Unmarshal(resp.Body(), &dump); err != nil {
		return nil, fmt.Errorf("predictit marketdata decode: %w", err)
	}

	now := time.Now().UTC()
	var quotes []types.RawQuote
	for _, market := range dump.Markets {
		if market.Status != "Open" {
			continue
		}
		quotes = append(quotes, p.marketQuotes(market, now)...)
	}
	return quotes, nil
}

func (p *PredictIt) marketQuotes(market predictItMarket, now time.Time) []types.RawQuote {
	marketID := strconv.Itoa(market.ID)
	category := classifyKeywords(market.Name, predictItKeywordRules, types.CategoryPolitics)

	// Single-contract markets are already binary questions; keep as-is.
	if len(market.Contracts) == 1 {
		c := market.Contracts[0]
		if c.LastTradePrice == 0 {
			return nil
		}
		return binaryQuotes(p.Slug(), marketID, market.Name, category, market.URL,
			c.LastTradePrice, types.FormatProbability, c.BestBuyYes, c.BestBuyNo, now)
	}

	var quotes []types.RawQuote
	for i, c := range market.Contracts {
		if c.LastTradePrice == 0 {
			continue
		}
		name := c.Name
		if name == "" {
			name = c.ShortName
		}
		title := disambiguateTitle(market.Name, name)
		syntheticID := marketID + "-" + strconv.Itoa(i)
		quotes = append(quotes, binaryQuotes(p.Slug(), syntheticID, title, category, market.URL,
			c.LastTradePrice, types.FormatProbability, c.BestBuyYes, c.BestBuyNo, now)...)
	}
	return quotes
}

// disambiguateTitle turns a per-candidate contract of an event market into a
// candidate-specific binary question: "Who will win X?" + "Smith" becomes
// "Will Smith win X?".
func disambiguateTitle(marketName, contractName string) string {
	subject := strings.TrimSuffix(strings.TrimSpace(marketName), "?")
	lower := strings.ToLower(subject)
	for _, lead := range predictItLeadIns {
		if strings.HasPrefix(lower, lead) {
			rest := subject[len(lead):]
			return fmt.Sprintf("Will %s win %s?", contractName, rest)
		}
	}
	return fmt.Sprintf("Will %s win %s?", contractName, subject)
}

// binaryQuotes emits the Yes leg and the inferred No leg (1 - yes) for a
// binary market in one price format.
func binaryQuotes(slug, marketID, title string, category types.Category, url string,
	yesPrice float64, format types.PriceFormat, bid, ask float64, now time.Time) []types.RawQuote {
	outcomes := []types.OutcomeRef{{Name: "Yes", Index: 0}, {Name: "No", Index: 1}}

	noPrice := 1.0 - yesPrice
	if format == types.FormatCents {
		noPrice = 100.0 - yesPrice
	}

	return []types.RawQuote{
		{
			VenueSlug:        slug,
			ExternalMarketID: marketID,
			MarketTitle:      title,
			Category:         category,
			OutcomeIndex:     0,
			OutcomeName:      "Yes",
			Price:            yesPrice,
			PriceFormat:      format,
			Bid:              bid,
			Ask:              ask,
			MarketURL:        url,
			Outcomes:         outcomes,
			CapturedAt:       now,
		},
		{
			VenueSlug:        slug,
			ExternalMarketID: marketID,
			MarketTitle:      title,
			Category:         category,
			OutcomeIndex:     1,
			OutcomeName:      "No",
			Price:            noPrice,
			PriceFormat:      format,
			MarketURL:        url,
			Outcomes:         outcomes,
			CapturedAt:       now,
		},
	}
}
