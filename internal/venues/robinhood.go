package venues

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	robinhoodAPIBase = "https://bonfire-api.robinhood.com/prediction_markets"
	// robinhoodMaxFailures trips the breaker; the endpoint is undocumented and
	// persistent auth errors mean it has been closed off.
	robinhoodMaxFailures = 5
)

// Robinhood scrapes the undocumented bonfire prediction-markets endpoint.
// After robinhoodMaxFailures consecutive failures the breaker opens and stays
// open until the process restarts.
type Robinhood struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewRobinhood creates the Robinhood adapter.
func NewRobinhood(logger *zap.Logger) *Robinhood {
	log := logger.With(zap.String("venue", types.VenueRobinhood.Slug))
	return &Robinhood{
		logger: log,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "robinhood-fetch",
			MaxRequests: 0,
			// Effectively never half-opens: a tripped endpoint stays
			// disabled until restart.
			Timeout: 24 * 365 * time.Hour,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= robinhoodMaxFailures
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				log.Warn("venue-breaker-state-change",
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

func (r *Robinhood) Slug() string                { return types.VenueRobinhood.Slug }
func (r *Robinhood) PollInterval() time.Duration { return 120 * time.Second }

func (r *Robinhood) Connect(_ context.Context) error {
	r.client = resty.New().
		SetTimeout(15 * time.Second).
		SetHeader("User-Agent",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36").
		SetHeader("Accept", "application/json")
	r.logger.Info("venue-connected")
	return nil
}

func (r *Robinhood) Stop() { r.client = nil }

type robinhoodContract struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Price          *float64 `json:"price"`
	YesPrice       *float64 `json:"yes_price"`
	LastTradePrice *float64 `json:"last_trade_price"`
}

type robinhoodEvent struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Name      string              `json:"name"`
	Contracts []robinhoodContract `json:"contracts"`
	Markets   []robinhoodContract `json:"markets"`
}

type robinhoodPage struct {
	Results []robinhoodEvent `json:"results"`
}

// FetchBatch runs through the breaker; any HTTP-level error (401/403/404
// included) counts as a failure toward tripping it.
func (r *Robinhood) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetch(ctx)
	})
	if err == gobreaker.ErrOpenState {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return result.([]types.RawQuote), nil
}

func (r *Robinhood) fetch(ctx context.Context) ([]types.RawQuote, error) {
	resp, err := r.client.R().SetContext(ctx).Get(robinhoodAPIBase + "/events/")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("robinhood events: status %d", resp.StatusCode())
	}

	var page robinhoodPage
	if err := json.Unmarshal(resp.Body(), &page); err != nil {
		return nil, fmt.Errorf("robinhood events decode: %w", err)
	}

	now := time.Now().UTC()
	var quotes []types.RawQuote
	for _, event := range page.Results {
		quotes = append(quotes, r.eventQuotes(event, now)...)
	}
	return quotes, nil
}

func (r *Robinhood) eventQuotes(event robinhoodEvent, now time.Time) []types.RawQuote {
	title := event.Title
	if title == "" {
		title = event.Name
	}
	if title == "" || event.ID == "" {
		return nil
	}

	contracts := event.Contracts
	if len(contracts) == 0 {
		contracts = event.Markets
	}
	if len(contracts) == 0 {
		return nil
	}

	category := classifyKeywords(title, sharedKeywordRules, types.CategoryCulture)
	url := "https://robinhood.com/prediction-markets/" + event.ID

	outcomes := make([]types.OutcomeRef, len(contracts))
	for i, c := range contracts {
		outcomes[i] = types.OutcomeRef{Name: c.Name, Index: i}
	}

	var quotes []types.RawQuote
	for i, c := range contracts {
		price := contractPrice(c)
		if price == nil || *price <= 0 {
			ParseDropsTotal.WithLabelValues(r.Slug()).Inc()
			continue
		}
		quotes = append(quotes, types.RawQuote{
			VenueSlug:        r.Slug(),
			ExternalMarketID: event.ID,
			MarketTitle:      title,
			Category:         category,
			OutcomeIndex:     i,
			OutcomeName:      c.Name,
			Price:            *price,
			PriceFormat:      types.FormatProbability,
			MarketURL:        url,
			Outcomes:         outcomes,
			CapturedAt:       now,
		})
	}
	return quotes
}

func contractPrice(c robinhoodContract) *float64 {
	switch {
	case c.Price != nil:
		return c.Price
	case c.YesPrice != nil:
		return c.YesPrice
	default:
		return c.LastTradePrice
	}
}
