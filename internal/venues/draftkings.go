package venues

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"go.uber.org/zap"
)

// DraftKings predictions have no public API; an Apify actor scrapes the app
// and this adapter reads the actor's last dataset.
const draftKingsDatasetURL = "https://api.apify.com/v2/acts/hypebridge~draftkings-predictions/runs/last/dataset/items"

var draftKingsCategoryTable = map[string]types.Category{
	"politics":      types.CategoryPolitics,
	"government":    types.CategoryPolitics,
	"economics":     types.CategoryEconomics,
	"finance":       types.CategoryEconomics,
	"crypto":        types.CategoryCrypto,
	"entertainment": types.CategoryCulture,
	"pop culture":   types.CategoryCulture,
	"awards":        types.CategoryCulture,
	"weather":       types.CategoryScience,
	"science":       types.CategoryScience,
}

// DraftKings reads scraped prediction markets from an Apify dataset. Item
// shape drifts between scraper versions, so field extraction is best-effort.
type DraftKings struct {
	client *resty.Client
	token  string
	logger *zap.Logger
}

// NewDraftKings creates the DraftKings adapter. Without an Apify token the
// adapter stays idle.
func NewDraftKings(token string, logger *zap.Logger) *DraftKings {
	return &DraftKings{
		token:  token,
		logger: logger.With(zap.String("venue", types.VenueDraftKings.Slug)),
	}
}

func (d *DraftKings) Slug() string                { return types.VenueDraftKings.Slug }
func (d *DraftKings) PollInterval() time.Duration { return 60 * time.Second }

func (d *DraftKings) Connect(_ context.Context) error {
	if d.token == "" {
		d.logger.Warn("venue-missing-api-key")
	}
	d.client = resty.New().SetTimeout(30 * time.Second)
	d.logger.Info("venue-connected", zap.Bool("has-token", d.token != ""))
	return nil
}

func (d *DraftKings) Stop() { d.client = nil }

type draftKingsOutcome struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"`
	Title    string   `json:"title"`
	Price    *float64 `json:"price"`
	Odds     *float64 `json:"odds"`
	YesPrice *float64 `json:"yesPrice"`
}

type draftKingsItem struct {
	ID          string              `json:"id"`
	MarketID    string              `json:"marketId"`
	Title       string              `json:"title"`
	Question    string              `json:"question"`
	Name        string              `json:"name"`
	Category    string              `json:"category"`
	Subcategory string              `json:"subcategory"`
	URL         string              `json:"url"`
	Outcomes    []draftKingsOutcome `json:"outcomes"`
	Selections  []draftKingsOutcome `json:"selections"`
	Runners     []draftKingsOutcome `json:"runners"`
	Options     []draftKingsOutcome `json:"options"`
	YesPrice    *float64            `json:"yesPrice"`
	NoPrice     *float64            `json:"noPrice"`
	EndDate     string              `json:"endDate"`
	CloseDate   string              `json:"closeDate"`
}

func itemEndDate(item draftKingsItem) time.Time {
	for _, raw := range []string{item.EndDate, item.CloseDate} {
		if raw == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// FetchBatch reads the actor's last dataset. Billing and auth failures
// (402/401) and a missing run (404) are expected operational states, not
// errors; they yield an empty batch.
func (d *DraftKings) FetchBatch(ctx context.Context) ([]types.RawQuote, error) {
	if d.token == "" {
		return nil, nil
	}

	resp, err := d.client.R().
		SetContext(ctx).
		SetQueryParam("token", d.token).
		Get(draftKingsDatasetURL)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode() {
	case 404:
		d.logger.Debug("draftkings-no-dataset-run")
		return nil, nil
	case 401, 402, 429:
		d.logger.Warn("draftkings-dataset-unavailable", zap.Int("status", resp.StatusCode()))
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("draftkings dataset: status %d", resp.StatusCode())
	}
	if ct := resp.Header().Get("Content-Type"); strings.Contains(ct, "text/html") {
		return nil, fmt.Errorf("draftkings dataset: unexpected html response")
	}

	var items []draftKingsItem
	if err := json.Unmarshal(resp.Body(), &items); err != nil {
		var envelope struct {
			Items   []draftKingsItem `json:"items"`
			Data    []draftKingsItem `json:"data"`
			Results []draftKingsItem `json:"results"`
			Markets []draftKingsItem `json:"markets"`
		}
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
			return nil, fmt.Errorf("draftkings dataset decode: %w", err)
		}
		for _, list := range [][]draftKingsItem{envelope.Items, envelope.Data, envelope.Results, envelope.Markets} {
			if len(list) > 0 {
				items = list
				break
			}
		}
	}

	now := time.Now().UTC()
	var quotes []types.RawQuote
	for _, item := range items {
		quotes = append(quotes, d.itemQuotes(item, now)...)
	}
	return quotes, nil
}

func (d *DraftKings) itemQuotes(item draftKingsItem, now time.Time) []types.RawQuote {
	title := firstNonEmpty(item.Title, item.Question, item.Name)
	if title == "" {
		return nil
	}

	marketID := firstNonEmpty(item.ID, item.MarketID)
	if marketID == "" {
		// Stable synthetic ID so replays dedupe across polls.
		h := fnv.New64a()
		h.Write([]byte(title))
		marketID = fmt.Sprintf("dk-%x", h.Sum64())
	}

	category := d.classify(item, title)
	endDate := itemEndDate(item)

	// Binary shorthand: yes/no prices on the item itself.
	selections := itemSelections(item)
	if len(selections) == 0 {
		if item.YesPrice == nil {
			return nil
		}
		quotes := binaryQuotes(d.Slug(), marketID, title, category, item.URL,
			*item.YesPrice, guessPriceFormat(*item.YesPrice), 0, 0, now)
		if item.NoPrice != nil {
			quotes[1].Price = *item.NoPrice
		}
		for i := range quotes {
			quotes[i].EndDate = endDate
		}
		return quotes
	}

	outcomes := make([]types.OutcomeRef, len(selections))
	for i, s := range selections {
		outcomes[i] = types.OutcomeRef{Name: firstNonEmpty(s.Name, s.Label, s.Title), Index: i}
	}

	var quotes []types.RawQuote
	for i, s := range selections {
		price := selectionPrice(s)
		if price == nil || *price <= 0 {
			ParseDropsTotal.WithLabelValues(d.Slug()).Inc()
			continue
		}
		quotes = append(quotes, types.RawQuote{
			VenueSlug:        d.Slug(),
			ExternalMarketID: marketID,
			MarketTitle:      title,
			Category:         category,
			OutcomeIndex:     i,
			OutcomeName:      outcomes[i].Name,
			Price:            *price,
			PriceFormat:      guessPriceFormat(*price),
			MarketURL:        item.URL,
			EndDate:          endDate,
			Outcomes:         outcomes,
			CapturedAt:       now,
		})
	}
	return quotes
}

func (d *DraftKings) classify(item draftKingsItem, title string) types.Category {
	if c, ok := mapNativeCategory(draftKingsCategoryTable, item.Category); ok {
		return c
	}
	if c, ok := mapNativeCategory(draftKingsCategoryTable, item.Subcategory); ok {
		return c
	}
	return classifyKeywords(title, sharedKeywordRules, types.CategorySports)
}

func itemSelections(item draftKingsItem) []draftKingsOutcome {
	for _, list := range [][]draftKingsOutcome{item.Outcomes, item.Selections, item.Runners, item.Options} {
		if len(list) > 0 {
			return list
		}
	}
	return nil
}

func selectionPrice(s draftKingsOutcome) *float64 {
	switch {
	case s.Price != nil:
		return s.Price
	case s.Odds != nil:
		return s.Odds
	default:
		return s.YesPrice
	}
}

// guessPriceFormat infers how a scraped number is quoted: probabilities are
// in (0,1], cents in (1,100], anything beyond 100 or negative is american.
func guessPriceFormat(price float64) types.PriceFormat {
	switch {
	case price < 0:
		return types.FormatAmericanNegative
	case price <= 1:
		return types.FormatProbability
	case price <= 100:
		return types.FormatCents
	default:
		return types.FormatAmericanPositive
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
