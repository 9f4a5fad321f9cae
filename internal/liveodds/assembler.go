// Package liveodds assembles the read-side view: live cache entries grouped
// under canonical titles, ready for the HTTP layer to serve.
package liveodds

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/internal/matcher"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// CanonicalMapKey caches the serialised raw→canonical title map.
	CanonicalMapKey = "odds:canonical_map"
	// responseKeyPrefix scopes per-category response caches.
	responseKeyPrefix = "odds:response:"

	canonicalMapTTL = 60 * time.Second
	scanPageSize    = 500
)

// OutcomeOdds is one outcome's quote within a venue entry.
type OutcomeOdds struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	ImpliedProb float64 `json:"implied_prob"`
	Bid         float64 `json:"bid,omitempty"`
	Ask         float64 `json:"ask,omitempty"`
}

// VenueOdds is one venue's live entry for a market.
type VenueOdds struct {
	Venue       string        `json:"venue"`
	MarketID    string        `json:"market_id"`
	MarketTitle string        `json:"market_title"`
	MarketURL   string        `json:"market_url,omitempty"`
	Category    string        `json:"category"`
	Outcomes    []OutcomeOdds `json:"outcomes"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// MarketGroup is all venues quoting one canonical event.
type MarketGroup struct {
	CanonicalTitle string      `json:"canonical_title"`
	Category       string      `json:"category"`
	VenueCount     int         `json:"venue_count"`
	Venues         []VenueOdds `json:"venues"`
}

// Config holds assembler configuration.
type Config struct {
	// ResponseTTL bounds reuse of an assembled per-category response.
	ResponseTTL time.Duration
	Logger      *zap.Logger
}

// Assembler builds grouped live-odds responses from the live cache.
type Assembler struct {
	rdb     redis.Cmdable
	matcher *matcher.Matcher
	cfg     Config
	logger  *zap.Logger
}

// New creates an Assembler.
func New(rdb redis.Cmdable, m *matcher.Matcher, cfg Config) *Assembler {
	return &Assembler{rdb: rdb, matcher: m, cfg: cfg, logger: cfg.Logger}
}

// Assemble returns all live markets grouped by canonical title, optionally
// filtered by category. Responses are cached in Redis per category so the
// scan-and-cluster cost is paid at most once per TTL window.
func (a *Assembler) Assemble(ctx context.Context, category string) ([]MarketGroup, error) {
	cacheKey := responseKeyPrefix + responseSuffix(category)
	if cached, err := a.rdb.Get(ctx, cacheKey).Result(); err == nil {
		var groups []MarketGroup
		if err := json.Unmarshal([]byte(cached), &groups); err == nil {
			ResponseCacheHitsTotal.Inc()
			return groups, nil
		}
	}

	start := time.Now()
	entries, err := a.scanEntries(ctx)
	if err != nil {
		return nil, err
	}

	if category != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Category == category {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	groups := a.group(ctx, entries)

	if payload, err := json.Marshal(groups); err == nil {
		if err := a.rdb.Set(ctx, cacheKey, string(payload), a.cfg.ResponseTTL).Err(); err != nil {
			a.logger.Warn("response-cache-write-failed", zap.Error(err))
		}
	}

	AssembleDurationSeconds.Observe(time.Since(start).Seconds())
	a.logger.Debug("live-odds-assembled",
		zap.String("category", category),
		zap.Int("entries", len(entries)),
		zap.Int("groups", len(groups)),
		zap.Duration("elapsed", time.Since(start)))
	return groups, nil
}

// Lookup returns every venue's live entry for one external market ID,
// whichever venues quote it. Uncached: the match pattern is narrow enough
// that the scan touches few keys.
func (a *Assembler) Lookup(ctx context.Context, marketID string) ([]VenueOdds, error) {
	var (
		entries []VenueOdds
		cursor  uint64
	)
	pattern := "live:*:" + marketID
	for {
		keys, next, err := a.rdb.Scan(ctx, cursor, pattern, scanPageSize).Result()
		if err != nil {
			return nil, err
		}
		for _, key := range keys {
			fields, err := a.rdb.HGetAll(ctx, key).Result()
			if err != nil || len(fields) == 0 {
				continue
			}
			if e, ok := parseEntry(key, fields); ok {
				entries = append(entries, e)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Venue < entries[j].Venue })
	return entries, nil
}

// group clusters entries under canonical titles, deduplicates same-venue
// entries within a group by freshness, and orders groups by venue coverage.
func (a *Assembler) group(ctx context.Context, entries []VenueOdds) []MarketGroup {
	titles := make([]string, 0, len(entries))
	categories := make(map[string]string, len(entries))
	venues := make(map[string]string, len(entries))
	for _, e := range entries {
		titles = append(titles, e.MarketTitle)
		categories[e.MarketTitle] = e.Category
		venues[e.MarketTitle] = e.Venue
	}

	canonical := a.canonicalMap(ctx, titles, categories, venues)

	byCanonical := map[string]*MarketGroup{}
	var order []string
	for _, e := range entries {
		rep, ok := canonical[e.MarketTitle]
		if !ok {
			rep = e.MarketTitle
		}
		g := byCanonical[rep]
		if g == nil {
			g = &MarketGroup{CanonicalTitle: rep, Category: e.Category}
			byCanonical[rep] = g
			order = append(order, rep)
		}

		// One entry per venue per group; the fresher one wins.
		replaced := false
		for i, existing := range g.Venues {
			if existing.Venue == e.Venue {
				if e.UpdatedAt.After(existing.UpdatedAt) {
					g.Venues[i] = e
				}
				replaced = true
				break
			}
		}
		if !replaced {
			g.Venues = append(g.Venues, e)
		}
	}

	groups := make([]MarketGroup, 0, len(order))
	for _, rep := range order {
		g := byCanonical[rep]
		g.VenueCount = len(g.Venues)
		groups = append(groups, *g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].VenueCount != groups[j].VenueCount {
			return groups[i].VenueCount > groups[j].VenueCount
		}
		return groups[i].CanonicalTitle < groups[j].CanonicalTitle
	})
	return groups
}

// canonicalMap serves the shared raw→canonical map, refreshing the Redis copy
// whenever the cached one does not cover the current title set.
func (a *Assembler) canonicalMap(ctx context.Context, titles []string, categories, venues map[string]string) map[string]string {
	if cached, err := a.rdb.Get(ctx, CanonicalMapKey).Result(); err == nil {
		var m map[string]string
		if err := json.Unmarshal([]byte(cached), &m); err == nil && covers(m, titles) {
			return m
		}
	}

	m := a.matcher.CanonicalMap(titles, categories, venues)
	if payload, err := json.Marshal(m); err == nil {
		if err := a.rdb.Set(ctx, CanonicalMapKey, string(payload), canonicalMapTTL).Err(); err != nil {
			a.logger.Warn("canonical-map-cache-write-failed", zap.Error(err))
		}
	}
	return m
}

func covers(m map[string]string, titles []string) bool {
	for _, t := range titles {
		if _, ok := m[t]; !ok {
			return false
		}
	}
	return true
}

// scanEntries pages through live:* and bulk-gets each page in one pipeline.
func (a *Assembler) scanEntries(ctx context.Context) ([]VenueOdds, error) {
	var (
		entries []VenueOdds
		cursor  uint64
	)
	for {
		keys, next, err := a.rdb.Scan(ctx, cursor, "live:*", scanPageSize).Result()
		if err != nil {
			return nil, err
		}

		if len(keys) > 0 {
			pipe := a.rdb.Pipeline()
			cmds := make([]*redis.MapStringStringCmd, len(keys))
			for i, key := range keys {
				cmds[i] = pipe.HGetAll(ctx, key)
			}
			if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
				return nil, err
			}
			for i, cmd := range cmds {
				fields, err := cmd.Result()
				if err != nil || len(fields) == 0 {
					continue
				}
				if e, ok := parseEntry(keys[i], fields); ok {
					entries = append(entries, e)
				}
			}
		}

		cursor = next
		if cursor == 0 {
			return entries, nil
		}
	}
}

// parseEntry converts one live cache hash into a VenueOdds.
func parseEntry(key string, fields map[string]string) (VenueOdds, bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return VenueOdds{}, false
	}

	e := VenueOdds{
		Venue:       parts[1],
		MarketID:    parts[2],
		MarketTitle: fields["market_title"],
		MarketURL:   fields["market_url"],
		Category:    fields["category"],
	}
	if e.MarketTitle == "" {
		return VenueOdds{}, false
	}
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		e.UpdatedAt = ts
	}

	for field, name := range fields {
		if !strings.HasPrefix(field, "outcome_") || !strings.HasSuffix(field, "_name") {
			continue
		}
		idxStr := strings.TrimSuffix(strings.TrimPrefix(field, "outcome_"), "_name")
		idx, err := strconv.Atoi(idxStr)
		if err != nil {
			continue
		}
		prefix := "outcome_" + idxStr + "_"
		price, err := strconv.ParseFloat(fields[prefix+"price"], 64)
		if err != nil {
			continue
		}
		implied, err := strconv.ParseFloat(fields[prefix+"implied"], 64)
		if err != nil {
			continue
		}
		o := OutcomeOdds{Index: idx, Name: name, Price: price, ImpliedProb: implied}
		o.Bid, _ = strconv.ParseFloat(fields[prefix+"bid"], 64)
		o.Ask, _ = strconv.ParseFloat(fields[prefix+"ask"], 64)
		e.Outcomes = append(e.Outcomes, o)
	}
	if len(e.Outcomes) == 0 {
		return VenueOdds{}, false
	}
	sort.Slice(e.Outcomes, func(i, j int) bool { return e.Outcomes[i].Index < e.Outcomes[j].Index })
	return e, true
}

func responseSuffix(category string) string {
	if category == "" {
		return "all"
	}
	return category
}
