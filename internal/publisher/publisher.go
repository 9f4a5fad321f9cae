// Package publisher writes normalised quotes to the shared Redis surface:
// the TTL'd live cache, the odds:normalized stream, and the odds:updates
// change-notice channel. One Publish call is one pipelined batch.
package publisher

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/oddsaxiom/pipeline/internal/normalizer"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// StreamKey is the ordered log consumed by the arbitrage engine.
	StreamKey = "odds:normalized"
	// UpdatesChannel carries one change notice per publish batch.
	UpdatesChannel = "odds:updates"
	// liveKeyPrefix scopes the live cache key space: live:{venue}:{market_id}.
	liveKeyPrefix = "live:"
)

// Config holds publisher configuration.
type Config struct {
	// CacheTTL must exceed the slowest worker poll interval plus a safety
	// margin, or sportsbook entries vanish between polls.
	CacheTTL time.Duration
	// StreamMaxLen is the approximate cap on odds:normalized length.
	StreamMaxLen int64
	Logger       *zap.Logger
}

// Publisher is the single write path from workers into Redis.
type Publisher struct {
	rdb    redis.Cmdable
	cfg    Config
	logger *zap.Logger

	// Outcome-set signature of the last successful batch per cache key.
	// When a market's outcome set shrinks or reshuffles between batches the
	// entry is rewritten (DEL + HSET in the same pipeline) so readers never
	// see outcome fields left over from an earlier, wider batch.
	mu       sync.Mutex
	outcomes map[string]string
}

// New creates a Publisher on top of a shared Redis client.
func New(rdb redis.Cmdable, cfg Config) *Publisher {
	return &Publisher{
		rdb:      rdb,
		cfg:      cfg,
		logger:   cfg.Logger,
		outcomes: make(map[string]string),
	}
}

// Publish writes one worker batch: cache upserts, stream appends, and a
// single change notice. Quotes whose implied probability sits at exactly
// 0 or 1 are dropped here with a warning; they never reach consumers.
func (p *Publisher) Publish(ctx context.Context, quotes []types.NormalizedQuote) error {
	admitted := quotes[:0:0]
	for _, q := range quotes {
		if !normalizer.Valid(q.ImpliedProb) {
			QuotesRejectedTotal.WithLabelValues(q.VenueSlug).Inc()
			p.logger.Warn("quote-rejected-invalid-probability",
				zap.String("venue", q.VenueSlug),
				zap.String("market", q.ExternalMarketID),
				zap.Float64("implied-prob", q.ImpliedProb))
			continue
		}
		admitted = append(admitted, q)
	}
	if len(admitted) == 0 {
		return nil
	}

	start := time.Now()
	rewrites := p.planRewrites(admitted)

	pipe := p.rdb.Pipeline()
	for key := range rewrites {
		pipe.Del(ctx, key)
	}
	for _, q := range admitted {
		key := CacheKey(q.VenueSlug, q.ExternalMarketID)
		pipe.HSet(ctx, key, cacheFields(q)...)
		pipe.Expire(ctx, key, p.cfg.CacheTTL)
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: StreamKey,
			MaxLen: p.cfg.StreamMaxLen,
			Approx: true,
			Values: streamFields(q),
		})
	}

	notice, _ := json.Marshal(map[string]interface{}{
		"type":  "odds_batch",
		"venue": admitted[0].VenueSlug,
		"count": len(admitted),
	})
	pipe.Publish(ctx, UpdatesChannel, string(notice))

	_, err := pipe.Exec(ctx)
	if err != nil {
		PublishErrorsTotal.Inc()
		return fmt.Errorf("publish pipeline: %w", err)
	}

	p.commitSignatures(admitted)
	QuotesPublishedTotal.WithLabelValues(admitted[0].VenueSlug).Add(float64(len(admitted)))
	PublishDurationSeconds.Observe(time.Since(start).Seconds())
	return nil
}

// CacheKey builds the live cache key for a (venue, market) pair.
func CacheKey(venueSlug, marketID string) string {
	return liveKeyPrefix + venueSlug + ":" + marketID
}

// planRewrites returns the cache keys whose outcome set differs from the
// previous batch and must be rewritten rather than upserted.
func (p *Publisher) planRewrites(quotes []types.NormalizedQuote) map[string]struct{} {
	sigs := batchSignatures(quotes)

	p.mu.Lock()
	defer p.mu.Unlock()

	rewrites := make(map[string]struct{})
	for key, sig := range sigs {
		prev, seen := p.outcomes[key]
		if seen && prev != sig {
			rewrites[key] = struct{}{}
		}
	}
	return rewrites
}

func (p *Publisher) commitSignatures(quotes []types.NormalizedQuote) {
	sigs := batchSignatures(quotes)
	p.mu.Lock()
	for key, sig := range sigs {
		p.outcomes[key] = sig
	}
	p.mu.Unlock()
}

// batchSignatures folds each key's outcome indexes and names into a stable
// signature string.
func batchSignatures(quotes []types.NormalizedQuote) map[string]string {
	byKey := make(map[string][]string)
	for _, q := range quotes {
		key := CacheKey(q.VenueSlug, q.ExternalMarketID)
		byKey[key] = append(byKey[key], strconv.Itoa(q.OutcomeIndex)+"="+q.OutcomeName)
	}
	sigs := make(map[string]string, len(byKey))
	for key, parts := range byKey {
		sort.Strings(parts)
		sigs[key] = strings.Join(parts, "|")
	}
	return sigs
}

// cacheFields builds the HSET field/value pairs for one quote in a fixed
// order, so identical batches produce identical commands.
func cacheFields(q types.NormalizedQuote) []interface{} {
	idx := strconv.Itoa(q.OutcomeIndex)
	outcomeType := q.OutcomeType
	if outcomeType == "" {
		outcomeType = "binary"
	}
	return []interface{}{
		"outcome_" + idx + "_name", q.OutcomeName,
		"outcome_" + idx + "_price", formatFloat(q.Price),
		"outcome_" + idx + "_implied", formatFloat(q.ImpliedProb),
		"outcome_" + idx + "_bid", formatOptional(q.Bid),
		"outcome_" + idx + "_ask", formatOptional(q.Ask),
		"outcome_" + idx + "_type", outcomeType,
		"market_title", q.MarketTitle,
		"category", string(q.Category),
		"venue", q.VenueSlug,
		"market_url", q.MarketURL,
		"volume_24h", formatOptional(q.Volume24h),
		"volume_usd", formatOptional(q.VolumeUSD),
		"liquidity_usd", formatOptional(q.LiquidityUSD),
		"updated_at", q.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
}

// streamFields builds the flat string-typed entry appended to odds:normalized.
func streamFields(q types.NormalizedQuote) []interface{} {
	outcomeType := q.OutcomeType
	if outcomeType == "" {
		outcomeType = "binary"
	}
	return []interface{}{
		"venue", q.VenueSlug,
		"market_id", q.ExternalMarketID,
		"market_title", q.MarketTitle,
		"category", string(q.Category),
		"outcome_index", strconv.Itoa(q.OutcomeIndex),
		"outcome_name", q.OutcomeName,
		"outcome_type", outcomeType,
		"price", formatFloat(q.Price),
		"implied_prob", formatFloat(q.ImpliedProb),
		"captured_at", q.CapturedAt.UTC().Format(time.RFC3339Nano),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatOptional renders absent optional fields as empty strings, matching
// what the read side expects.
func formatOptional(v float64) string {
	if v == 0 {
		return ""
	}
	return formatFloat(v)
}
