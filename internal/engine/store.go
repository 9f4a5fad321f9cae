package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// ActiveSetKey ranks live opportunities by expected profit.
	ActiveSetKey = "arb:active"
	// AlertsChannel fans detected opportunities out to subscribers.
	AlertsChannel = "arb:alerts"
	// oppKeyPrefix scopes per-opportunity hashes: arb:opp:{key}.
	oppKeyPrefix = "arb:opp:"
)

// StoreConfig holds opportunity store configuration.
type StoreConfig struct {
	// OpportunityTTL bounds how long an unrefreshed opportunity stays
	// visible to readers.
	OpportunityTTL time.Duration
	Logger         *zap.Logger
}

// Store publishes opportunities to the shared Redis surface: a per-opportunity
// hash, the profit-ranked active set, and the alerts channel.
type Store struct {
	rdb    redis.Cmdable
	cfg    StoreConfig
	logger *zap.Logger
}

// NewStore creates a Store on top of a shared Redis client.
func NewStore(rdb redis.Cmdable, cfg StoreConfig) *Store {
	return &Store{rdb: rdb, cfg: cfg, logger: cfg.Logger}
}

// StoreOpportunity writes one opportunity in a single pipeline. Re-detections
// of the same (title, outcome set) land on the same key and refresh its TTL.
func (s *Store) StoreOpportunity(ctx context.Context, opp *Opportunity) error {
	payload, err := json.Marshal(opp)
	if err != nil {
		return fmt.Errorf("marshal opportunity: %w", err)
	}
	alert, err := json.Marshal(map[string]interface{}{
		"type": "arb_alert",
		"data": opp,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	key := opp.StoreKey()
	hashKey := oppKeyPrefix + key

	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, hashKey,
		"data", string(payload),
		"profit", fmt.Sprintf("%.6f", opp.ExpectedProfit))
	pipe.Expire(ctx, hashKey, s.cfg.OpportunityTTL)
	pipe.ZAdd(ctx, ActiveSetKey, redis.Z{Score: opp.ExpectedProfit, Member: key})
	pipe.Expire(ctx, ActiveSetKey, s.cfg.OpportunityTTL)
	pipe.Publish(ctx, AlertsChannel, string(alert))

	if _, err := pipe.Exec(ctx); err != nil {
		StoreErrorsTotal.Inc()
		return fmt.Errorf("store opportunity pipeline: %w", err)
	}

	OpportunitiesStoredTotal.Inc()
	s.logger.Info("opportunity-stored",
		zap.String("key", key),
		zap.String("canonical-title", opp.CanonicalTitle),
		zap.Float64("expected-profit", opp.ExpectedProfit),
		zap.Int("legs", len(opp.Legs)))
	return nil
}

// ActiveOpportunities returns live opportunities ordered by expected profit,
// best first. Members whose hash already expired are skipped; the active set
// entry outlives them by at most one TTL window.
func (s *Store) ActiveOpportunities(ctx context.Context, limit int64) ([]Opportunity, error) {
	if limit <= 0 {
		limit = -1
	} else {
		limit--
	}
	keys, err := s.rdb.ZRevRange(ctx, ActiveSetKey, 0, limit).Result()
	if err != nil {
		return nil, fmt.Errorf("read active set: %w", err)
	}

	opps := make([]Opportunity, 0, len(keys))
	for _, key := range keys {
		payload, err := s.rdb.HGet(ctx, oppKeyPrefix+key, "data").Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read opportunity %s: %w", key, err)
		}
		var opp Opportunity
		if err := json.Unmarshal([]byte(payload), &opp); err != nil {
			s.logger.Warn("opportunity-payload-corrupt", zap.String("key", key), zap.Error(err))
			continue
		}
		opps = append(opps, opp)
	}
	return opps, nil
}

// ActiveCount returns the size of the active opportunity set.
func (s *Store) ActiveCount(ctx context.Context) (int64, error) {
	n, err := s.rdb.ZCard(ctx, ActiveSetKey).Result()
	if err != nil {
		return 0, fmt.Errorf("count active set: %w", err)
	}
	return n, nil
}
