package snapshot

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const scanPageSize = 500

var outcomeNameRe = regexp.MustCompile(`^outcome_(\d+)_name$`)

// Config holds snapshotter configuration.
type Config struct {
	// Interval between scans of the live cache.
	Interval time.Duration
	// Grace delays the first scan so workers can populate the cache.
	Grace time.Duration
	// BatchSize caps rows per INSERT.
	BatchSize int
	Logger    *zap.Logger
}

// Snapshotter copies the live cache into durable storage on a fixed cadence.
type Snapshotter struct {
	rdb    redis.Cmdable
	store  *PostgresStore
	cfg    Config
	logger *zap.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates a Snapshotter.
func New(rdb redis.Cmdable, store *PostgresStore, cfg Config) *Snapshotter {
	return &Snapshotter{rdb: rdb, store: store, cfg: cfg, logger: cfg.Logger}
}

// Start launches the scan loop.
func (s *Snapshotter) Start(ctx context.Context) error {
	s.ctx = ctx
	s.logger.Info("snapshotter-starting",
		zap.Duration("interval", s.cfg.Interval),
		zap.Duration("grace", s.cfg.Grace))

	s.wg.Add(1)
	go s.loop()
	return nil
}

// Close waits for the loop to drain.
func (s *Snapshotter) Close() error {
	s.wg.Wait()
	s.logger.Info("snapshotter-stopped")
	return nil
}

func (s *Snapshotter) loop() {
	defer s.wg.Done()

	select {
	case <-s.ctx.Done():
		return
	case <-time.After(s.cfg.Grace):
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.runOnce()
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Snapshotter) runOnce() {
	start := time.Now()
	rows, titles, err := s.collect()
	if err != nil {
		ScanErrorsTotal.Inc()
		s.logger.Error("live-cache-scan-failed", zap.Error(err))
		return
	}
	if len(rows) == 0 {
		return
	}

	inserted := 0
	for off := 0; off < len(rows); off += s.cfg.BatchSize {
		end := off + s.cfg.BatchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.store.InsertRows(s.ctx, rows[off:end]); err != nil {
			InsertErrorsTotal.Inc()
			s.logger.Error("snapshot-insert-failed",
				zap.Int("batch-size", end-off), zap.Error(err))
			continue
		}
		inserted += end - off
	}

	if err := s.store.UpsertMarkets(s.ctx, rows, titles, time.Now().UTC()); err != nil {
		s.logger.Warn("market-upsert-failed", zap.Error(err))
	}

	SnapshotDurationSeconds.Observe(time.Since(start).Seconds())
	s.logger.Info("snapshot-complete",
		zap.Int("rows", inserted),
		zap.Duration("elapsed", time.Since(start)))
}

// collect scans every live:{venue}:{market_id} entry, bulk-gets each page in
// one pipeline, and flattens the hashes into per-outcome rows.
func (s *Snapshotter) collect() ([]Row, map[string]string, error) {
	var (
		rows   []Row
		titles = map[string]string{}
		cursor uint64
	)

	for {
		keys, next, err := s.rdb.Scan(s.ctx, cursor, "live:*", scanPageSize).Result()
		if err != nil {
			return nil, nil, err
		}

		if len(keys) > 0 {
			pipe := s.rdb.Pipeline()
			cmds := make([]*redis.MapStringStringCmd, len(keys))
			for i, key := range keys {
				cmds[i] = pipe.HGetAll(s.ctx, key)
			}
			if _, err := pipe.Exec(s.ctx); err != nil && err != redis.Nil {
				return nil, nil, err
			}
			for i, cmd := range cmds {
				entry, err := cmd.Result()
				if err != nil || len(entry) == 0 {
					continue
				}
				venue, marketID, ok := splitLiveKey(keys[i])
				if !ok {
					continue
				}
				titles[marketID] = entry["market_title"]
				rows = append(rows, entryRows(venue, marketID, entry)...)
			}
		}

		cursor = next
		if cursor == 0 {
			return rows, titles, nil
		}
	}
}

// splitLiveKey parses live:{venue}:{market_id}; market IDs may themselves
// contain colons, so only the first two separators count.
func splitLiveKey(key string) (venue, marketID string, ok bool) {
	parts := strings.SplitN(key, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// entryRows extracts one row per outcome from a live cache hash. Outcomes
// with non-positive implied probability are dropped.
func entryRows(venue, marketID string, entry map[string]string) []Row {
	capturedAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339Nano, entry["updated_at"]); err == nil {
		capturedAt = ts
	}

	var rows []Row
	for field, name := range entry {
		m := outcomeNameRe.FindStringSubmatch(field)
		if m == nil {
			continue
		}
		idx, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		prefix := "outcome_" + m[1] + "_"
		price, err := strconv.ParseFloat(entry[prefix+"price"], 64)
		if err != nil {
			continue
		}
		implied, err := strconv.ParseFloat(entry[prefix+"implied"], 64)
		if err != nil || implied <= 0 {
			continue
		}
		rows = append(rows, Row{
			MarketID:     marketID,
			Venue:        venue,
			OutcomeIndex: idx,
			OutcomeName:  name,
			Price:        price,
			ImpliedProb:  implied,
			CapturedAt:   capturedAt,
		})
	}
	return rows
}
