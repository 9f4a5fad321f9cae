// Package engine consumes the normalised odds stream, groups quotes under
// canonical titles, and runs periodic cross-venue arbitrage detection.
package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oddsaxiom/pipeline/internal/matcher"
	"github.com/oddsaxiom/pipeline/internal/normalizer"
	"github.com/oddsaxiom/pipeline/internal/publisher"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Update is one parsed entry from the odds:normalized stream.
type Update struct {
	Venue        string
	MarketID     string
	MarketTitle  string
	Category     string
	OutcomeIndex int
	OutcomeName  string
	OutcomeType  string
	Price        float64
	ImpliedProb  float64
	CapturedAt   time.Time
}

// Config holds engine configuration.
type Config struct {
	Group    string // consumer group on odds:normalized
	Consumer string // consumer name within the group

	ReadCount int           // max entries per XREADGROUP call
	BlockTime time.Duration // XREADGROUP block timeout

	DetectionInterval time.Duration
	ReclusterCycles   int // detection cycles between matcher re-runs

	MinProfit    float64       // minimum edge before an opportunity is emitted
	TotalStake   float64       // notional stake split across legs
	StaleHorizon time.Duration // quotes older than this are evicted at recluster

	Logger *zap.Logger
}

// Engine wires the stream consumer, the buffer, the matcher, and the
// opportunity store together.
type Engine struct {
	rdb     redis.Cmdable
	cfg     Config
	logger  *zap.Logger
	matcher *matcher.Matcher
	store   *Store
	buffer  *Buffer

	// canonical is the map in force for the consumer; swapped wholesale at
	// recluster so the consumer never sees a half-built map.
	mu        sync.RWMutex
	canonical map[string]string

	ctx context.Context
	wg  sync.WaitGroup
}

// New creates an Engine.
func New(rdb redis.Cmdable, m *matcher.Matcher, store *Store, cfg Config) *Engine {
	return &Engine{
		rdb:       rdb,
		cfg:       cfg,
		logger:    cfg.Logger,
		matcher:   m,
		store:     store,
		buffer:    NewBuffer(),
		canonical: make(map[string]string),
	}
}

// Start creates the consumer group and launches the consume and detection
// loops. A pre-existing group is fine; the engine resumes where it left off.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx = ctx

	err := e.rdb.XGroupCreateMkStream(ctx, publisher.StreamKey, e.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}

	e.logger.Info("arb-engine-starting",
		zap.String("group", e.cfg.Group),
		zap.String("consumer", e.cfg.Consumer),
		zap.Duration("detection-interval", e.cfg.DetectionInterval),
		zap.Float64("min-profit", e.cfg.MinProfit))

	e.wg.Add(2)
	go e.consumeLoop()
	go e.detectLoop()
	return nil
}

// Close waits for both loops to drain.
func (e *Engine) Close() error {
	e.wg.Wait()
	e.logger.Info("arb-engine-stopped")
	return nil
}

func (e *Engine) consumeLoop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		default:
		}

		streams, err := e.rdb.XReadGroup(e.ctx, &redis.XReadGroupArgs{
			Group:    e.cfg.Group,
			Consumer: e.cfg.Consumer,
			Streams:  []string{publisher.StreamKey, ">"},
			Count:    int64(e.cfg.ReadCount),
			Block:    e.cfg.BlockTime,
		}).Result()
		if err != nil {
			if err == redis.Nil || e.ctx.Err() != nil {
				continue
			}
			e.logger.Error("stream-read-failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				e.handleMessage(msg)
				e.rdb.XAck(e.ctx, publisher.StreamKey, e.cfg.Group, msg.ID)
			}
		}
	}
}

func (e *Engine) handleMessage(msg redis.XMessage) {
	u, err := parseUpdate(msg.Values)
	if err != nil {
		UpdatesDroppedTotal.WithLabelValues("malformed").Inc()
		e.logger.Warn("stream-entry-malformed",
			zap.String("id", msg.ID), zap.Error(err))
		return
	}
	if !normalizer.Valid(u.ImpliedProb) {
		UpdatesDroppedTotal.WithLabelValues("invalid_probability").Inc()
		return
	}

	canonical := e.resolve(u.MarketTitle)
	if !e.buffer.Apply(canonical, u) {
		UpdatesDroppedTotal.WithLabelValues("out_of_order").Inc()
		return
	}
	UpdatesConsumedTotal.WithLabelValues(u.Venue).Inc()
}

// resolve maps a raw title through the canonical map in force. Unknown titles
// map to themselves until the next recluster folds them in.
func (e *Engine) resolve(title string) string {
	e.mu.RLock()
	canonical, ok := e.canonical[title]
	e.mu.RUnlock()
	if !ok {
		return title
	}
	return canonical
}

func (e *Engine) detectLoop() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.DetectionInterval)
	defer ticker.Stop()

	cycle := 0
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			cycle++
			if e.cfg.ReclusterCycles > 0 && cycle%e.cfg.ReclusterCycles == 0 {
				e.recluster()
			}
			e.runDetection()
		}
	}
}

func (e *Engine) runDetection() {
	start := time.Now()
	views := e.buffer.Snapshot()
	BufferTitles.Set(float64(len(views)))

	emitted := 0
	for _, view := range views {
		opp, ok := detect(view, e.cfg.MinProfit, e.cfg.TotalStake)
		e.buffer.MarkArbHot(view.canonical, ok)
		if !ok {
			continue
		}

		OpportunitiesDetectedTotal.Inc()
		OpportunityProfit.Observe(opp.ExpectedProfit)
		emitted++

		if err := e.store.StoreOpportunity(e.ctx, opp); err != nil {
			e.logger.Error("opportunity-store-failed",
				zap.String("opportunity-id", opp.ID), zap.Error(err))
		}
	}

	e.publishBufferStates(views, start)

	DetectionDurationSeconds.Observe(time.Since(start).Seconds())
	if emitted > 0 {
		e.logger.Info("detection-pass-complete",
			zap.Int("titles", len(views)),
			zap.Int("opportunities", emitted),
			zap.Duration("elapsed", time.Since(start)))
	}
}

// publishBufferStates gauges the lifecycle-state population after a pass, so
// the ARB_HOT marks set during the pass are reflected.
func (e *Engine) publishBufferStates(views []bookView, now time.Time) {
	counts := make(map[BufferState]int, len(bufferStates))
	for _, view := range views {
		counts[e.buffer.State(view.canonical, now, e.cfg.StaleHorizon)]++
	}
	for _, s := range bufferStates {
		BufferStateTitles.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

var bufferStates = []BufferState{StateEmpty, StatePartial, StateCovered, StateArbHot, StateStale}

// recluster re-runs the matcher over the full raw-title population and
// rebuilds the buffer under the new map.
func (e *Engine) recluster() {
	titles := e.buffer.RawTitles()
	if len(titles) == 0 {
		return
	}

	canonical := e.matcher.CanonicalMap(titles, e.buffer.Categories(), e.buffer.Venues())
	moved, dropped := e.buffer.Recluster(canonical, time.Now(), e.cfg.StaleHorizon)

	e.mu.Lock()
	e.canonical = canonical
	e.mu.Unlock()

	ReclustersTotal.Inc()
	e.logger.Info("buffer-reclustered",
		zap.Int("titles", len(titles)),
		zap.Int("moved", moved),
		zap.Int("dropped-stale", dropped))
}

func parseUpdate(values map[string]interface{}) (Update, error) {
	str := func(field string) string {
		if v, ok := values[field].(string); ok {
			return v
		}
		return ""
	}

	u := Update{
		Venue:       str("venue"),
		MarketID:    str("market_id"),
		MarketTitle: str("market_title"),
		Category:    str("category"),
		OutcomeName: str("outcome_name"),
		OutcomeType: str("outcome_type"),
	}
	if u.Venue == "" || u.MarketID == "" || u.OutcomeName == "" {
		return u, errMissingFields
	}

	var err error
	if u.OutcomeIndex, err = strconv.Atoi(str("outcome_index")); err != nil {
		return u, err
	}
	if u.Price, err = strconv.ParseFloat(str("price"), 64); err != nil {
		return u, err
	}
	if u.ImpliedProb, err = strconv.ParseFloat(str("implied_prob"), 64); err != nil {
		return u, err
	}
	if u.CapturedAt, err = time.Parse(time.RFC3339Nano, str("captured_at")); err != nil {
		return u, err
	}
	return u, nil
}

var errMissingFields = errors.New("stream entry missing required fields")
