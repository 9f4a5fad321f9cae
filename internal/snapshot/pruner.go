package snapshot

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PrunerConfig holds pruner configuration.
type PrunerConfig struct {
	// Interval between retention sweeps.
	Interval time.Duration
	// RetentionDays bounds how long snapshot rows are kept.
	RetentionDays int
	// StaleInterval between stale-market sweeps; coarser than Interval.
	StaleInterval time.Duration
	// StaleDays after which an unrefreshed market record is marked inactive.
	StaleDays int
	Logger    *zap.Logger
}

// Pruner enforces the retention window on snapshots and flags dormant
// market records.
type Pruner struct {
	store  *PostgresStore
	cfg    PrunerConfig
	logger *zap.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

// NewPruner creates a Pruner.
func NewPruner(store *PostgresStore, cfg PrunerConfig) *Pruner {
	return &Pruner{store: store, cfg: cfg, logger: cfg.Logger}
}

// Start launches the retention and stale-market loops.
func (p *Pruner) Start(ctx context.Context) error {
	p.ctx = ctx
	p.logger.Info("pruner-starting",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("retention-days", p.cfg.RetentionDays),
		zap.Int("stale-days", p.cfg.StaleDays))

	p.wg.Add(2)
	go p.retentionLoop()
	go p.staleLoop()
	return nil
}

// Close waits for both loops to drain.
func (p *Pruner) Close() error {
	p.wg.Wait()
	p.logger.Info("pruner-stopped")
	return nil
}

func (p *Pruner) retentionLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.RetentionDays)
			n, err := p.store.DeleteOlderThan(p.ctx, cutoff)
			if err != nil {
				p.logger.Error("retention-sweep-failed", zap.Error(err))
				continue
			}
			p.logger.Info("retention-sweep-complete",
				zap.Int64("deleted", n),
				zap.Time("cutoff", cutoff))
		}
	}
}

func (p *Pruner) staleLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.StaleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.StaleDays)
			n, err := p.store.MarkStaleMarkets(p.ctx, cutoff)
			if err != nil {
				p.logger.Error("stale-market-sweep-failed", zap.Error(err))
				continue
			}
			p.logger.Info("stale-market-sweep-complete",
				zap.Int64("marked", n),
				zap.Time("cutoff", cutoff))
		}
	}
}
