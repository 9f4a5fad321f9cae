// Package venues contains the per-venue ingestion adapters and the generic
// poll loop that drives them: connect, fetch a batch, normalise, publish,
// sleep, repeat.
package venues

import (
	"context"
	"sync"
	"time"

	"github.com/oddsaxiom/pipeline/internal/normalizer"
	"github.com/oddsaxiom/pipeline/pkg/types"
	"go.uber.org/zap"
)

// Adapter is the capability set each venue implements. FetchBatch errors are
// swallowed by the loop; an adapter that wants to stay quiet (disabled,
// placeholder) returns an empty batch and no error.
type Adapter interface {
	Slug() string
	PollInterval() time.Duration
	Connect(ctx context.Context) error
	FetchBatch(ctx context.Context) ([]types.RawQuote, error)
	Stop()
}

// QuotePublisher is the downstream sink for a worker's normalised batches.
type QuotePublisher interface {
	Publish(ctx context.Context, quotes []types.NormalizedQuote) error
}

// Worker runs one adapter on its poll cadence.
type Worker struct {
	adapter Adapter
	pub     QuotePublisher
	logger  *zap.Logger

	ctx context.Context
	wg  sync.WaitGroup
}

// NewWorker creates a Worker for one adapter.
func NewWorker(adapter Adapter, pub QuotePublisher, logger *zap.Logger) *Worker {
	return &Worker{
		adapter: adapter,
		pub:     pub,
		logger:  logger.With(zap.String("venue", adapter.Slug())),
	}
}

// Start connects the adapter and launches the poll loop.
func (w *Worker) Start(ctx context.Context) error {
	w.ctx = ctx
	if err := w.adapter.Connect(ctx); err != nil {
		return err
	}
	w.logger.Info("venue-worker-starting",
		zap.Duration("poll-interval", w.adapter.PollInterval()))

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Close stops the adapter and waits for the loop to drain.
func (w *Worker) Close() error {
	w.wg.Wait()
	w.adapter.Stop()
	w.logger.Info("venue-worker-stopped")
	return nil
}

func (w *Worker) loop() {
	defer w.wg.Done()

	for {
		w.poll()
		select {
		case <-w.ctx.Done():
			return
		case <-time.After(w.adapter.PollInterval()):
		}
	}
}

// poll runs one fetch-normalise-publish cycle. Failures are logged and
// swallowed; the next tick retries.
func (w *Worker) poll() {
	start := time.Now()
	batch, err := w.adapter.FetchBatch(w.ctx)
	if err != nil {
		FetchErrorsTotal.WithLabelValues(w.adapter.Slug()).Inc()
		w.logger.Error("venue-fetch-failed", zap.Error(err))
		return
	}
	FetchDurationSeconds.WithLabelValues(w.adapter.Slug()).Observe(time.Since(start).Seconds())
	if len(batch) == 0 {
		w.logger.Debug("venue-fetch-empty")
		return
	}
	QuotesFetchedTotal.WithLabelValues(w.adapter.Slug()).Add(float64(len(batch)))

	normalized := normalizer.NormalizeBatch(batch)
	if err := w.pub.Publish(w.ctx, normalized); err != nil {
		w.logger.Error("venue-publish-failed", zap.Error(err))
		return
	}
	w.logger.Info("odds-published",
		zap.Int("count", len(normalized)),
		zap.Duration("elapsed", time.Since(start)))
}
