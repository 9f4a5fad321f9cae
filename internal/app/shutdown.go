package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.logger.Info("application-shutting-down")

	a.healthChecker.SetReady(false)

	// Cancel context to signal all components
	a.cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the outer surface first, then the producers, then the consumers,
	// then durable storage.
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http-server-shutdown-error", zap.Error(err))
		}
	}

	for _, worker := range a.workers {
		if err := worker.Close(); err != nil {
			a.logger.Error("venue-worker-close-error", zap.Error(err))
		}
	}

	if a.arbEngine != nil {
		if err := a.arbEngine.Close(); err != nil {
			a.logger.Error("arbitrage-engine-close-error", zap.Error(err))
		}
	}

	if a.snapshotter != nil {
		if err := a.snapshotter.Close(); err != nil {
			a.logger.Error("snapshotter-close-error", zap.Error(err))
		}
	}
	if a.pruner != nil {
		if err := a.pruner.Close(); err != nil {
			a.logger.Error("pruner-close-error", zap.Error(err))
		}
	}
	if a.snapStore != nil {
		if err := a.snapStore.Close(); err != nil {
			a.logger.Error("snapshot-store-close-error", zap.Error(err))
		}
	}

	a.matcher.Close()

	if err := a.rdb.Close(); err != nil {
		a.logger.Error("redis-close-error", zap.Error(err))
	}

	// Wait for all goroutines
	a.wg.Wait()

	a.logger.Info("application-shutdown-complete")

	return nil
}
