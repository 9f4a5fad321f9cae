package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// Run starts the application and blocks until shutdown.
func (a *App) Run() error {
	a.logger.Info("application-starting",
		zap.Strings("venues", a.cfg.EnabledVenues),
		zap.String("storage-mode", a.cfg.StorageMode),
		zap.String("log-level", a.cfg.LogLevel))

	err := a.startComponents()
	if err != nil {
		return err
	}

	a.healthChecker.SetReady(true)
	a.logger.Info("application-ready",
		zap.String("http-addr", ":"+a.cfg.HTTPPort),
		zap.Int("workers", len(a.workers)))

	return a.waitForShutdown()
}

func (a *App) startComponents() error {
	if a.httpServer != nil {
		a.wg.Add(1)
		go a.runHTTPServer()
	}

	for _, worker := range a.workers {
		if err := worker.Start(a.ctx); err != nil {
			return fmt.Errorf("start venue worker: %w", err)
		}
	}

	if a.arbEngine != nil {
		if err := a.arbEngine.Start(a.ctx); err != nil {
			return fmt.Errorf("start arbitrage engine: %w", err)
		}
	}

	if a.snapshotter != nil {
		if err := a.snapshotter.Start(a.ctx); err != nil {
			return fmt.Errorf("start snapshotter: %w", err)
		}
	}
	if a.pruner != nil {
		if err := a.pruner.Start(a.ctx); err != nil {
			return fmt.Errorf("start pruner: %w", err)
		}
	}

	return nil
}

func (a *App) runHTTPServer() {
	defer a.wg.Done()
	err := a.httpServer.Start()
	if err != nil {
		a.logger.Error("http-server-error", zap.Error(err))
	}
}

func (a *App) waitForShutdown() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info("shutdown-signal-received", zap.String("signal", sig.String()))
	case <-a.ctx.Done():
		a.logger.Info("context-cancelled")
	}

	return a.Shutdown()
}
