// Package app wires the pipeline together: venue workers feeding the Redis
// surface, the arbitrage engine consuming it, the snapshotter and pruner
// maintaining durable history, and the HTTP read side.
package app

import (
	"context"
	"sync"

	"github.com/oddsaxiom/pipeline/internal/engine"
	"github.com/oddsaxiom/pipeline/internal/liveodds"
	"github.com/oddsaxiom/pipeline/internal/matcher"
	"github.com/oddsaxiom/pipeline/internal/snapshot"
	"github.com/oddsaxiom/pipeline/internal/venues"
	"github.com/oddsaxiom/pipeline/pkg/config"
	"github.com/oddsaxiom/pipeline/pkg/healthprobe"
	"github.com/oddsaxiom/pipeline/pkg/httpserver"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App is the main application orchestrator.
type App struct {
	cfg           *config.Config
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	httpServer    *httpserver.Server

	rdb       *redis.Client
	matcher   *matcher.Matcher
	workers   []*venues.Worker
	arbEngine *engine.Engine
	assembler *liveodds.Assembler

	snapStore   *snapshot.PostgresStore
	snapshotter *snapshot.Snapshotter
	pruner      *snapshot.Pruner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options holds application options.
type Options struct {
	// Workers only: skip the engine, snapshotter, and HTTP read APIs.
	IngestOnly bool
	// Engine and read side only: skip the venue workers.
	NoWorkers bool
	// Snapshotter and pruner only.
	SchedulerOnly bool
	// Venues overrides the configured ingestion set when non-empty.
	Venues []string
}
