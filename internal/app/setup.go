package app

import (
	"context"
	"fmt"

	"github.com/oddsaxiom/pipeline/internal/engine"
	"github.com/oddsaxiom/pipeline/internal/liveodds"
	"github.com/oddsaxiom/pipeline/internal/matcher"
	"github.com/oddsaxiom/pipeline/internal/publisher"
	"github.com/oddsaxiom/pipeline/internal/snapshot"
	"github.com/oddsaxiom/pipeline/internal/venues"
	"github.com/oddsaxiom/pipeline/pkg/config"
	"github.com/oddsaxiom/pipeline/pkg/healthprobe"
	"github.com/oddsaxiom/pipeline/pkg/httpserver"
	"github.com/oddsaxiom/pipeline/pkg/redisclient"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New creates a new application instance.
func New(cfg *config.Config, logger *zap.Logger, opts *Options) (*App, error) {
	if opts == nil {
		opts = &Options{}
	}
	if len(opts.Venues) > 0 {
		cfg.EnabledVenues = opts.Venues
	}
	if opts.SchedulerOnly && cfg.StorageMode != "postgres" {
		return nil, fmt.Errorf("scheduler mode requires STORAGE_MODE=postgres")
	}

	ctx, cancel := context.WithCancel(context.Background())

	rdb, err := redisclient.New(ctx, cfg.RedisURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup redis: %w", err)
	}

	titleMatcher, err := setupMatcher(cfg, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("setup matcher: %w", err)
	}

	app := &App{
		cfg:           cfg,
		logger:        logger,
		healthChecker: setupHealthChecker(rdb),
		rdb:           rdb,
		matcher:       titleMatcher,
		ctx:           ctx,
		cancel:        cancel,
	}

	runWorkers := !opts.NoWorkers && !opts.SchedulerOnly
	runEngine := !opts.IngestOnly && !opts.SchedulerOnly
	runSnapshots := cfg.StorageMode == "postgres" && !opts.IngestOnly

	if runWorkers {
		app.workers, err = setupWorkers(cfg, logger, rdb)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup workers: %w", err)
		}
	}

	var oppStore *engine.Store
	if runEngine {
		oppStore = engine.NewStore(rdb, engine.StoreConfig{
			OpportunityTTL: cfg.OpportunityTTL,
			Logger:         logger,
		})
		app.arbEngine = setupEngine(cfg, logger, rdb, titleMatcher, oppStore)
		app.assembler = liveodds.New(rdb, titleMatcher, liveodds.Config{
			ResponseTTL: 2 * cfg.MatcherCacheTTL,
			Logger:      logger,
		})
	}

	// Metrics and probes are served in every mode; the read APIs only when
	// the engine runs in this process.
	app.httpServer = setupHTTPServer(cfg, logger, app.healthChecker, app.assembler, oppStore)

	if runSnapshots {
		app.snapStore, app.snapshotter, app.pruner, err = setupSnapshots(ctx, cfg, logger, rdb)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("setup snapshots: %w", err)
		}
		app.healthChecker.RegisterProbe("postgres", func(context.Context) error {
			return app.snapStore.Ping()
		})
	}

	return app, nil
}

func setupHealthChecker(rdb *redis.Client) *healthprobe.HealthChecker {
	hc := healthprobe.New()
	hc.RegisterProbe("redis", func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	})
	return hc
}

func setupMatcher(cfg *config.Config, logger *zap.Logger) (*matcher.Matcher, error) {
	return matcher.New(matcher.Config{
		CacheTTL: cfg.MatcherCacheTTL,
		Logger:   logger,
	})
}

func setupWorkers(cfg *config.Config, logger *zap.Logger, rdb *redis.Client) ([]*venues.Worker, error) {
	pub := publisher.New(rdb, publisher.Config{
		CacheTTL:     cfg.LiveCacheTTL,
		StreamMaxLen: cfg.StreamMaxLen,
		Logger:       logger,
	})

	workers := make([]*venues.Worker, 0, len(cfg.EnabledVenues))
	for _, slug := range cfg.EnabledVenues {
		adapter, err := buildAdapter(slug, cfg, logger)
		if err != nil {
			return nil, err
		}
		workers = append(workers, venues.NewWorker(adapter, pub, logger))
	}
	return workers, nil
}

func buildAdapter(slug string, cfg *config.Config, logger *zap.Logger) (venues.Adapter, error) {
	switch slug {
	case "polymarket":
		return venues.NewPolymarket(logger), nil
	case "kalshi":
		return venues.NewKalshi(cfg.KalshiAPIKey, logger), nil
	case "predictit":
		return venues.NewPredictIt(logger), nil
	case "gemini":
		return venues.NewGemini(logger), nil
	case "limitless":
		return venues.NewLimitless(logger), nil
	case "robinhood":
		return venues.NewRobinhood(logger), nil
	case "coinbase":
		return venues.NewCoinbase(logger), nil
	case "theoddsapi":
		return venues.NewTheOddsAPI(cfg.TheOddsAPIKey, logger), nil
	case "draftkings":
		return venues.NewDraftKings(cfg.ApifyAPIToken, logger), nil
	default:
		return nil, fmt.Errorf("unknown venue %q", slug)
	}
}

func setupEngine(
	cfg *config.Config,
	logger *zap.Logger,
	rdb *redis.Client,
	m *matcher.Matcher,
	store *engine.Store,
) *engine.Engine {
	return engine.New(rdb, m, store, engine.Config{
		Group:             cfg.EngineGroup,
		Consumer:          cfg.EngineConsumer,
		ReadCount:         int(cfg.EngineReadCount),
		BlockTime:         cfg.EngineBlockTime,
		DetectionInterval: cfg.DetectionInterval,
		ReclusterCycles:   cfg.ReclusterCycles,
		MinProfit:         cfg.MinProfit,
		TotalStake:        cfg.TotalStake,
		StaleHorizon:      cfg.StaleHorizon(),
		Logger:            logger,
	})
}

func setupHTTPServer(
	cfg *config.Config,
	logger *zap.Logger,
	healthChecker *healthprobe.HealthChecker,
	assembler *liveodds.Assembler,
	store *engine.Store,
) *httpserver.Server {
	return httpserver.New(&httpserver.Config{
		Port:             cfg.HTTPPort,
		Logger:           logger,
		HealthChecker:    healthChecker,
		OddsAssembler:    assembler,
		OpportunityStore: store,
	})
}

func setupSnapshots(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	rdb *redis.Client,
) (*snapshot.PostgresStore, *snapshot.Snapshotter, *snapshot.Pruner, error) {
	store, err := snapshot.NewPostgresStore(&snapshot.PostgresConfig{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPass,
		Database: cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSL,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create snapshot store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("ensure snapshot schema: %w", err)
	}

	snapshotter := snapshot.New(rdb, store, snapshot.Config{
		Interval:  cfg.SnapshotInterval,
		Grace:     cfg.SnapshotGrace,
		BatchSize: cfg.SnapshotBatchSize,
		Logger:    logger,
	})
	pruner := snapshot.NewPruner(store, snapshot.PrunerConfig{
		Interval:      cfg.PruneInterval,
		RetentionDays: cfg.RetentionDays,
		StaleInterval: cfg.StaleCheckInterval,
		StaleDays:     cfg.StaleDays,
		Logger:        logger,
	})
	return store, snapshotter, pruner, nil
}
