package cmd

import (
	"fmt"

	"github.com/oddsaxiom/pipeline/internal/app"
	"github.com/oddsaxiom/pipeline/pkg/config"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the full pipeline",
	Long: `Starts the whole pipeline in one process:
1. Venue workers polling every enabled venue
2. The arbitrage engine consuming the normalised stream
3. The snapshotter and pruner maintaining durable history
4. The HTTP read side (/api/odds, /api/arbitrage/opportunities, /metrics)`,
	RunE: runPipeline,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	return launch(nil)
}

// launch builds and runs the app with shared config/logger plumbing.
func launch(opts *app.Options) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	application, err := app.New(cfg, logger, opts)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
