package cmd

import (
	"github.com/oddsaxiom/pipeline/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var engineCmd = &cobra.Command{
	Use:   "engine",
	Short: "Run the engine and read side without ingestion",
	Long: `Runs the arbitrage engine, snapshotter, pruner, and HTTP read side
against an already-populated Redis surface. Pair with 'workers' processes
feeding the same Redis. Set ENGINE_CONSUMER per process to scale out the
consumer group.`,
	RunE: runEngine,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(engineCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	return launch(&app.Options{NoWorkers: true})
}
