package cmd

import (
	"github.com/oddsaxiom/pipeline/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run only the snapshotter and pruner",
	Long: `Runs the durable-history maintenance loops: the snapshotter copying
the live cache into Postgres and the pruner enforcing the retention window.
Requires STORAGE_MODE=postgres.`,
	RunE: runScheduler,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	return launch(&app.Options{SchedulerOnly: true})
}
