package cmd

import (
	"github.com/oddsaxiom/pipeline/internal/app"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var workersCmd = &cobra.Command{
	Use:   "workers",
	Short: "Run only the venue ingestion workers",
	Long: `Runs the venue workers without the engine or read APIs. Useful for
scaling ingestion separately: workers write to the shared Redis surface and
any number of engine processes can consume from it.`,
	RunE: runWorkers,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(workersCmd)
	workersCmd.Flags().StringSliceP("sources", "s", nil,
		"Venues to poll (default: all enabled via VENUES)")
}

func runWorkers(cmd *cobra.Command, args []string) error {
	sources, _ := cmd.Flags().GetStringSlice("sources")
	return launch(&app.Options{IngestOnly: true, Venues: sources})
}
