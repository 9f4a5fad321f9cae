package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "oddsaxiom",
	Short: "Cross-venue prediction market odds pipeline",
	Long: `OddsAxiom polls prediction markets and sportsbooks, normalises their
odds into probability space, and publishes them to a shared Redis surface.
An arbitrage engine consumes the normalised stream, clusters equivalent
markets across venues, and surfaces opportunities where the best prices
sum below certainty.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// A missing .env is fine; the environment wins either way.
	_ = godotenv.Load()
}
