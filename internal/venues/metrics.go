package venues

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	QuotesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsaxiom_venues_quotes_fetched_total",
		Help: "Total raw quotes fetched, by venue",
	}, []string{"venue"})

	FetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsaxiom_venues_fetch_errors_total",
		Help: "Total failed fetch cycles, by venue",
	}, []string{"venue"})

	ParseDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsaxiom_venues_parse_drops_total",
		Help: "Total entries dropped during response parsing, by venue",
	}, []string{"venue"})

	FetchDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oddsaxiom_venues_fetch_duration_seconds",
		Help:    "Duration of one fetch cycle, by venue",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"venue"})
)
