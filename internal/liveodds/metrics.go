package liveodds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ResponseCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_liveodds_response_cache_hits_total",
		Help: "Total assembled responses served from the response cache",
	})

	AssembleDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsaxiom_liveodds_assemble_duration_seconds",
		Help:    "Duration of a full scan-and-group assembly",
		Buckets: prometheus.DefBuckets,
	})
)
