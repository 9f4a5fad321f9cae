package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	ClustersBuiltTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_matcher_clusters_built_total",
		Help: "Total number of full clustering passes",
	})

	ClusterDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsaxiom_matcher_cluster_duration_seconds",
		Help:    "Duration of a full clustering pass",
		Buckets: prometheus.DefBuckets,
	})
)
