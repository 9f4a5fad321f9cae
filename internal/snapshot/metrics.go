package snapshot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RowsInsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_snapshot_rows_inserted_total",
		Help: "Total snapshot rows inserted",
	})

	RowsPrunedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_snapshot_rows_pruned_total",
		Help: "Total snapshot rows deleted past retention",
	})

	ScanErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_snapshot_scan_errors_total",
		Help: "Total live cache scan failures",
	})

	InsertErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_snapshot_insert_errors_total",
		Help: "Total snapshot insert failures",
	})

	SnapshotDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsaxiom_snapshot_duration_seconds",
		Help:    "Duration of one full snapshot pass",
		Buckets: prometheus.DefBuckets,
	})
)
