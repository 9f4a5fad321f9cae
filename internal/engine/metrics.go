package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	UpdatesConsumedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsaxiom_engine_updates_consumed_total",
		Help: "Total stream entries consumed, by venue",
	}, []string{"venue"})

	UpdatesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsaxiom_engine_updates_dropped_total",
		Help: "Total stream entries dropped before buffering, by reason",
	}, []string{"reason"})

	OpportunitiesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_engine_opportunities_detected_total",
		Help: "Total arbitrage opportunities emitted",
	})

	DetectionsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oddsaxiom_engine_detections_skipped_total",
		Help: "Total canonical titles skipped during detection, by reason",
	}, []string{"reason"})

	DetectionDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsaxiom_engine_detection_duration_seconds",
		Help:    "Duration of a full detection pass over the buffer",
		Buckets: prometheus.DefBuckets,
	})

	OpportunityProfit = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsaxiom_engine_opportunity_profit",
		Help:    "Expected profit margin of emitted opportunities",
		Buckets: []float64{0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5},
	})

	BufferTitles = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oddsaxiom_engine_buffer_titles",
		Help: "Canonical titles currently tracked in the buffer",
	})

	BufferStateTitles = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "oddsaxiom_engine_buffer_state_titles",
		Help: "Canonical titles in the buffer, by lifecycle state",
	}, []string{"state"})

	OpportunitiesStoredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_engine_opportunities_stored_total",
		Help: "Total opportunities written to the opportunity store",
	})

	StoreErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_engine_store_errors_total",
		Help: "Total opportunity store write failures",
	})

	ReclustersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_engine_reclusters_total",
		Help: "Total recluster passes over the buffer",
	})
)
