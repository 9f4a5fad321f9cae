package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotesPublishedTotal counts quotes written to the live cache and stream.
	QuotesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oddsaxiom_publisher_quotes_published_total",
			Help: "Total number of normalised quotes published",
		},
		[]string{"venue"},
	)

	// QuotesRejectedTotal counts quotes dropped at the publisher boundary.
	QuotesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oddsaxiom_publisher_quotes_rejected_total",
			Help: "Total number of quotes rejected for implied probability at 0 or 1",
		},
		[]string{"venue"},
	)

	// PublishErrorsTotal counts failed publish pipelines.
	PublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "oddsaxiom_publisher_pipeline_errors_total",
		Help: "Total number of failed publish pipelines",
	})

	// PublishDurationSeconds tracks publish pipeline latency.
	PublishDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "oddsaxiom_publisher_publish_duration_seconds",
		Help:    "Duration of one publish pipeline round-trip",
		Buckets: prometheus.DefBuckets,
	})
)
