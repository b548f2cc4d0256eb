package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline run metrics
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatwire_runs_total",
			Help: "Total number of ingestion runs",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threatwire_run_duration_seconds",
			Help:    "Ingestion run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArticlesAdded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatwire_articles_added_total",
			Help: "Total number of articles stored",
		},
	)

	ArticlesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threatwire_articles_skipped_total",
			Help: "Total number of feed items skipped (sponsored, duplicate, stale, or over cap)",
		},
	)

	FeedErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatwire_feed_errors_total",
			Help: "Total number of per-feed fetch failures",
		},
		[]string{"feed"},
	)

	ClassifierCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threatwire_classifier_calls_total",
			Help: "Total number of classifier calls by outcome",
		},
		[]string{"outcome"},
	)
)
