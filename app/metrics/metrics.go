// Package metrics holds the Prometheus collectors for digest runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rss_digest"

// Item outcomes.
const (
	OutcomeContributed = "contributed"
	OutcomeElided      = "elided"
	OutcomeFailed      = "failed"
	OutcomeCapped      = "capped"
)

// Run results.
const (
	ResultDelivered = "delivered"
	ResultEmpty     = "empty"
	ResultFailed    = "failed"
)

var (
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Digest runs by result.",
	}, []string{"result"})

	Items = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_total",
		Help:      "Scanned feed items by source and outcome.",
	}, []string{"source", "outcome"})

	FeedFetchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_fetch_failures_total",
		Help:      "Feed fetches that failed, by source.",
	}, []string{"source"})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last run finished.",
	})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of digest runs.",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})
)
