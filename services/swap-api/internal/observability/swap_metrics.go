package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "swap_api"

var (
	Recomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recomputes_total",
			Help:      "Amount recomputations that changed the derived field, by derived field",
		},
		[]string{"derived"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Failing rules reported to clients",
		},
		[]string{"field", "rule"},
	)

	RateFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_fetches_total",
			Help:      "Aggregator rate requests by outcome",
		},
		[]string{"outcome"},
	)

	RateFetchLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_fetch_duration_seconds",
			Help:      "Aggregator rate request latency including retries",
			Buckets:   prometheus.DefBuckets,
		},
	)

	RateObservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_observations_total",
			Help:      "Rate states handed to forms",
		},
		[]string{"state"},
	)

	EncryptionFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encryption_failures_total",
			Help:      "Payload encryptions that failed",
		},
	)

	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Submission attempts by status",
		},
		[]string{"status"},
	)

	BalanceLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "balance_lookups_total",
			Help:      "Wallet balance lookups by network and outcome",
		},
		[]string{"network", "outcome"},
	)
)
