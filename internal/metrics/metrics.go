package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ItemsProcessed tracks work items by outcome (success, error, skipped)
	ItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_items_processed_total",
			Help: "Total number of work items processed",
		},
		[]string{"outcome"},
	)

	// ErrorsTotal tracks classified errors per kind
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_errors_total",
			Help: "Total number of classified errors",
		},
		[]string{"kind"},
	)

	// SourceFetchesTotal tracks fetch attempts per source and result
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curator_source_fetches_total",
			Help: "Total number of source fetches",
		},
		[]string{"source", "result"},
	)

	// SourceLatency tracks fetch latency per source
	SourceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curator_source_latency_seconds",
			Help:    "Source fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// BreakerState tracks circuit breaker state per source (0 closed, 1 half-open, 2 open)
	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=half-open, 2=open)",
		},
		[]string{"source"},
	)

	// RecordCompleteness tracks the fraction of fields supplied by real sources
	RecordCompleteness = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "curator_record_completeness",
			Help:    "Fraction of required fields populated from a real source",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	// BatchProgressItems tracks checkpoint counters for the current run
	BatchProgressItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curator_batch_progress_items",
			Help: "Current run progress counters",
		},
		[]string{"counter"},
	)
)
