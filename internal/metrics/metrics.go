// Package metrics defines the Prometheus collectors for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// History store metrics
var (
	// StoreOpsTotal tracks history store operations by backend, operation and status.
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_store_operations_total",
			Help: "History store operations by backend, operation and status",
		},
		[]string{"backend", "operation", "status"},
	)

	// StoreOpDuration tracks history store operation latency in seconds.
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "history_store_operation_duration_seconds",
			Help:    "History store operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"backend", "operation"},
	)

	// StoreRetriesTotal counts retried remote store attempts.
	StoreRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "history_store_retries_total",
			Help: "Retried history store attempts by backend",
		},
		[]string{"backend"},
	)

	// CircuitBreakerState tracks the remote store breaker (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Fallback buffer metrics
var (
	// FallbackBufferedTotal counts assessments diverted to the in-process buffer.
	FallbackBufferedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fallback_buffered_records_total",
			Help: "Assessments buffered in process because the backend was unreachable",
		},
	)

	// FallbackServedTotal counts reads served stale from the buffer.
	FallbackServedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fallback_served_reads_total",
			Help: "History reads served from the fallback buffer",
		},
	)

	// FallbackDrainedTotal counts buffered records flushed back to the backend.
	FallbackDrainedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fallback_drained_records_total",
			Help: "Buffered records successfully flushed to the backend",
		},
	)
)

// Fusion metrics
var (
	// AssessmentsTotal counts fused assessments produced.
	AssessmentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fused_assessments_total",
			Help: "Total fused assessments produced",
		},
	)

	// AssessmentConfidence tracks the distribution of composite confidences.
	AssessmentConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fused_assessment_confidence",
			Help:    "Distribution of composite confidence values",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

// Cache metrics
var (
	// CacheHitsTotal counts recent-history cache hits.
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recent_cache_hits_total",
			Help: "Recent-history cache hits",
		},
	)

	// CacheMissesTotal counts recent-history cache misses.
	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recent_cache_misses_total",
			Help: "Recent-history cache misses",
		},
	)
)
