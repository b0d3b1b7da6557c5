// Cobasket - Frequently Bought Together Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cobasket

// Package metrics defines the Prometheus instrumentation for Cobasket:
// graph store operations, ingestion cycles, recommendation requests, the
// remote source circuit breaker, and the HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Graph Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of graph store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_operation_errors_total",
			Help: "Total number of failed graph store operations",
		},
		[]string{"backend", "operation"},
	)

	StoreSessionsOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "store_sessions_open",
			Help: "Current number of open graph store sessions",
		},
		[]string{"backend"},
	)

	// Graph Shape Metrics (updated after every successful ingestion)
	GraphOrders = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_orders",
			Help: "Number of Order nodes in the current dataset",
		},
	)

	GraphItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_items",
			Help: "Number of Item nodes in the current dataset",
		},
	)

	GraphCooccurrenceEdges = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "graph_cooccurrence_edges",
			Help: "Number of ORDERED_TOGETHER edges in the current dataset",
		},
	)

	// Ingestion Metrics
	IngestRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_runs_total",
			Help: "Total number of ingestion cycles by result",
		},
		[]string{"result"}, // "success", "source_error", "store_error"
	)

	IngestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_duration_seconds",
			Help:    "Duration of reset+ingest+build cycles in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	IngestOrdersLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_orders_loaded",
			Help: "Number of orders loaded by the last successful ingestion",
		},
	)

	IngestLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_last_success_timestamp",
			Help: "Unix timestamp of the last successful ingestion",
		},
	)

	// Recommendation Metrics
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "insufficient_data", "error"
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommend_duration_seconds",
			Help:    "Duration of recommendation scoring in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	RecommendCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	RecommendCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommend_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	RecommendCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_cache_entries",
			Help: "Number of cached recommendation results",
		},
	)

	// Order Source Metrics
	SourceFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_fetch_total",
			Help: "Total number of order document fetches",
		},
		[]string{"kind", "result"}, // kind: "local", "remote"
	)

	SourceBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "source_bytes_total",
			Help: "Total bytes read from order documents",
		},
		[]string{"kind"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 60},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)
)

// RecordStoreOperation records one graph store operation.
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordIngest records the outcome of one reset+ingest+build cycle.
func RecordIngest(result string, duration time.Duration, orders int) {
	IngestRuns.WithLabelValues(result).Inc()
	IngestDuration.Observe(duration.Seconds())
	if result == "success" {
		IngestOrdersLoaded.Set(float64(orders))
		IngestLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordGraphShape publishes the node and edge counts of the current dataset.
func RecordGraphShape(orders, items, cooccurrenceEdges int64) {
	GraphOrders.Set(float64(orders))
	GraphItems.Set(float64(items))
	GraphCooccurrenceEdges.Set(float64(cooccurrenceEdges))
}

// RecordRecommend records one recommendation request.
func RecordRecommend(outcome string, duration time.Duration) {
	RecommendRequests.WithLabelValues(outcome).Inc()
	RecommendDuration.Observe(duration.Seconds())
}

// RecordSourceFetch records one order document fetch.
func RecordSourceFetch(kind string, bytes int64, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	SourceFetches.WithLabelValues(kind, result).Inc()
	if bytes > 0 {
		SourceBytes.WithLabelValues(kind).Add(float64(bytes))
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
