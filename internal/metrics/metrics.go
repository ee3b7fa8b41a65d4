// Fernweh - Resilient Place Discovery
// Copyright 2026 Fernweh Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fernweh-app/fernweh

// Package metrics provides Prometheus instrumentation for the discovery
// pipeline: cache efficiency, source-gate state, fetch latency and tiling.
// All metrics are registered via promauto at package load.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Geo cache metrics

	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fernweh_cache_hits_total",
			Help: "Total number of geo cache hits (fresh entries)",
		},
	)

	CacheStaleServes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fernweh_cache_stale_serves_total",
			Help: "Total number of stale cache entries served while revalidating",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fernweh_cache_misses_total",
			Help: "Total number of geo cache misses",
		},
	)

	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fernweh_cache_evictions_total",
			Help: "Total number of fast-tier entries evicted for capacity",
		},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fernweh_cache_entries",
			Help: "Current number of entries in the fast cache tier",
		},
	)

	CacheBackingErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernweh_cache_backing_errors_total",
			Help: "Total number of swallowed backing-store failures",
		},
		[]string{"operation"}, // "read", "write", "purge"
	)

	// Source gate metrics

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fernweh_breaker_state",
			Help: "Circuit breaker state per source (0=closed, 1=open, 2=half-open)",
		},
		[]string{"source"},
	)

	BreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernweh_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"source", "from", "to"},
	)

	GateRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernweh_gate_rejections_total",
			Help: "Total number of calls short-circuited by an open breaker",
		},
		[]string{"source"},
	)

	RateWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fernweh_gate_rate_wait_seconds",
			Help:    "Time spent waiting for a source rate-limit slot",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Fetch metrics

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fernweh_fetch_duration_seconds",
			Help:    "Duration of upstream fetch attempts",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source", "outcome"}, // outcome: "success", "error", "canceled"
	)

	FetchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernweh_fetch_results_total",
			Help: "Total number of raw records returned by upstream sources",
		},
		[]string{"source"},
	)

	// Pipeline metrics

	TilesPerRequest = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fernweh_tiles_per_request",
			Help:    "Number of tiles planned per discovery request",
			Buckets: []float64{1, 2, 4, 8, 12, 16, 24, 32},
		},
	)

	DiscoverDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fernweh_discover_duration_seconds",
			Help:    "End-to-end duration of discovery requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	DiscoverResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fernweh_discover_results",
			Help:    "Number of places returned per discovery request",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	// HTTP surface metrics

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fernweh_http_requests_total",
			Help: "Total number of HTTP requests by route and status class",
		},
		[]string{"route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fernweh_http_request_duration_seconds",
			Help:    "HTTP request duration by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
