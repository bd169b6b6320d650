// Bibliographus - Book Recommendation Engine and Cover Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bibliographus

// Package metrics provides Prometheus instrumentation for:
//   - Engine build duration and corpus sizes
//   - API endpoint latency and throughput
//   - Cover cache efficiency
//   - Cover fetch failures
//
// All collectors are registered with the default registry via promauto
// and exposed on /metrics by the API router.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Engine metrics
	EngineBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_build_duration_seconds",
			Help:    "Duration of full recommendation engine builds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	EngineRankedBooks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_ranked_books",
			Help: "Number of books in the popularity ranking",
		},
	)

	EngineUniverseSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_similarity_universe_books",
			Help: "Number of books in the collaborative similarity matrix",
		},
	)

	// API metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Cover cache metrics
	CoverCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cover_cache_hits_total",
			Help: "Total number of cover cache hits",
		},
	)

	CoverCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cover_cache_misses_total",
			Help: "Total number of cover cache misses",
		},
	)

	CoverCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cover_cache_entries",
			Help: "Current number of cached cover images",
		},
	)

	// Cover fetch metrics
	CoverFetchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cover_fetch_failures_total",
			Help: "Total number of failed cover fetches",
		},
	)
)

// RecordEngineBuild records a completed engine build.
func RecordEngineBuild(duration time.Duration, rankedBooks, universeSize int) {
	EngineBuildDuration.Observe(duration.Seconds())
	EngineRankedBooks.Set(float64(rankedBooks))
	EngineUniverseSize.Set(float64(universeSize))
}

// RecordAPIRequest records a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
}

// RecordCoverLookup records one cover cache lookup and updates the entry
// gauge.
func RecordCoverLookup(hit bool, entries int) {
	if hit {
		CoverCacheHits.Inc()
	} else {
		CoverCacheMisses.Inc()
	}
	CoverCacheEntries.Set(float64(entries))
}
