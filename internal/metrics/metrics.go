// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package metrics registers Prometheus instrumentation for the killmail
// pipeline: feed health, ingestion throughput, store retention, and
// query-path latency. Exposed at /metrics via promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed Metrics
	FeedMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_messages_received_total",
			Help: "Total number of raw messages received from the killmail feed",
		},
	)

	FeedPollFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_poll_failures_total",
			Help: "Total number of failed feed poll attempts",
		},
		[]string{"reason"}, // "dial", "subscribe", "read", "timeout", "breaker_open"
	)

	FeedReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Total number of feed reconnection attempts",
		},
	)

	FeedHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_healthy",
			Help: "Whether the real-time feed is currently healthy (1) or degraded (0)",
		},
	)

	// Ingestion Metrics
	KillmailsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killmails_ingested_total",
			Help: "Total number of killmails inserted into the store",
		},
	)

	KillmailsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killmails_duplicate_total",
			Help: "Total number of killmails skipped as already ingested",
		},
	)

	KillmailsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "killmails_rejected_total",
			Help: "Total number of raw feed records dropped by the normalizer",
		},
		[]string{"reason"}, // "parse", "missing_id", "bad_timestamp", "no_attackers", "final_blow", "missing_system", "missing_victim"
	)

	// Store Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_operation_duration_seconds",
			Help:    "Duration of badger store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "insert", "query", "prune", "rollup"
	)

	KillmailsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "killmails_pruned_total",
			Help: "Total number of killmails removed by retention pruning",
		},
	)

	// Detection Metrics
	DetectionsComputed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detections_computed_total",
			Help: "Total number of gatecamp detections computed, by confidence",
		},
		[]string{"confidence"}, // "high", "medium", "low", "none"
	)

	WatchlistMatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "watchlist_matches_total",
			Help: "Total number of watchlist matches returned to callers",
		},
		[]string{"role"}, // "attacker", "victim"
	)

	// Query Metrics
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "query_duration_seconds",
			Help:    "Duration of query service calls in seconds",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"}, // "activity", "watchlist_activity"
	)
)
