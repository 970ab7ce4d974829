// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package feed

import (
	"sync"
	"time"

	"github.com/tomtom215/gatewatch/internal/metrics"
)

// Health tracks feed liveness. The feed is degraded when it has either
// failed too many polls in a row or not delivered anything for too long.
// It starts degraded: liveness must be proven, not assumed.
type Health struct {
	mu                  sync.Mutex
	lastSuccess         time.Time
	consecutiveFailures int

	failureThreshold int
	staleness        time.Duration

	now func() time.Time
}

// HealthSnapshot is the externally visible feed state.
type HealthSnapshot struct {
	Healthy             bool       `json:"healthy"`
	LastSuccess         *time.Time `json:"last_success,omitempty"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
}

// NewHealth creates a tracker in the degraded state.
func NewHealth(failureThreshold int, staleness time.Duration) *Health {
	h := &Health{
		failureThreshold: failureThreshold,
		staleness:        staleness,
		now:              time.Now,
	}
	metrics.FeedHealthy.Set(0)
	return h
}

// RecordSuccess marks a successful poll. A single success restores health.
func (h *Health) RecordSuccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastSuccess = h.now()
	h.consecutiveFailures = 0
	metrics.FeedHealthy.Set(1)
}

// RecordFailure counts a failed poll attempt.
func (h *Health) RecordFailure() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	if !h.healthyLocked() {
		metrics.FeedHealthy.Set(0)
	}
}

// Healthy reports whether the feed is currently considered live.
func (h *Health) Healthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	healthy := h.healthyLocked()
	if !healthy {
		// Staleness can flip state without any poll happening.
		metrics.FeedHealthy.Set(0)
	}
	return healthy
}

// Snapshot returns the current state for health endpoints.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := HealthSnapshot{
		Healthy:             h.healthyLocked(),
		ConsecutiveFailures: h.consecutiveFailures,
	}
	if !h.lastSuccess.IsZero() {
		t := h.lastSuccess
		s.LastSuccess = &t
	}
	return s
}

func (h *Health) healthyLocked() bool {
	if h.lastSuccess.IsZero() {
		return false
	}
	if h.consecutiveFailures >= h.failureThreshold {
		return false
	}
	return h.now().Sub(h.lastSuccess) <= h.staleness
}
