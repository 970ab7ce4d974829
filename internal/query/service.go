// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package query is the read facade over the store and detection engine.
// Every response is computed fresh from stored killmails at call time;
// nothing here caches detections or windows. A degraded feed changes only
// the realtime_healthy flag, never the data.
package query

import (
	"fmt"
	"time"

	"github.com/tomtom215/gatewatch/internal/intel"
	"github.com/tomtom215/gatewatch/internal/killmail"
	"github.com/tomtom215/gatewatch/internal/metrics"
	"github.com/tomtom215/gatewatch/internal/store"
	"github.com/tomtom215/gatewatch/internal/watchlist"
)

// rollupLookback bounds the hourly history attached to activity responses.
const rollupLookback = 24 * time.Hour

// RealtimeChecker reports feed liveness. Satisfied by *feed.Health.
type RealtimeChecker interface {
	Healthy() bool
}

// RecentKill is one killmail in an activity response, trimmed for display.
type RecentKill struct {
	KillmailID          int64     `json:"killmail_id"`
	Time                time.Time `json:"time"`
	AgeSeconds          int64     `json:"age_seconds"`
	VictimCorporationID int64     `json:"victim_corporation_id"`
	VictimShipTypeID    int64     `json:"victim_ship_type_id"`
	AttackerCount       int       `json:"attacker_count"`
}

// ActivityResponse is the full assessment for one solar system.
type ActivityResponse struct {
	SolarSystemID    int64                `json:"solar_system_id"`
	GeneratedAt      time.Time            `json:"generated_at"`
	RealtimeHealthy  bool                 `json:"realtime_healthy"`
	Window           intel.ActivityWindow `json:"window"`
	Detection        intel.Detection      `json:"detection"`
	RecentKills      []RecentKill         `json:"recent_kills"`
	WatchlistMatches []watchlist.Match    `json:"watchlist_matches,omitempty"`

	// HourlyRollups cover the last 24 hours and survive detail pruning,
	// so callers still see history when the feed has been down a while.
	HourlyRollups []store.HourlyRollup `json:"hourly_rollups,omitempty"`
}

// WatchlistActivityResponse is the cross-system watched-entity sweep.
type WatchlistActivityResponse struct {
	GeneratedAt     time.Time         `json:"generated_at"`
	SinceMinutes    int               `json:"since_minutes"`
	RealtimeHealthy bool              `json:"realtime_healthy"`
	Matches         []watchlist.Match `json:"matches"`
}

// Service answers activity queries. Safe for concurrent use.
type Service struct {
	store    *store.Store
	detector *intel.Detector
	ships    intel.ShipClassifier
	matcher  *watchlist.Matcher
	realtime RealtimeChecker

	recentLimit int
	now         func() time.Time
}

// New creates the query service.
func New(st *store.Store, det *intel.Detector, ships intel.ShipClassifier, m *watchlist.Matcher, rt RealtimeChecker, recentLimit int) *Service {
	return &Service{
		store:       st,
		detector:    det,
		ships:       ships,
		matcher:     m,
		realtime:    rt,
		recentLimit: recentLimit,
		now:         time.Now,
	}
}

// GetActivity computes the current assessment for one solar system.
func (s *Service) GetActivity(systemID int64) (*ActivityResponse, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("activity").Observe(time.Since(start).Seconds())
	}()

	if systemID <= 0 {
		return nil, fmt.Errorf("invalid solar system id %d", systemID)
	}

	now := s.now()
	kills, err := s.store.QuerySystemSince(systemID, now.Add(-intel.LongWindow))
	if err != nil {
		return nil, fmt.Errorf("query system %d: %w", systemID, err)
	}

	rollups, err := s.store.HourlyRollups(systemID, now.Add(-rollupLookback))
	if err != nil {
		return nil, fmt.Errorf("rollups for system %d: %w", systemID, err)
	}

	return &ActivityResponse{
		SolarSystemID:    systemID,
		GeneratedAt:      now,
		RealtimeHealthy:  s.realtime.Healthy(),
		Window:           intel.ComputeWindow(systemID, now, kills, s.ships),
		Detection:        s.detector.Detect(systemID, now, kills),
		RecentKills:      s.recentKills(now, kills),
		WatchlistMatches: s.matcher.MatchAll(kills),
		HourlyRollups:    rollups,
	}, nil
}

// GetWatchlistActivity sweeps all systems for watched-entity sightings in
// the last sinceMinutes.
func (s *Service) GetWatchlistActivity(sinceMinutes int) (*WatchlistActivityResponse, error) {
	start := time.Now()
	defer func() {
		metrics.QueryDuration.WithLabelValues("watchlist_activity").Observe(time.Since(start).Seconds())
	}()

	if sinceMinutes <= 0 {
		return nil, fmt.Errorf("since_minutes must be positive, got %d", sinceMinutes)
	}

	now := s.now()
	resp := &WatchlistActivityResponse{
		GeneratedAt:     now,
		SinceMinutes:    sinceMinutes,
		RealtimeHealthy: s.realtime.Healthy(),
	}

	if s.matcher.Empty() {
		resp.Matches = []watchlist.Match{}
		return resp, nil
	}

	kills, err := s.store.QueryAllSince(now.Add(-time.Duration(sinceMinutes) * time.Minute))
	if err != nil {
		return nil, fmt.Errorf("watchlist sweep: %w", err)
	}
	resp.Matches = s.matcher.MatchAll(kills)
	if resp.Matches == nil {
		resp.Matches = []watchlist.Match{}
	}
	return resp, nil
}

// recentKills returns up to recentLimit kills, newest first.
func (s *Service) recentKills(now time.Time, kills []killmail.Killmail) []RecentKill {
	out := make([]RecentKill, 0, min(len(kills), s.recentLimit))

	// Store order is oldest first; walk backwards.
	for i := len(kills) - 1; i >= 0 && len(out) < s.recentLimit; i-- {
		km := &kills[i]
		out = append(out, RecentKill{
			KillmailID:          km.ID,
			Time:                km.Time,
			AgeSeconds:          int64(km.Age(now) / time.Second),
			VictimCorporationID: km.Victim.CorporationID,
			VictimShipTypeID:    km.Victim.ShipTypeID,
			AttackerCount:       len(km.Attackers),
		})
	}
	return out
}
