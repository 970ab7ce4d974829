// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package query

import (
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/gatewatch/internal/config"
	"github.com/tomtom215/gatewatch/internal/intel"
	"github.com/tomtom215/gatewatch/internal/killmail"
	"github.com/tomtom215/gatewatch/internal/store"
	"github.com/tomtom215/gatewatch/internal/watchlist"
)

// testShips classifies a handful of fixed hulls.
type testShips struct{}

func (testShips) IsAlpha(id int64) bool      { return id == 4302 }
func (testShips) IsAreaDamage(id int64) bool { return id == 17738 }
func (testShips) IsTackle(id int64) bool     { return id == 11993 }
func (testShips) IsCovert(id int64) bool     { return id == 22430 }
func (testShips) IsCapsule(id int64) bool    { return id == 670 }

type fakeRealtime struct{ healthy bool }

func (f fakeRealtime) Healthy() bool { return f.healthy }

func testDetectionConfig() config.DetectionConfig {
	return config.DetectionConfig{
		HighMinKills:          3,
		HighMinAsymmetry:      5.0,
		HighDominance:         0.6,
		MediumMinKills:        2,
		MediumDominance:       0.5,
		SmartbombMinPodKills:  2,
		TackleMaxAvgAttackers: 3.0,
		BlopsQuietPeriod:      50 * time.Minute,
		RecentKillsLimit:      10,
	}
}

type serviceFixture struct {
	store   *store.Store
	service *Service
	now     time.Time
}

func newFixture(t *testing.T, watched []config.WatchlistEntry, healthy bool) *serviceFixture {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ships := testShips{}
	st := store.NewWithDB(db, ships)
	cfg := testDetectionConfig()
	svc := New(st, intel.NewDetector(cfg, ships), ships, watchlist.New(watched), fakeRealtime{healthy}, cfg.RecentKillsLimit)

	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	return &serviceFixture{store: st, service: svc, now: now}
}

func (f *serviceFixture) insert(t *testing.T, id int64, systemID int64, age time.Duration, victimShip int64, attackerCorp int64, attackers int) {
	t.Helper()
	km := killmail.Killmail{
		ID:            id,
		Time:          f.now.Add(-age),
		SolarSystemID: systemID,
		Victim:        killmail.Victim{CorporationID: 98000500, ShipTypeID: victimShip},
	}
	for i := 0; i < attackers; i++ {
		km.Attackers = append(km.Attackers, killmail.Attacker{
			CorporationID: attackerCorp,
			ShipTypeID:    4302,
			FinalBlow:     i == 0,
		})
	}
	if _, err := f.store.Insert(&km); err != nil {
		t.Fatalf("insert killmail %d: %v", id, err)
	}
}

func TestGetActivity(t *testing.T) {
	f := newFixture(t, []config.WatchlistEntry{
		{EntityID: 98000001, EntityType: "corporation", Label: "Known Campers"},
	}, true)

	const system = 30002813
	f.insert(t, 1, system, 9*time.Minute, 587, 98000001, 6)
	f.insert(t, 2, system, 5*time.Minute, 587, 98000001, 6)
	f.insert(t, 3, system, 2*time.Minute, 670, 98000001, 6)
	f.insert(t, 4, system, 40*time.Minute, 587, 98000002, 2) // outside short window

	resp, err := f.service.GetActivity(system)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}

	if !resp.RealtimeHealthy {
		t.Error("RealtimeHealthy = false with a healthy feed")
	}
	if resp.Window.Kills10Min != 3 || resp.Window.Kills1Hour != 4 {
		t.Errorf("window = %+v, want 3 kills/10min, 4 kills/1h", resp.Window)
	}
	if resp.Window.PodKills1Hour != 1 {
		t.Errorf("PodKills1Hour = %d, want 1", resp.Window.PodKills1Hour)
	}
	if !resp.Detection.Detected || resp.Detection.Confidence != intel.ConfidenceHigh {
		t.Errorf("detection = %+v, want detected HIGH", resp.Detection)
	}

	if len(resp.RecentKills) != 4 {
		t.Fatalf("got %d recent kills, want 4", len(resp.RecentKills))
	}
	if resp.RecentKills[0].KillmailID != 3 {
		t.Errorf("newest recent kill = %d, want 3", resp.RecentKills[0].KillmailID)
	}
	if resp.RecentKills[0].AgeSeconds != 120 {
		t.Errorf("AgeSeconds = %d, want 120", resp.RecentKills[0].AgeSeconds)
	}

	// Watched corp attacked on kills 1-3.
	if len(resp.WatchlistMatches) != 3 {
		t.Errorf("got %d watchlist matches, want 3", len(resp.WatchlistMatches))
	}

	if len(resp.HourlyRollups) == 0 {
		t.Error("no hourly rollups attached")
	}
}

func TestGetActivityQuietSystem(t *testing.T) {
	f := newFixture(t, nil, true)

	resp, err := f.service.GetActivity(30000142)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if resp.Detection.Detected {
		t.Error("Detected = true for a system with no kills")
	}
	if len(resp.RecentKills) != 0 {
		t.Errorf("got %d recent kills for a quiet system", len(resp.RecentKills))
	}
}

func TestGetActivityRecentKillsCap(t *testing.T) {
	f := newFixture(t, nil, true)

	const system = 30002813
	for i := 1; i <= 15; i++ {
		f.insert(t, int64(i), system, time.Duration(60-i)*time.Minute/2, 587, 98000002, 2)
	}

	resp, err := f.service.GetActivity(system)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if len(resp.RecentKills) != 10 {
		t.Fatalf("got %d recent kills, want cap of 10", len(resp.RecentKills))
	}
	if resp.RecentKills[0].KillmailID != 15 {
		t.Errorf("newest recent kill = %d, want 15", resp.RecentKills[0].KillmailID)
	}
	for i := 1; i < len(resp.RecentKills); i++ {
		if resp.RecentKills[i].Time.After(resp.RecentKills[i-1].Time) {
			t.Errorf("recent kills not newest-first at index %d", i)
		}
	}
}

// A populated store with a degraded feed still serves full historical data;
// only the realtime flag changes.
func TestGetActivityDegradedFeed(t *testing.T) {
	f := newFixture(t, nil, false)

	const system = 30002813
	f.insert(t, 1, system, 5*time.Minute, 587, 98000001, 6)
	f.insert(t, 2, system, 3*time.Minute, 587, 98000001, 6)

	resp, err := f.service.GetActivity(system)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if resp.RealtimeHealthy {
		t.Error("RealtimeHealthy = true with a degraded feed")
	}
	if !resp.Detection.Detected {
		t.Error("Detected = false; degraded feed must not suppress detection on stored data")
	}
	if len(resp.RecentKills) != 2 {
		t.Errorf("got %d recent kills, want 2", len(resp.RecentKills))
	}
}

func TestGetActivityInvalidSystem(t *testing.T) {
	f := newFixture(t, nil, true)
	if _, err := f.service.GetActivity(0); err == nil {
		t.Error("GetActivity(0) succeeded, want error")
	}
}

func TestGetWatchlistActivity(t *testing.T) {
	f := newFixture(t, []config.WatchlistEntry{
		{EntityID: 98000001, EntityType: "corporation", Label: "Known Campers"},
	}, true)

	f.insert(t, 1, 30002813, 5*time.Minute, 587, 98000001, 3)
	f.insert(t, 2, 30000142, 10*time.Minute, 587, 98000001, 3)
	f.insert(t, 3, 30045339, 15*time.Minute, 587, 98000002, 3)
	f.insert(t, 4, 30002813, 90*time.Minute, 587, 98000001, 3) // outside range

	resp, err := f.service.GetWatchlistActivity(60)
	if err != nil {
		t.Fatalf("GetWatchlistActivity: %v", err)
	}
	if len(resp.Matches) != 2 {
		t.Fatalf("got %d matches, want 2 (cross-system, in range)", len(resp.Matches))
	}
	systems := map[int64]bool{}
	for _, m := range resp.Matches {
		systems[m.SolarSystemID] = true
	}
	if !systems[30002813] || !systems[30000142] {
		t.Errorf("matched systems = %v, want both 30002813 and 30000142", systems)
	}

	if _, err := f.service.GetWatchlistActivity(0); err == nil {
		t.Error("GetWatchlistActivity(0) succeeded, want error")
	}
}

func TestGetWatchlistActivityEmptyWatchlist(t *testing.T) {
	f := newFixture(t, nil, true)
	f.insert(t, 1, 30002813, 5*time.Minute, 587, 98000001, 3)

	resp, err := f.service.GetWatchlistActivity(60)
	if err != nil {
		t.Fatalf("GetWatchlistActivity: %v", err)
	}
	if len(resp.Matches) != 0 {
		t.Errorf("got %d matches from empty watchlist, want 0", len(resp.Matches))
	}
}
