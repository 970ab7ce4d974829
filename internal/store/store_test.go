// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package store

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/gatewatch/internal/killmail"
)

// capsuleClassifier treats type 670 (Capsule) as a pod.
type capsuleClassifier struct{}

func (capsuleClassifier) IsCapsule(shipTypeID int64) bool {
	return shipTypeID == 670
}

func newTestStore(t *testing.T) *Store {
	t.Helper()

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("close badger: %v", err)
		}
	})

	return NewWithDB(db, capsuleClassifier{})
}

func testKill(id, systemID int64, ts time.Time, victimShip int64) *killmail.Killmail {
	return &killmail.Killmail{
		ID:            id,
		Time:          ts,
		SolarSystemID: systemID,
		Victim: killmail.Victim{
			CorporationID: 98000001,
			ShipTypeID:    victimShip,
		},
		Attackers: []killmail.Attacker{
			{CorporationID: 98000002, ShipTypeID: 17738, FinalBlow: true},
		},
	}
}

func TestInsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	km := testKill(1001, 30002813, now, 587)

	res, err := s.Insert(km)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if res != Inserted {
		t.Errorf("first insert result = %v, want Inserted", res)
	}

	res, err = s.Insert(km)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if res != AlreadyExists {
		t.Errorf("second insert result = %v, want AlreadyExists", res)
	}

	kills, err := s.QuerySystemSince(30002813, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(kills) != 1 {
		t.Fatalf("stored rows = %d, want exactly 1", len(kills))
	}

	// Duplicate insert must not double-count the rollup either.
	kills1h, _, err := s.RollupTotals(30002813)
	if err != nil {
		t.Fatalf("rollup totals: %v", err)
	}
	if kills1h != 1 {
		t.Errorf("rollup kills = %d, want 1", kills1h)
	}
}

func TestQuerySystemSince(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	for i, offset := range []time.Duration{0, 5 * time.Minute, 20 * time.Minute, 55 * time.Minute} {
		km := testKill(int64(2000+i), 30002813, base.Add(offset), 587)
		if _, err := s.Insert(km); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	// A kill in a different system must never appear.
	if _, err := s.Insert(testKill(2999, 30000142, base.Add(10*time.Minute), 587)); err != nil {
		t.Fatalf("insert other system: %v", err)
	}

	kills, err := s.QuerySystemSince(30002813, base.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(kills) != 2 {
		t.Fatalf("kills = %d, want 2", len(kills))
	}
	for _, km := range kills {
		if km.SolarSystemID != 30002813 {
			t.Errorf("got kill from system %d", km.SolarSystemID)
		}
	}
	if !kills[0].Time.Before(kills[1].Time) {
		t.Error("kills not ordered oldest first")
	}

	// Inclusive boundary: a kill exactly at since is returned.
	kills, err = s.QuerySystemSince(30002813, base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("query at boundary: %v", err)
	}
	if len(kills) != 3 {
		t.Errorf("kills at inclusive boundary = %d, want 3", len(kills))
	}
}

func TestQueryAllSince(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	if _, err := s.Insert(testKill(2100, 30002813, base.Add(-5*time.Minute), 587)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(testKill(2101, 30000142, base.Add(-10*time.Minute), 587)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(testKill(2102, 30045339, base.Add(-2*time.Hour), 587)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	kills, err := s.QueryAllSince(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("query all: %v", err)
	}
	if len(kills) != 2 {
		t.Fatalf("kills = %d, want 2 across systems within range", len(kills))
	}
	systems := map[int64]bool{}
	for _, km := range kills {
		systems[km.SolarSystemID] = true
	}
	if !systems[30002813] || !systems[30000142] {
		t.Errorf("systems = %v, want 30002813 and 30000142", systems)
	}
}

func TestPruneRemovesOnlyExpired(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	old := testKill(3001, 30002813, base.Add(-2*time.Hour), 670)
	fresh := testKill(3002, 30002813, base.Add(-10*time.Minute), 587)
	for _, km := range []*killmail.Killmail{old, fresh} {
		if _, err := s.Insert(km); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	killsBefore, podsBefore, err := s.RollupTotals(30002813)
	if err != nil {
		t.Fatalf("rollup totals before: %v", err)
	}

	removed, err := s.Prune(base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}

	kills, err := s.QuerySystemSince(30002813, base.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(kills) != 1 || kills[0].ID != 3002 {
		t.Errorf("surviving kills = %+v, want only 3002", kills)
	}

	// Pruning detail rows must not change rollup totals.
	killsAfter, podsAfter, err := s.RollupTotals(30002813)
	if err != nil {
		t.Fatalf("rollup totals after: %v", err)
	}
	if killsAfter != killsBefore || podsAfter != podsBefore {
		t.Errorf("rollup totals changed across prune: %d/%d -> %d/%d",
			killsBefore, podsBefore, killsAfter, podsAfter)
	}

	// A pruned killmail ID may be re-ingested; the dedup index entry is gone.
	res, err := s.Insert(old)
	if err != nil {
		t.Fatalf("re-insert pruned: %v", err)
	}
	if res != Inserted {
		t.Errorf("re-insert pruned result = %v, want Inserted", res)
	}
}

func TestHourlyRollupCounts(t *testing.T) {
	s := newTestStore(t)
	hour := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	// Two ship kills and one pod kill inside the same hour, one kill in the next.
	inserts := []*killmail.Killmail{
		testKill(4001, 30002813, hour.Add(5*time.Minute), 587),
		testKill(4002, 30002813, hour.Add(15*time.Minute), 622),
		testKill(4003, 30002813, hour.Add(16*time.Minute), 670), // capsule
		testKill(4004, 30002813, hour.Add(70*time.Minute), 587),
	}
	for _, km := range inserts {
		if _, err := s.Insert(km); err != nil {
			t.Fatalf("insert %d: %v", km.ID, err)
		}
	}

	rollups, err := s.HourlyRollups(30002813, hour)
	if err != nil {
		t.Fatalf("hourly rollups: %v", err)
	}
	if len(rollups) != 2 {
		t.Fatalf("rollup buckets = %d, want 2", len(rollups))
	}
	if rollups[0].Kills != 3 || rollups[0].PodKills != 1 {
		t.Errorf("first hour = %d kills / %d pods, want 3/1", rollups[0].Kills, rollups[0].PodKills)
	}
	if rollups[1].Kills != 1 || rollups[1].PodKills != 0 {
		t.Errorf("second hour = %d kills / %d pods, want 1/0", rollups[1].Kills, rollups[1].PodKills)
	}
}

func TestPruneRollups(t *testing.T) {
	s := newTestStore(t)
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	if _, err := s.Insert(testKill(5001, 30002813, now.Add(-100*time.Hour), 587)); err != nil {
		t.Fatalf("insert old: %v", err)
	}
	if _, err := s.Insert(testKill(5002, 30002813, now.Add(-time.Hour), 587)); err != nil {
		t.Fatalf("insert recent: %v", err)
	}

	removed, err := s.PruneRollups(now.Add(-72 * time.Hour))
	if err != nil {
		t.Fatalf("prune rollups: %v", err)
	}
	if removed != 1 {
		t.Errorf("rollups removed = %d, want 1", removed)
	}

	rollups, err := s.HourlyRollups(30002813, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("hourly rollups: %v", err)
	}
	if len(rollups) != 1 {
		t.Errorf("surviving rollups = %d, want 1", len(rollups))
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	now := time.Now().UTC().Truncate(time.Second)

	s, err := Open(dir, capsuleClassifier{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Insert(testKill(6001, 30002813, now, 587)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = Open(dir, capsuleClassifier{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	kills, err := s.QuerySystemSince(30002813, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("query after reopen: %v", err)
	}
	if len(kills) != 1 || kills[0].ID != 6001 {
		t.Errorf("kills after reopen = %+v, want killmail 6001", kills)
	}

	// Dedup index must survive the restart too.
	res, err := s.Insert(testKill(6001, 30002813, now, 587))
	if err != nil {
		t.Fatalf("re-insert after reopen: %v", err)
	}
	if res != AlreadyExists {
		t.Errorf("re-insert after reopen = %v, want AlreadyExists", res)
	}
}

func TestPrunerRunOnce(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	if _, err := s.Insert(testKill(7001, 30002813, now.Add(-2*time.Hour), 587)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.Insert(testKill(7002, 30002813, now.Add(-5*time.Minute), 587)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	p := NewPruner(s, 5*time.Minute, time.Hour, 72*time.Hour)
	p.runOnce(now)

	kills, err := s.QuerySystemSince(30002813, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(kills) != 1 || kills[0].ID != 7002 {
		t.Errorf("kills after pruner pass = %+v, want only 7002", kills)
	}
}
