// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package intel

import (
	"testing"
	"time"

	"github.com/tomtom215/gatewatch/internal/killmail"
)

// fakeShips classifies hulls from fixed sets for tests.
type fakeShips struct {
	alpha     map[int64]bool
	smartbomb map[int64]bool
	tackle    map[int64]bool
	covert    map[int64]bool
	capsule   map[int64]bool
}

func newFakeShips() *fakeShips {
	return &fakeShips{
		alpha:     map[int64]bool{4302: true},  // Tornado
		smartbomb: map[int64]bool{17738: true}, // Machariel
		tackle:    map[int64]bool{11993: true}, // Sabre-style
		covert:    map[int64]bool{22430: true}, // Redeemer
		capsule:   map[int64]bool{670: true},
	}
}

func (f *fakeShips) IsAlpha(id int64) bool      { return f.alpha[id] }
func (f *fakeShips) IsAreaDamage(id int64) bool { return f.smartbomb[id] }
func (f *fakeShips) IsTackle(id int64) bool     { return f.tackle[id] }
func (f *fakeShips) IsCovert(id int64) bool     { return f.covert[id] }
func (f *fakeShips) IsCapsule(id int64) bool    { return f.capsule[id] }

// kill builds a killmail with the given attacker corporations, one
// attacker entry each, last one taking the final blow.
func kill(id int64, ts time.Time, victimShip int64, attackerShip int64, corps ...int64) killmail.Killmail {
	km := killmail.Killmail{
		ID:            id,
		Time:          ts,
		SolarSystemID: 30002813,
		Victim:        killmail.Victim{CorporationID: 98000500, ShipTypeID: victimShip},
	}
	for i, corp := range corps {
		km.Attackers = append(km.Attackers, killmail.Attacker{
			CorporationID: corp,
			ShipTypeID:    attackerShip,
			FinalBlow:     i == len(corps)-1,
		})
	}
	return km
}

// repeat returns n copies of corp for building attacker lists.
func repeat(corp int64, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = corp
	}
	return out
}

func TestComputeWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	ships := newFakeShips()

	kills := []killmail.Killmail{
		kill(1, now.Add(-2*time.Minute), 587, 4302, 98000001),
		kill(2, now.Add(-8*time.Minute), 670, 4302, 98000001), // pod
		kill(3, now.Add(-40*time.Minute), 587, 4302, 98000001),
		kill(4, now.Add(-2*time.Hour), 587, 4302, 98000001), // outside long window
	}

	w := ComputeWindow(30002813, now, kills, ships)

	if w.Kills10Min != 2 {
		t.Errorf("Kills10Min = %d, want 2", w.Kills10Min)
	}
	if w.Kills1Hour != 3 {
		t.Errorf("Kills1Hour = %d, want 3", w.Kills1Hour)
	}
	if w.PodKills1Hour != 1 {
		t.Errorf("PodKills1Hour = %d, want 1", w.PodKills1Hour)
	}
	if w.LastKillAgeSeconds == nil || *w.LastKillAgeSeconds != 120 {
		t.Errorf("LastKillAgeSeconds = %v, want 120", w.LastKillAgeSeconds)
	}
}

func TestComputeWindowEmpty(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	w := ComputeWindow(30002813, now, nil, newFakeShips())

	if w.Kills10Min != 0 || w.Kills1Hour != 0 {
		t.Errorf("empty window has counts: %+v", w)
	}
	if w.LastKillAgeSeconds != nil {
		t.Errorf("LastKillAgeSeconds = %v, want nil for no kills", *w.LastKillAgeSeconds)
	}
}

func TestComputeWindowBoundaries(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	kills := []killmail.Killmail{
		kill(1, now.Add(-ShortWindow), 587, 4302, 98000001), // exactly on the 10m edge: included
		kill(2, now.Add(-LongWindow), 587, 4302, 98000001),  // exactly on the 1h edge: included
	}

	w := ComputeWindow(30002813, now, kills, newFakeShips())
	if w.Kills10Min != 1 {
		t.Errorf("Kills10Min = %d, want 1 (inclusive edge)", w.Kills10Min)
	}
	if w.Kills1Hour != 2 {
		t.Errorf("Kills1Hour = %d, want 2 (inclusive edge)", w.Kills1Hour)
	}
}
