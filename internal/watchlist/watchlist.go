// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package watchlist matches killmail participants against the
// operator-configured set of watched corporations, alliances, and
// characters. Matching is a pure set lookup; the watchlist itself is
// immutable after construction and safe for concurrent readers.
package watchlist

import (
	"strings"

	"github.com/tomtom215/gatewatch/internal/config"
	"github.com/tomtom215/gatewatch/internal/killmail"
	"github.com/tomtom215/gatewatch/internal/metrics"
)

// Role says which side of a killmail the watched entity appeared on.
type Role string

const (
	RoleAttacker Role = "ATTACKER"
	RoleVictim   Role = "VICTIM"
)

// Match is one watched entity sighted on a killmail.
type Match struct {
	KillmailID    int64  `json:"killmail_id"`
	SolarSystemID int64  `json:"solar_system_id"`
	EntityID      int64  `json:"entity_id"`
	EntityType    string `json:"entity_type"`
	Label         string `json:"label,omitempty"`
	Role          Role   `json:"role"`
}

// Matcher holds the watched entity sets, keyed per type for O(1) lookups.
type Matcher struct {
	corporations map[int64]config.WatchlistEntry
	alliances    map[int64]config.WatchlistEntry
	characters   map[int64]config.WatchlistEntry
}

// New builds a Matcher from configured entries. Entries with unknown types
// are assumed to have been rejected by config validation already.
func New(entries []config.WatchlistEntry) *Matcher {
	m := &Matcher{
		corporations: make(map[int64]config.WatchlistEntry),
		alliances:    make(map[int64]config.WatchlistEntry),
		characters:   make(map[int64]config.WatchlistEntry),
	}
	for _, e := range entries {
		switch e.EntityType {
		case "corporation":
			m.corporations[e.EntityID] = e
		case "alliance":
			m.alliances[e.EntityID] = e
		case "character":
			m.characters[e.EntityID] = e
		}
	}
	return m
}

// Empty reports whether no entities are being watched.
func (m *Matcher) Empty() bool {
	return len(m.corporations) == 0 && len(m.alliances) == 0 && len(m.characters) == 0
}

// Match returns every watched-entity sighting on the killmail. A watched
// entity is reported at most once per killmail per role, even when several
// of its members appear on the attacking side.
func (m *Matcher) Match(km *killmail.Killmail) []Match {
	if m.Empty() {
		return nil
	}

	var out []Match

	v := km.Victim
	out = m.appendEntity(out, km, RoleVictim, v.CorporationID, v.AllianceID, v.CharacterID, nil)

	seen := make(map[int64]struct{})
	for i := range km.Attackers {
		a := &km.Attackers[i]
		out = m.appendEntity(out, km, RoleAttacker, a.CorporationID, a.AllianceID, a.CharacterID, seen)
	}

	for _, match := range out {
		metrics.WatchlistMatches.WithLabelValues(strings.ToLower(string(match.Role))).Inc()
	}
	return out
}

// MatchAll runs Match over a set of killmails, concatenating the results.
func (m *Matcher) MatchAll(kills []killmail.Killmail) []Match {
	if m.Empty() {
		return nil
	}
	var out []Match
	for i := range kills {
		out = append(out, m.Match(&kills[i])...)
	}
	return out
}

func (m *Matcher) appendEntity(out []Match, km *killmail.Killmail, role Role, corpID, allianceID, charID int64, seen map[int64]struct{}) []Match {
	add := func(entry config.WatchlistEntry, ok bool) {
		if !ok {
			return
		}
		if seen != nil {
			if _, dup := seen[entry.EntityID]; dup {
				return
			}
			seen[entry.EntityID] = struct{}{}
		}
		out = append(out, Match{
			KillmailID:    km.ID,
			SolarSystemID: km.SolarSystemID,
			EntityID:      entry.EntityID,
			EntityType:    entry.EntityType,
			Label:         entry.Label,
			Role:          role,
		})
	}

	if corpID != 0 {
		e, ok := m.corporations[corpID]
		add(e, ok)
	}
	if allianceID != 0 {
		e, ok := m.alliances[allianceID]
		add(e, ok)
	}
	if charID != 0 {
		e, ok := m.characters[charID]
		add(e, ok)
	}
	return out
}
