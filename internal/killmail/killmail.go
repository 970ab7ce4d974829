// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

// Package killmail defines the canonical killmail model and the feed
// normalizer that converts raw feed records into validated Killmails.
//
// Pipeline position:
//
//	Feed Poller -> Normalizer -> Ingestion Store -> {Aggregator, Watchlist} -> Detector
//
// A Killmail is immutable after normalization. Its ID is the dedup key for
// idempotent ingestion; its timestamp is authoritative for all windowing.
package killmail

import (
	"time"
)

// Attacker is one participant on the attacking side of a killmail.
type Attacker struct {
	CharacterID   int64 `json:"character_id,omitempty"`
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id,omitempty"` // 0 = no alliance
	ShipTypeID    int64 `json:"ship_type_id,omitempty"`
	FinalBlow     bool  `json:"final_blow"`
}

// Victim is the destroyed ship and its owner.
type Victim struct {
	CharacterID   int64 `json:"character_id,omitempty"`
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id,omitempty"` // 0 = no alliance
	ShipTypeID    int64 `json:"ship_type_id"`
}

// Killmail is one canonical destruction event.
//
// Invariants, enforced by the Normalizer:
//   - ID is globally unique and immutable
//   - Attackers is never empty
//   - exactly one attacker has FinalBlow set
type Killmail struct {
	ID            int64      `json:"killmail_id"`
	Time          time.Time  `json:"killmail_time"`
	SolarSystemID int64      `json:"solar_system_id"`
	Victim        Victim     `json:"victim"`
	Attackers     []Attacker `json:"attackers"`
}

// Age returns how long ago the killmail occurred relative to now.
func (k *Killmail) Age(now time.Time) time.Duration {
	return now.Sub(k.Time)
}

// FinalBlow returns the attacker that landed the final blow.
// A normalized killmail always has exactly one.
func (k *Killmail) FinalBlow() *Attacker {
	for i := range k.Attackers {
		if k.Attackers[i].FinalBlow {
			return &k.Attackers[i]
		}
	}
	return nil
}

// AttackerCorporations returns the distinct corporation IDs on the
// attacking side, in order of first appearance.
func (k *Killmail) AttackerCorporations() []int64 {
	seen := make(map[int64]struct{}, len(k.Attackers))
	corps := make([]int64, 0, len(k.Attackers))
	for _, a := range k.Attackers {
		if a.CorporationID == 0 {
			continue
		}
		if _, ok := seen[a.CorporationID]; ok {
			continue
		}
		seen[a.CorporationID] = struct{}{}
		corps = append(corps, a.CorporationID)
	}
	return corps
}
