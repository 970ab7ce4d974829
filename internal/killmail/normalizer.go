// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package killmail

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/gatewatch/internal/metrics"
)

// ErrMalformed is returned for feed records that fail validation.
// Callers drop the record and continue; a bad record never halts ingestion.
var ErrMalformed = errors.New("malformed killmail record")

// RawRecord mirrors the external feed schema (zKillboard killstream shape).
// Only the fields required for the canonical Killmail are decoded; the rest
// of the payload (zkb metadata, damage breakdowns) is ignored.
type RawRecord struct {
	KillmailID    int64         `json:"killmail_id"`
	KillmailTime  string        `json:"killmail_time"`
	SolarSystemID int64         `json:"solar_system_id"`
	Victim        RawVictim     `json:"victim"`
	Attackers     []RawAttacker `json:"attackers"`
}

// RawVictim is the victim block of a raw feed record.
type RawVictim struct {
	CharacterID   int64 `json:"character_id"`
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id"`
	ShipTypeID    int64 `json:"ship_type_id"`
}

// RawAttacker is one attacker block of a raw feed record.
type RawAttacker struct {
	CharacterID   int64 `json:"character_id"`
	CorporationID int64 `json:"corporation_id"`
	AllianceID    int64 `json:"alliance_id"`
	ShipTypeID    int64 `json:"ship_type_id"`
	FinalBlow     bool  `json:"final_blow"`
}

// NormalizerStats reports validation counters since process start.
type NormalizerStats struct {
	Accepted int64 `json:"accepted"`
	Rejected int64 `json:"rejected"`
}

// Normalizer validates raw feed records and emits canonical Killmails.
// It performs no I/O; the caller owns the store write.
type Normalizer struct {
	accepted atomic.Int64
	rejected atomic.Int64
}

// NewNormalizer creates a normalizer with zeroed counters.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize parses and validates one raw feed payload.
// On any validation failure the record is counted and ErrMalformed is
// returned wrapped with the reason; the pipeline continues.
func (n *Normalizer) Normalize(payload []byte) (*Killmail, error) {
	var raw RawRecord
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, n.reject("parse", fmt.Errorf("%w: %v", ErrMalformed, err))
	}
	return n.NormalizeRecord(&raw)
}

// NormalizeRecord validates an already-decoded raw record.
func (n *Normalizer) NormalizeRecord(raw *RawRecord) (*Killmail, error) {
	if raw.KillmailID <= 0 {
		return nil, n.reject("missing_id", fmt.Errorf("%w: missing killmail_id", ErrMalformed))
	}
	if raw.SolarSystemID <= 0 {
		return nil, n.reject("missing_system", fmt.Errorf("%w: killmail %d has no solar_system_id", ErrMalformed, raw.KillmailID))
	}

	ts, err := time.Parse(time.RFC3339, raw.KillmailTime)
	if err != nil {
		return nil, n.reject("bad_timestamp", fmt.Errorf("%w: killmail %d timestamp %q: %v", ErrMalformed, raw.KillmailID, raw.KillmailTime, err))
	}

	if raw.Victim.ShipTypeID <= 0 {
		return nil, n.reject("missing_victim", fmt.Errorf("%w: killmail %d has no victim ship", ErrMalformed, raw.KillmailID))
	}

	if len(raw.Attackers) == 0 {
		return nil, n.reject("no_attackers", fmt.Errorf("%w: killmail %d has no attackers", ErrMalformed, raw.KillmailID))
	}

	finalBlows := 0
	for _, a := range raw.Attackers {
		if a.FinalBlow {
			finalBlows++
		}
	}
	if finalBlows != 1 {
		return nil, n.reject("final_blow", fmt.Errorf("%w: killmail %d has %d final-blow attackers", ErrMalformed, raw.KillmailID, finalBlows))
	}

	km := &Killmail{
		ID:            raw.KillmailID,
		Time:          ts.UTC(),
		SolarSystemID: raw.SolarSystemID,
		Victim: Victim{
			CharacterID:   raw.Victim.CharacterID,
			CorporationID: raw.Victim.CorporationID,
			AllianceID:    raw.Victim.AllianceID,
			ShipTypeID:    raw.Victim.ShipTypeID,
		},
		Attackers: make([]Attacker, len(raw.Attackers)),
	}
	for i, a := range raw.Attackers {
		km.Attackers[i] = Attacker{
			CharacterID:   a.CharacterID,
			CorporationID: a.CorporationID,
			AllianceID:    a.AllianceID,
			ShipTypeID:    a.ShipTypeID,
			FinalBlow:     a.FinalBlow,
		}
	}

	n.accepted.Add(1)
	return km, nil
}

// Stats returns the current validation counters.
func (n *Normalizer) Stats() NormalizerStats {
	return NormalizerStats{
		Accepted: n.accepted.Load(),
		Rejected: n.rejected.Load(),
	}
}

// reject counts a rejection under the given reason and returns the error.
func (n *Normalizer) reject(reason string, err error) error {
	n.rejected.Add(1)
	metrics.KillmailsRejected.WithLabelValues(reason).Inc()
	return err
}
