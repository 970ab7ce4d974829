// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package intel

import (
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/gatewatch/internal/config"
	"github.com/tomtom215/gatewatch/internal/killmail"
	"github.com/tomtom215/gatewatch/internal/metrics"
)

// Detector applies the confidence and classification heuristics over a
// system's killmail window. Stateless: every call is a fresh computation.
type Detector struct {
	cfg   config.DetectionConfig
	ships ShipClassifier
}

// NewDetector creates a camp detector with the given heuristics
// configuration and ship-class table.
func NewDetector(cfg config.DetectionConfig, ships ShipClassifier) *Detector {
	return &Detector{cfg: cfg, ships: ships}
}

// Detect computes the gatecamp assessment for one system as of now.
//
// kills1h must contain the system's killmails within [now - 1h, now];
// the preceding portion of that hour is what distinguishes an abrupt
// covert drop from ongoing activity.
func (d *Detector) Detect(systemID int64, now time.Time, kills1h []killmail.Killmail) Detection {
	window := killsInWindow(now, ShortWindow, kills1h)

	det := Detection{Kills10Min: len(window)}
	if len(window) == 0 {
		metrics.DetectionsComputed.WithLabelValues("none").Inc()
		return det
	}

	det.Detected = true
	det.LastKillAgeSeconds = lastKillAge(now, window)
	det.ForceAsymmetry = forceAsymmetry(window)
	det.Attackers = clusterAttackers(window)
	det.ShipTypeIDs = attackerShipTypes(window)
	det.Confidence = d.confidence(len(window), det.ForceAsymmetry, det.Attackers)
	det.CampType = d.classify(now, window, kills1h, det.Attackers, det.ForceAsymmetry)

	metrics.DetectionsComputed.WithLabelValues(strings.ToLower(string(det.Confidence))).Inc()
	return det
}

// confidence walks the ladder top-down; first match wins.
func (d *Detector) confidence(kills int, asymmetry float64, clusters []AttackerCluster) Confidence {
	share := dominantShare(kills, clusters)

	// HIGH needs sustained kills, a strictly exceeded asymmetry bar, and a
	// consistent attacking group. A single kill can never establish the
	// consistency signal, so it can never reach HIGH.
	if kills >= d.cfg.HighMinKills && asymmetry > d.cfg.HighMinAsymmetry && share >= d.cfg.HighDominance {
		return ConfidenceHigh
	}
	if kills >= d.cfg.MediumMinKills && share >= d.cfg.MediumDominance {
		return ConfidenceMedium
	}
	return ConfidenceLow
}

// classify applies the camp-type rules in fixed order; first match wins.
// The rules are pure lookups against the configured ship-class table.
func (d *Detector) classify(now time.Time, window, kills1h []killmail.Killmail, clusters []AttackerCluster, asymmetry float64) CampType {
	hulls := dominantClusterHulls(window, clusters)

	if anyClass(hulls, d.ships.IsAlpha) {
		return CampTypeAlphaStrike
	}
	if anyClass(hulls, d.ships.IsAreaDamage) && d.podKills(window) >= d.cfg.SmartbombMinPodKills {
		return CampTypeSmartbomb
	}
	if anyClass(hulls, d.ships.IsTackle) && asymmetry <= d.cfg.TackleMaxAvgAttackers {
		return CampTypeTackle
	}
	if anyClass(hulls, d.ships.IsCovert) && d.quietBefore(now, kills1h) {
		return CampTypeBlops
	}
	return CampTypeUnknown
}

// quietBefore reports whether the system had no kills in the configured
// quiet period immediately preceding the short window.
func (d *Detector) quietBefore(now time.Time, kills1h []killmail.Killmail) bool {
	windowStart := now.Add(-ShortWindow)
	quietStart := windowStart.Add(-d.cfg.BlopsQuietPeriod)
	for i := range kills1h {
		ts := kills1h[i].Time
		if !ts.Before(quietStart) && ts.Before(windowStart) {
			return false
		}
	}
	return true
}

// podKills counts capsule victims in the window.
func (d *Detector) podKills(window []killmail.Killmail) int {
	pods := 0
	for i := range window {
		if d.ships.IsCapsule(window[i].Victim.ShipTypeID) {
			pods++
		}
	}
	return pods
}

// clusterAttackers groups window attackers by corporation, counting the
// kills each corporation participated in and its total participations.
// The result is sorted dominant-first with deterministic tie-breaks:
// kill count, then participations, then ascending corporation ID. For
// fixed-width numeric IDs ascending numeric order coincides with sorting
// their string forms, so the final tie-break needs no formatting step.
func clusterAttackers(window []killmail.Killmail) []AttackerCluster {
	byCorp := make(map[int64]*AttackerCluster)

	for i := range window {
		km := &window[i]
		seen := make(map[int64]struct{}, len(km.Attackers))
		for _, a := range km.Attackers {
			if a.CorporationID == 0 {
				continue // NPC entries carry no corporation
			}
			c, ok := byCorp[a.CorporationID]
			if !ok {
				c = &AttackerCluster{CorporationID: a.CorporationID}
				byCorp[a.CorporationID] = c
			}
			c.Participations++
			if _, counted := seen[a.CorporationID]; !counted {
				c.KillCount++
				seen[a.CorporationID] = struct{}{}
			}
		}
	}

	clusters := make([]AttackerCluster, 0, len(byCorp))
	for _, c := range byCorp {
		clusters = append(clusters, *c)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].KillCount != clusters[j].KillCount {
			return clusters[i].KillCount > clusters[j].KillCount
		}
		if clusters[i].Participations != clusters[j].Participations {
			return clusters[i].Participations > clusters[j].Participations
		}
		return clusters[i].CorporationID < clusters[j].CorporationID
	})
	return clusters
}

// dominantShare is the fraction of window kills the top cluster
// participated in, or 0 when no cluster exists.
func dominantShare(kills int, clusters []AttackerCluster) float64 {
	if kills == 0 || len(clusters) == 0 {
		return 0
	}
	return float64(clusters[0].KillCount) / float64(kills)
}

// dominantClusterHulls returns the attacker ship types fielded by the
// dominant cluster in the window, or all attacker hulls when no cluster
// could be formed (pure-NPC windows).
func dominantClusterHulls(window []killmail.Killmail, clusters []AttackerCluster) map[int64]struct{} {
	var dominantCorp int64
	if len(clusters) > 0 {
		dominantCorp = clusters[0].CorporationID
	}

	hulls := make(map[int64]struct{})
	for i := range window {
		for _, a := range window[i].Attackers {
			if a.ShipTypeID == 0 {
				continue
			}
			if dominantCorp != 0 && a.CorporationID != dominantCorp {
				continue
			}
			hulls[a.ShipTypeID] = struct{}{}
		}
	}
	return hulls
}

// anyClass reports whether any hull in the set belongs to the class.
func anyClass(hulls map[int64]struct{}, in func(int64) bool) bool {
	for id := range hulls {
		if in(id) {
			return true
		}
	}
	return false
}

// attackerShipTypes returns the distinct attacker ship types in the
// window, ascending for deterministic output.
func attackerShipTypes(window []killmail.Killmail) []int64 {
	set := make(map[int64]struct{})
	for i := range window {
		for _, a := range window[i].Attackers {
			if a.ShipTypeID != 0 {
				set[a.ShipTypeID] = struct{}{}
			}
		}
	}
	types := make([]int64, 0, len(set))
	for id := range set {
		types = append(types, id)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// forceAsymmetry is the mean attacker count per kill: the N in the "N:1"
// reported to operators, the victim side always being one ship.
func forceAsymmetry(window []killmail.Killmail) float64 {
	if len(window) == 0 {
		return 0
	}
	total := 0
	for i := range window {
		total += len(window[i].Attackers)
	}
	return float64(total) / float64(len(window))
}

// lastKillAge returns the age in seconds of the newest kill, or nil for an
// empty window.
func lastKillAge(now time.Time, kills []killmail.Killmail) *int64 {
	var newest time.Time
	for i := range kills {
		if kills[i].Time.After(newest) {
			newest = kills[i].Time
		}
	}
	if newest.IsZero() {
		return nil
	}
	age := int64(now.Sub(newest) / time.Second)
	return &age
}
