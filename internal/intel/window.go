// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package intel

import (
	"time"

	"github.com/tomtom215/gatewatch/internal/killmail"
)

// Window durations are fixed pipeline contracts, not tuning knobs: the
// 10-minute window is what the confidence ladder is calibrated against and
// the 1-hour window matches the store's detail retention default.
const (
	ShortWindow = 10 * time.Minute
	LongWindow  = time.Hour
)

// ComputeWindow derives the rolling activity view for one system from its
// killmails, as of now. Pure function: no hidden state, identical inputs
// produce identical outputs.
//
// kills must contain the system's killmails with timestamps within
// [now - 1h, now]; callers obtain that slice from the store. Entries
// outside the long window are ignored rather than assumed absent.
func ComputeWindow(systemID int64, now time.Time, kills []killmail.Killmail, ships ShipClassifier) ActivityWindow {
	w := ActivityWindow{SolarSystemID: systemID}

	shortCutoff := now.Add(-ShortWindow)
	longCutoff := now.Add(-LongWindow)

	var newest time.Time
	for i := range kills {
		km := &kills[i]
		if km.Time.Before(longCutoff) || km.Time.After(now) {
			continue
		}

		w.Kills1Hour++
		if ships != nil && ships.IsCapsule(km.Victim.ShipTypeID) {
			w.PodKills1Hour++
		}
		if !km.Time.Before(shortCutoff) {
			w.Kills10Min++
		}
		if km.Time.After(newest) {
			newest = km.Time
		}
	}

	if !newest.IsZero() {
		age := int64(now.Sub(newest) / time.Second)
		w.LastKillAgeSeconds = &age
	}

	return w
}

// killsInWindow returns the subset of kills with timestamps in
// [now - window, now], preserving order.
func killsInWindow(now time.Time, window time.Duration, kills []killmail.Killmail) []killmail.Killmail {
	cutoff := now.Add(-window)
	var out []killmail.Killmail
	for i := range kills {
		if !kills[i].Time.Before(cutoff) && !kills[i].Time.After(now) {
			out = append(out, kills[i])
		}
	}
	return out
}
