// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package intel

// Confidence classifies how strong the gatecamp pattern is.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// CampType classifies the style of camp from hull composition.
type CampType string

const (
	// CampTypeAlphaStrike is a volley-damage camp built on long-range,
	// high-burst turret hulls.
	CampTypeAlphaStrike CampType = "ALPHA_STRIKE"

	// CampTypeSmartbomb is an area-damage camp, recognizable by
	// smartbomb-capable hulls plus multiple pod kills.
	CampTypeSmartbomb CampType = "SMARTBOMB"

	// CampTypeTackle is a small fast-lock gang that holds targets down.
	CampTypeTackle CampType = "TACKLE"

	// CampTypeBlops is a covert drop: cloaking hulls appearing abruptly
	// in a previously quiet system.
	CampTypeBlops CampType = "BLOPS"

	// CampTypeUnknown means no configured pattern matched.
	CampTypeUnknown CampType = "UNKNOWN"
)

// ShipClassifier answers hull-class membership questions for detection.
// Satisfied by *config.ShipClassTable.
type ShipClassifier interface {
	IsAlpha(shipTypeID int64) bool
	IsAreaDamage(shipTypeID int64) bool
	IsTackle(shipTypeID int64) bool
	IsCovert(shipTypeID int64) bool
	IsCapsule(shipTypeID int64) bool
}

// ActivityWindow is the derived rolling view of one system's kills as of a
// given query time. It is recomputed from the store on each query and never
// persisted.
type ActivityWindow struct {
	SolarSystemID int64 `json:"solar_system_id"`
	Kills10Min    int   `json:"kills_10min"`
	Kills1Hour    int   `json:"kills_1hour"`
	PodKills1Hour int   `json:"pod_kills_1hour"`

	// LastKillAgeSeconds is nil when the system has no kills in range.
	LastKillAgeSeconds *int64 `json:"last_kill_age_seconds"`
}

// AttackerCluster is one attacking corporation's footprint in the window.
type AttackerCluster struct {
	CorporationID int64 `json:"corporation_id"`

	// KillCount is the number of window kills this corporation
	// participated in.
	KillCount int `json:"kill_count"`

	// Participations is the total attacker entries this corporation
	// contributed across those kills. Used as the first tie-break when
	// two clusters have equal kill counts.
	Participations int `json:"participations"`
}

// Detection is the confidence-scored gatecamp assessment for one system.
// Always freshly computed from the current window's killmails.
type Detection struct {
	Detected           bool              `json:"detected"`
	Confidence         Confidence        `json:"confidence,omitempty"`
	Kills10Min         int               `json:"kills_10min"`
	LastKillAgeSeconds *int64            `json:"last_kill_age_seconds"`
	ForceAsymmetry     float64           `json:"force_asymmetry"`
	Attackers          []AttackerCluster `json:"attackers,omitempty"`
	ShipTypeIDs        []int64           `json:"ship_type_ids,omitempty"`
	CampType           CampType          `json:"camp_type,omitempty"`
}
