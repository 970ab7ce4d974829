// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Ship class names used by camp-type classification. The table is external
// reference data: classification logic is rule application against it, and
// retuning the rules means editing the YAML, not the code.
const (
	ShipClassAlpha     = "alpha"     // long-range high-burst turret hulls
	ShipClassSmartbomb = "smartbomb" // area-damage-capable hulls
	ShipClassTackle    = "tackle"    // fast-lock / immobilization hulls
	ShipClassCovert    = "covert"    // cloaking / black-ops hulls
	ShipClassCapsule   = "capsule"   // pods
)

// requiredShipClasses must all be present in a loaded table; a table that
// cannot distinguish these classes cannot drive classification.
var requiredShipClasses = []string{
	ShipClassAlpha,
	ShipClassSmartbomb,
	ShipClassTackle,
	ShipClassCovert,
	ShipClassCapsule,
}

// ShipClassTable maps hull classes to the ship type IDs that belong to them.
// It is immutable after load and safe for concurrent readers.
type ShipClassTable struct {
	classes map[string]map[int64]struct{}
}

// shipClassFile mirrors the YAML schema of the ship-class table.
type shipClassFile struct {
	Classes map[string][]int64 `koanf:"classes"`
}

// LoadShipClassTable reads and validates a ship-class table from YAML.
// A missing or invalid table is a configuration error and fails startup.
func LoadShipClassTable(path string) (*ShipClassTable, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load ship class table %s: %w", path, err)
	}

	var raw shipClassFile
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("unmarshal ship class table %s: %w", path, err)
	}

	return NewShipClassTable(raw.Classes)
}

// NewShipClassTable builds a table from a class -> type IDs mapping.
func NewShipClassTable(classes map[string][]int64) (*ShipClassTable, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("ship class table is empty")
	}

	t := &ShipClassTable{classes: make(map[string]map[int64]struct{}, len(classes))}
	for class, ids := range classes {
		set := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			if id <= 0 {
				return nil, fmt.Errorf("ship class %q contains invalid type id %d", class, id)
			}
			set[id] = struct{}{}
		}
		t.classes[class] = set
	}

	for _, required := range requiredShipClasses {
		if len(t.classes[required]) == 0 {
			return nil, fmt.Errorf("ship class table missing required class %q", required)
		}
	}

	return t, nil
}

// HasClass reports whether the ship type belongs to the named class.
func (t *ShipClassTable) HasClass(class string, shipTypeID int64) bool {
	set, ok := t.classes[class]
	if !ok {
		return false
	}
	_, ok = set[shipTypeID]
	return ok
}

// IsAlpha reports whether the hull is an alpha-strike damage dealer.
func (t *ShipClassTable) IsAlpha(shipTypeID int64) bool {
	return t.HasClass(ShipClassAlpha, shipTypeID)
}

// IsAreaDamage reports whether the hull is smartbomb-capable.
func (t *ShipClassTable) IsAreaDamage(shipTypeID int64) bool {
	return t.HasClass(ShipClassSmartbomb, shipTypeID)
}

// IsTackle reports whether the hull is a fast-lock/immobilization platform.
func (t *ShipClassTable) IsTackle(shipTypeID int64) bool {
	return t.HasClass(ShipClassTackle, shipTypeID)
}

// IsCovert reports whether the hull is covert/cloak-capable.
func (t *ShipClassTable) IsCovert(shipTypeID int64) bool {
	return t.HasClass(ShipClassCovert, shipTypeID)
}

// IsCapsule reports whether the type is a pod.
func (t *ShipClassTable) IsCapsule(shipTypeID int64) bool {
	return t.HasClass(ShipClassCapsule, shipTypeID)
}
