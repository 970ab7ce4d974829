// Gatewatch - Real-Time Gatecamp Intelligence for New Eden
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gatewatch

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func validClasses() map[string][]int64 {
	return map[string][]int64{
		ShipClassAlpha:     {4302, 17636}, // Tornado, Vexor Navy Issue-style alpha platforms
		ShipClassSmartbomb: {17738, 24692},
		ShipClassTackle:    {11993, 22456},
		ShipClassCovert:    {22430, 44996},
		ShipClassCapsule:   {670, 33328},
	}
}

func TestNewShipClassTable(t *testing.T) {
	table, err := NewShipClassTable(validClasses())
	if err != nil {
		t.Fatalf("NewShipClassTable: %v", err)
	}

	if !table.IsCapsule(670) {
		t.Error("IsCapsule(670) = false, want true")
	}
	if table.IsCapsule(587) {
		t.Error("IsCapsule(587) = true, want false")
	}
	if !table.IsAlpha(4302) {
		t.Error("IsAlpha(4302) = false, want true")
	}
	if !table.IsCovert(22430) {
		t.Error("IsCovert(22430) = false, want true")
	}
	if table.HasClass("battleship", 4302) {
		t.Error("HasClass on unknown class should be false")
	}
}

func TestNewShipClassTableErrors(t *testing.T) {
	tests := []struct {
		name    string
		classes map[string][]int64
	}{
		{"empty table", nil},
		{
			"missing required class",
			map[string][]int64{
				ShipClassAlpha: {4302},
			},
		},
		{
			"invalid type id",
			func() map[string][]int64 {
				c := validClasses()
				c[ShipClassTackle] = append(c[ShipClassTackle], -5)
				return c
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewShipClassTable(tt.classes); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadShipClassTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ship_classes.yaml")

	yaml := `
classes:
  alpha: [4302, 17636]
  smartbomb: [17738]
  tackle: [11993]
  covert: [22430]
  capsule: [670, 33328]
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write table: %v", err)
	}

	table, err := LoadShipClassTable(path)
	if err != nil {
		t.Fatalf("LoadShipClassTable: %v", err)
	}
	if !table.IsCapsule(33328) {
		t.Error("IsCapsule(33328) = false, want true")
	}

	if _, err := LoadShipClassTable(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file, got nil")
	}
}
