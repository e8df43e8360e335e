package pricing

import (
	"os"
	"path/filepath"
	"testing"
)

const validCatalogYAML = `
marginRate: 0.30
floor: 50
accessoryDeduction: 20
lockTiers:
  base: 50
  pro: 75
  proMax: 100
legacyFamilies:
  - iPhone 6
legacyLockTier: 20
damageCosts:
  cracked_screen: 80
pickupFeeTiers:
  - maxDistanceKm: 10
    fee: 0
  - maxDistanceKm: 60
    fee: 35
devices:
  - model: iPhone 13
    family: iPhone 13
    storages:
      128GB: 600
`

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	cat, err := LoadCatalog(writeCatalog(t, validCatalogYAML))
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	dev := cat.Device("iphone 13")
	if dev == nil {
		t.Fatal("model lookup should be case-insensitive")
	}
	if dev.Storages["128GB"] != 600 {
		t.Fatalf("base price = %d, want 600", dev.Storages["128GB"])
	}
	if !cat.IsLegacyFamily("iPhone 6") {
		t.Fatal("expected iPhone 6 to be a legacy family")
	}
	if cat.DamageCost("no_such_code") != 0 {
		t.Fatal("unknown damage codes must cost 0")
	}
}

func TestLoadCatalogRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing devices", "marginRate: 0.3\nfloor: 50\n"},
		{"zero floor", "marginRate: 0.3\nfloor: 0\ndevices:\n  - model: a\n    family: a\n    storages:\n      64GB: 100\n"},
		{"margin out of range", "marginRate: 1.5\nfloor: 50\ndevices:\n  - model: a\n    family: a\n    storages:\n      64GB: 100\n"},
		{"non-positive price", "marginRate: 0.3\nfloor: 50\ndevices:\n  - model: a\n    family: a\n    storages:\n      64GB: 0\n"},
		{"duplicate model", "marginRate: 0.3\nfloor: 50\ndevices:\n  - model: a\n    family: a\n    storages:\n      64GB: 100\n  - model: A\n    family: a\n    storages:\n      64GB: 100\n"},
		{"unsorted fee tiers", "marginRate: 0.3\nfloor: 50\npickupFeeTiers:\n  - maxDistanceKm: 20\n    fee: 10\n  - maxDistanceKm: 10\n    fee: 0\ndevices:\n  - model: a\n    family: a\n    storages:\n      64GB: 100\n"},
		{"decreasing fees", "marginRate: 0.3\nfloor: 50\npickupFeeTiers:\n  - maxDistanceKm: 10\n    fee: 20\n  - maxDistanceKm: 20\n    fee: 10\ndevices:\n  - model: a\n    family: a\n    storages:\n      64GB: 100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadCatalog(writeCatalog(t, tt.yaml)); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}
