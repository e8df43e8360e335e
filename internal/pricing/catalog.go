// Package pricing implements the buyback pricing engine: a pure computation
// over a device/condition catalog, with no I/O beyond loading the catalog.
package pricing

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DeviceType classifies a model into a payout tier for activation-locked
// devices.
type DeviceType string

const (
	DeviceTypeBase   DeviceType = "base"
	DeviceTypePro    DeviceType = "pro"
	DeviceTypeProMax DeviceType = "pro_max"
)

// DeviceEntry is one sellable model with its per-storage base prices.
type DeviceEntry struct {
	Model    string           `yaml:"model"`
	Family   string           `yaml:"family"`
	Storages map[string]int64 `yaml:"storages"`
}

// FeeTier maps a maximum distance to a pickup fee. Tiers must be sorted by
// distance with non-decreasing fees.
type FeeTier struct {
	MaxDistanceKm float64 `yaml:"maxDistanceKm"`
	Fee           int64   `yaml:"fee"`
}

// LockTiers holds the fixed payouts for activation-locked devices by type.
type LockTiers struct {
	Base   int64 `yaml:"base"`
	Pro    int64 `yaml:"pro"`
	ProMax int64 `yaml:"proMax"`
}

// Catalog is the full pricing configuration: base prices, damage deductions,
// policy amounts and pickup fee tiers. It is immutable after loading.
type Catalog struct {
	Devices            []DeviceEntry    `yaml:"devices"`
	DamageCosts        map[string]int64 `yaml:"damageCosts"`
	AccessoryDeduction int64            `yaml:"accessoryDeduction"`
	MarginRate         float64          `yaml:"marginRate"`
	Floor              int64            `yaml:"floor"`
	LockTiers          LockTiers        `yaml:"lockTiers"`
	LegacyFamilies     []string         `yaml:"legacyFamilies"`
	LegacyLockTier     int64            `yaml:"legacyLockTier"`
	PickupFeeTiers     []FeeTier        `yaml:"pickupFeeTiers"`

	// byModel indexes Devices by lower-cased model name.
	byModel map[string]*DeviceEntry
}

// LoadCatalog reads and validates the pricing catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse pricing catalog: %w", err)
	}

	if err := cat.validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing catalog: %w", err)
	}

	cat.index()
	return &cat, nil
}

func (c *Catalog) validate() error {
	if len(c.Devices) == 0 {
		return fmt.Errorf("no devices configured")
	}
	if c.Floor <= 0 {
		return fmt.Errorf("floor must be positive")
	}
	if c.MarginRate < 0 || c.MarginRate >= 1 {
		return fmt.Errorf("marginRate must be in [0, 1)")
	}
	if c.AccessoryDeduction < 0 {
		return fmt.Errorf("accessoryDeduction must not be negative")
	}

	seen := make(map[string]bool, len(c.Devices))
	for _, dev := range c.Devices {
		key := strings.ToLower(dev.Model)
		if seen[key] {
			return fmt.Errorf("duplicate device model %q", dev.Model)
		}
		seen[key] = true
		if len(dev.Storages) == 0 {
			return fmt.Errorf("device %q has no storage tiers", dev.Model)
		}
		for storage, price := range dev.Storages {
			if price <= 0 {
				return fmt.Errorf("device %q storage %q has non-positive price", dev.Model, storage)
			}
		}
	}

	for code, cost := range c.DamageCosts {
		if cost < 0 {
			return fmt.Errorf("damage code %q has negative cost", code)
		}
	}

	// Pickup fees must not decrease with distance: a silent inversion here
	// would make far-away pickups cheaper than close ones.
	var prevDistance float64
	var prevFee int64 = -1
	for i, tier := range c.PickupFeeTiers {
		if i > 0 && tier.MaxDistanceKm <= prevDistance {
			return fmt.Errorf("pickupFeeTiers must be sorted by distance")
		}
		if tier.Fee < prevFee {
			return fmt.Errorf("pickupFeeTiers fees must be non-decreasing")
		}
		prevDistance = tier.MaxDistanceKm
		prevFee = tier.Fee
	}

	return nil
}

func (c *Catalog) index() {
	c.byModel = make(map[string]*DeviceEntry, len(c.Devices))
	for i := range c.Devices {
		c.byModel[strings.ToLower(c.Devices[i].Model)] = &c.Devices[i]
	}
}

// Device returns the catalog entry for a model, or nil if unknown.
func (c *Catalog) Device(model string) *DeviceEntry {
	return c.byModel[strings.ToLower(strings.TrimSpace(model))]
}

// DamageCost returns the deduction for a damage code. Unknown codes cost 0.
func (c *Catalog) DamageCost(code string) int64 {
	return c.DamageCosts[strings.ToLower(strings.TrimSpace(code))]
}

// PickupFee returns the fee for the tier covering the given distance.
// Distances beyond the last tier fall into the last tier's fee.
func (c *Catalog) PickupFee(distanceKm float64) int64 {
	if len(c.PickupFeeTiers) == 0 {
		return 0
	}
	for _, tier := range c.PickupFeeTiers {
		if distanceKm <= tier.MaxDistanceKm {
			return tier.Fee
		}
	}
	return c.PickupFeeTiers[len(c.PickupFeeTiers)-1].Fee
}

// IsLegacyFamily reports whether the family gets the legacy lock-tier override.
func (c *Catalog) IsLegacyFamily(family string) bool {
	for _, legacy := range c.LegacyFamilies {
		if strings.EqualFold(legacy, family) {
			return true
		}
	}
	return false
}

// Type derives the payout tier from the model name.
func (d *DeviceEntry) Type() DeviceType {
	lower := strings.ToLower(d.Model)
	switch {
	case strings.Contains(lower, "pro max"):
		return DeviceTypeProMax
	case strings.Contains(lower, "pro"):
		return DeviceTypePro
	default:
		return DeviceTypeBase
	}
}

// SortedStorages returns the device's storage tiers in a stable order.
func (d *DeviceEntry) SortedStorages() []string {
	storages := make([]string, 0, len(d.Storages))
	for s := range d.Storages {
		storages = append(storages, s)
	}
	sort.Strings(storages)
	return storages
}
