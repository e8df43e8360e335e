package pricing

import (
	"errors"
	"testing"

	"buyback_backend/platform/apperr"
)

func testCatalog() *Catalog {
	cat := &Catalog{
		Devices: []DeviceEntry{
			{Model: "iPhone 6", Family: "iPhone 6", Storages: map[string]int64{"16GB": 60, "64GB": 80}},
			{Model: "iPhone 13", Family: "iPhone 13", Storages: map[string]int64{"128GB": 600, "256GB": 650}},
			{Model: "iPhone 13 Pro", Family: "iPhone 13", Storages: map[string]int64{"128GB": 700}},
			{Model: "iPhone 13 Pro Max", Family: "iPhone 13", Storages: map[string]int64{"128GB": 780}},
		},
		DamageCosts: map[string]int64{
			"cracked_screen":   80,
			"battery_degraded": 40,
		},
		AccessoryDeduction: 20,
		MarginRate:         0.30,
		Floor:              50,
		LockTiers:          LockTiers{Base: 50, Pro: 75, ProMax: 100},
		LegacyFamilies:     []string{"iPhone 6", "iPhone 6s", "iPhone 7", "iPhone 8"},
		LegacyLockTier:     20,
		PickupFeeTiers: []FeeTier{
			{MaxDistanceKm: 10, Fee: 0},
			{MaxDistanceKm: 20, Fee: 10},
			{MaxDistanceKm: 60, Fee: 35},
		},
	}
	cat.index()
	return cat
}

func TestComputeStandardFormula(t *testing.T) {
	engine := NewEngine(testCatalog(), 5)

	tests := []struct {
		name string
		in   Input
		want Breakdown
	}{
		{
			name: "cracked screen missing charger",
			in: Input{
				Model:   "iPhone 13",
				Storage: "128GB",
				Damages: []string{"cracked_screen"},
				HasBox:  true,
			},
			want: Breakdown{BasePrice: 600, DamageDeduction: 100, Margin: 180, FinalQuote: 320},
		},
		{
			name: "no damages all accessories",
			in: Input{
				Model:      "iPhone 13",
				Storage:    "256GB",
				HasBox:     true,
				HasCharger: true,
			},
			want: Breakdown{BasePrice: 650, DamageDeduction: 0, Margin: 195, FinalQuote: 455},
		},
		{
			name: "missing both accessories deducts flat amount once",
			in: Input{
				Model:   "iPhone 13",
				Storage: "128GB",
			},
			want: Breakdown{BasePrice: 600, DamageDeduction: 20, Margin: 180, FinalQuote: 400},
		},
		{
			name: "unknown damage codes contribute zero",
			in: Input{
				Model:      "iPhone 13",
				Storage:    "128GB",
				Damages:    []string{"bent_antenna", "cracked_screen"},
				HasBox:     true,
				HasCharger: true,
			},
			want: Breakdown{BasePrice: 600, DamageDeduction: 80, Margin: 180, FinalQuote: 340},
		},
		{
			name: "floor applies when deductions exceed value",
			in: Input{
				Model:      "iPhone 6",
				Storage:    "16GB",
				Damages:    []string{"cracked_screen", "battery_degraded"},
				HasBox:     true,
				HasCharger: true,
			},
			want: Breakdown{BasePrice: 60, DamageDeduction: 120, Margin: 18, FinalQuote: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Compute(tt.in)
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("Compute() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeActivationLocked(t *testing.T) {
	engine := NewEngine(testCatalog(), 5)

	tests := []struct {
		name  string
		model string
		store string
		want  int64
	}{
		{"legacy family overrides base tier", "iPhone 6", "16GB", 20},
		{"base model", "iPhone 13", "128GB", 50},
		{"pro model", "iPhone 13 Pro", "128GB", 75},
		{"pro max model", "iPhone 13 Pro Max", "128GB", 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Compute(Input{
				Model:              tt.model,
				Storage:            tt.store,
				Damages:            []string{"cracked_screen"},
				IsActivationLocked: true,
			})
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if got.FinalQuote != tt.want {
				t.Fatalf("FinalQuote = %d, want %d", got.FinalQuote, tt.want)
			}
			if got.DamageDeduction != 0 || got.Margin != 0 {
				t.Fatalf("locked quote must zero deductions, got %+v", got)
			}
		})
	}
}

func TestComputeUnknownModelAndStorage(t *testing.T) {
	engine := NewEngine(testCatalog(), 5)

	if _, err := engine.Compute(Input{Model: "Galaxy S21", Storage: "128GB"}); err == nil {
		t.Fatal("expected error for unknown model")
	} else if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", apperr.GetKind(err))
	}

	if _, err := engine.Compute(Input{Model: "iPhone 13", Storage: "1TB"}); err == nil {
		t.Fatal("expected error for unknown storage")
	} else if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", apperr.GetKind(err))
	}
}

func TestVerifyTolerance(t *testing.T) {
	engine := NewEngine(testCatalog(), 5)
	in := Input{Model: "iPhone 13", Storage: "128GB", HasBox: true, HasCharger: true}
	// computed finalQuote is 420

	tests := []struct {
		name      string
		submitted int64
		wantErr   bool
	}{
		{"exact match", 420, false},
		{"within tolerance below", 415, false},
		{"within tolerance above", 425, false},
		{"just past tolerance", 426, true},
		{"tampered amount", 600, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			breakdown, err := engine.Verify(in, tt.submitted)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Verify() error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected integrity error, got nil")
			}
			if !errors.Is(err, ErrQuoteMismatch) {
				t.Fatalf("err = %v, want ErrQuoteMismatch", err)
			}
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Fatalf("kind = %v, want KindValidation", apperr.GetKind(err))
			}
			// The computed breakdown still comes back so callers can log
			// both amounts.
			if breakdown.FinalQuote != 420 {
				t.Fatalf("FinalQuote = %d, want 420", breakdown.FinalQuote)
			}
		})
	}
}

func TestVerifyUnknownModelIsNotMismatch(t *testing.T) {
	engine := NewEngine(testCatalog(), 5)

	_, err := engine.Verify(Input{Model: "Galaxy S21", Storage: "128GB"}, 100)
	if err == nil {
		t.Fatal("expected error for unknown model")
	}
	if errors.Is(err, ErrQuoteMismatch) {
		t.Fatal("catalog lookup failure must not read as a tampered amount")
	}
}

func TestPickupFeeTiers(t *testing.T) {
	engine := NewEngine(testCatalog(), 5)

	tests := []struct {
		distance float64
		want     int64
	}{
		{0, 0},
		{10, 0},
		{10.5, 10},
		{20, 10},
		{59.9, 35},
		{80, 35},
	}

	for _, tt := range tests {
		if got := engine.PickupFee(tt.distance); got != tt.want {
			t.Fatalf("PickupFee(%v) = %d, want %d", tt.distance, got, tt.want)
		}
	}
}
