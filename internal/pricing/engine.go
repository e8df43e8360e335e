package pricing

import (
	"errors"
	"math"

	"buyback_backend/platform/apperr"
)

// ErrQuoteMismatch marks a Verify failure caused by the submitted amount,
// as opposed to a catalog lookup failure. Callers match it with errors.Is.
var ErrQuoteMismatch = errors.New("quote amount mismatch")

// Input holds the device and condition attributes a quote is computed from.
type Input struct {
	Model              string
	Storage            string
	Damages            []string
	HasBox             bool
	HasCharger         bool
	IsActivationLocked bool
}

// Breakdown is the result of a quote computation.
type Breakdown struct {
	BasePrice       int64 `json:"basePrice"`
	DamageDeduction int64 `json:"damageDeduction"`
	Margin          int64 `json:"margin"`
	FinalQuote      int64 `json:"finalQuote"`
}

// Engine computes quotes from the catalog. It performs no I/O and is safe
// for concurrent use.
type Engine struct {
	catalog   *Catalog
	tolerance int64
}

// NewEngine wires a catalog and the resubmission tolerance into an engine.
func NewEngine(catalog *Catalog, tolerance int64) *Engine {
	if catalog.byModel == nil {
		catalog.index()
	}
	return &Engine{catalog: catalog, tolerance: tolerance}
}

// Compute derives a quote breakdown from the input.
//
// Activation-locked devices bypass the standard formula: they pay out a
// fixed tier keyed by device type, with a lower override for legacy
// families, and ignore damages and accessories entirely.
func (e *Engine) Compute(in Input) (Breakdown, error) {
	device := e.catalog.Device(in.Model)
	if device == nil {
		return Breakdown{}, apperr.New(apperr.KindValidation, "unknown device model").
			WithOp("pricing.Compute").
			WithDetails(map[string]any{"model": in.Model})
	}

	basePrice, ok := device.Storages[in.Storage]
	if !ok {
		return Breakdown{}, apperr.New(apperr.KindValidation, "unknown storage tier for model").
			WithOp("pricing.Compute").
			WithDetails(map[string]any{"model": in.Model, "storage": in.Storage})
	}

	if in.IsActivationLocked {
		return Breakdown{
			BasePrice:  basePrice,
			FinalQuote: e.lockedTier(device),
		}, nil
	}

	var damageDeduction int64
	for _, code := range in.Damages {
		// Unknown damage codes contribute 0 rather than failing: the
		// client-side condition form and the catalog can drift.
		damageDeduction += e.catalog.DamageCost(code)
	}
	if !in.HasBox || !in.HasCharger {
		// One flat charge whether one accessory is missing or both.
		damageDeduction += e.catalog.AccessoryDeduction
	}

	margin := int64(math.Round(float64(basePrice) * e.catalog.MarginRate))

	finalQuote := basePrice - damageDeduction - margin
	if finalQuote < e.catalog.Floor {
		finalQuote = e.catalog.Floor
	}

	return Breakdown{
		BasePrice:       basePrice,
		DamageDeduction: damageDeduction,
		Margin:          margin,
		FinalQuote:      finalQuote,
	}, nil
}

// Verify recomputes the quote and checks the client-submitted final amount
// against it within the configured tolerance. A mismatch means the amount
// was altered between pricing and submission; the error then wraps
// ErrQuoteMismatch and the computed breakdown is still returned so callers
// can report both amounts.
func (e *Engine) Verify(in Input, submittedFinalQuote int64) (Breakdown, error) {
	breakdown, err := e.Compute(in)
	if err != nil {
		return Breakdown{}, err
	}

	if !e.WithinTolerance(breakdown.FinalQuote, submittedFinalQuote) {
		return breakdown, apperr.Wrap(apperr.KindValidation,
			"quote amount does not match current pricing", ErrQuoteMismatch).
			WithOp("pricing.Verify").
			WithDetails(map[string]any{
				"computed":  breakdown.FinalQuote,
				"submitted": submittedFinalQuote,
				"tolerance": e.tolerance,
			})
	}

	return breakdown, nil
}

// WithinTolerance reports whether a client-submitted amount is close enough
// to the recomputed one.
func (e *Engine) WithinTolerance(computed, submitted int64) bool {
	diff := computed - submitted
	if diff < 0 {
		diff = -diff
	}
	return diff <= e.tolerance
}

// PickupFee returns the pickup fee for the tier covering the distance.
func (e *Engine) PickupFee(distanceKm float64) int64 {
	return e.catalog.PickupFee(distanceKm)
}

// Devices lists the catalog for clients building quote forms.
func (e *Engine) Devices() []DeviceEntry {
	return e.catalog.Devices
}

func (e *Engine) lockedTier(device *DeviceEntry) int64 {
	if e.catalog.IsLegacyFamily(device.Family) {
		return e.catalog.LegacyLockTier
	}
	switch device.Type() {
	case DeviceTypeProMax:
		return e.catalog.LockTiers.ProMax
	case DeviceTypePro:
		return e.catalog.LockTiers.Pro
	default:
		return e.catalog.LockTiers.Base
	}
}
