// Package transport defines the request and response payloads for the
// leads API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// ComputeQuoteRequest prices a device without creating anything.
type ComputeQuoteRequest struct {
	Model              string   `json:"model" validate:"required,min=1,max=100"`
	Storage            string   `json:"storage" validate:"required,min=1,max=20"`
	Damages            []string `json:"damages" validate:"omitempty,dive,min=1,max=50"`
	HasBox             bool     `json:"hasBox"`
	HasCharger         bool     `json:"hasCharger"`
	IsActivationLocked bool     `json:"isActivationLocked"`
}

// CreateLeadRequest is the full intake payload: seller contact details plus
// the quote as the client computed it.
type CreateLeadRequest struct {
	Email      string `json:"email" validate:"required,email,max=255"`
	FirstName  string `json:"firstName" validate:"required,min=1,max=100"`
	LastName   string `json:"lastName" validate:"required,min=1,max=100"`
	Phone      string `json:"phone" validate:"required,min=5,max=30"`
	Address    string `json:"address" validate:"omitempty,max=500"`
	SellMethod string `json:"sellMethod" validate:"required,oneof=pickup dropoff"`

	Model              string   `json:"model" validate:"required,min=1,max=100"`
	Storage            string   `json:"storage" validate:"required,min=1,max=20"`
	Damages            []string `json:"damages" validate:"omitempty,dive,min=1,max=50"`
	HasBox             bool     `json:"hasBox"`
	HasCharger         bool     `json:"hasCharger"`
	IsActivationLocked bool     `json:"isActivationLocked"`

	FinalQuote int64 `json:"finalQuote" validate:"required,min=1"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

type QuoteBreakdownResponse struct {
	BasePrice       int64 `json:"basePrice"`
	DamageDeduction int64 `json:"damageDeduction"`
	Margin          int64 `json:"margin"`
	FinalQuote      int64 `json:"finalQuote"`
}

type CreateLeadResponse struct {
	LeadID         uuid.UUID              `json:"leadId"`
	QuoteID        uuid.UUID              `json:"quoteId"`
	Quote          QuoteBreakdownResponse `json:"quote"`
	PickupFee      *int64                 `json:"pickupFee,omitempty"`
	DistanceKm     *float64               `json:"distanceKm,omitempty"`
	QuoteExpiresAt time.Time              `json:"quoteExpiresAt"`
}

type VerifyResponse struct {
	LeadID     uuid.UUID `json:"leadId"`
	Email      string    `json:"email"`
	IsVerified bool      `json:"isVerified"`
}

type DeviceResponse struct {
	Model    string   `json:"model"`
	Family   string   `json:"family"`
	Storages []string `json:"storages"`
}
