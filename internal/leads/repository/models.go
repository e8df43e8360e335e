package repository

import (
	"time"

	"github.com/google/uuid"
)

// SellMethod values accepted on lead creation.
const (
	SellMethodPickup  = "pickup"
	SellMethodDropoff = "dropoff"
)

type Lead struct {
	ID         uuid.UUID
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	SellMethod string
	DistanceKm *float64
	PickupFee  *int64
	IsVerified bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Device struct {
	ID      uuid.UUID
	Model   string
	Storage string
}

type Quote struct {
	ID                 uuid.UUID
	LeadID             uuid.UUID
	DeviceID           uuid.UUID
	Damages            []string
	HasBox             bool
	HasCharger         bool
	IsActivationLocked bool
	BasePrice          int64
	DamageDeduction    int64
	Margin             int64
	FinalQuote         int64
	PickupFee          *int64
	ExpiresAt          time.Time
	IsExpired          bool
	CreatedAt          time.Time
}

type Verification struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Token     string
	ExpiresAt time.Time
	IsUsed    bool
	CreatedAt time.Time
}

// VerificationStatus is the read-only view used by the status endpoint.
type VerificationStatus struct {
	Token          string
	ExpiresAt      time.Time
	IsUsed         bool
	LeadID         uuid.UUID
	LeadIsVerified bool
}

type CreateLeadParams struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	SellMethod string
	DistanceKm *float64
	PickupFee  *int64

	DeviceID           uuid.UUID
	Damages            []string
	HasBox             bool
	HasCharger         bool
	IsActivationLocked bool
	BasePrice          int64
	DamageDeduction    int64
	Margin             int64
	FinalQuote         int64
	QuoteExpiresAt     time.Time

	VerificationToken     string
	VerificationExpiresAt time.Time
}

// CreatedLead is returned from the atomic lead+quote+verification insert.
type CreatedLead struct {
	LeadID            uuid.UUID
	QuoteID           uuid.UUID
	VerificationToken string
}

// ExpiringQuote identifies a quote touched by the expiration sweep.
type ExpiringQuote struct {
	QuoteID    uuid.UUID
	LeadID     uuid.UUID
	Email      string
	FinalQuote int64
	ExpiresAt  time.Time
}

// SweepResult summarizes one run of the expiration sweep. Total counts
// every quote in the store, expired or not.
type SweepResult struct {
	Expired    []ExpiringQuote
	NearExpiry []ExpiringQuote
	Total      int
}
