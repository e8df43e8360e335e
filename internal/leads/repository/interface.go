package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadStore is the persistence surface the lead service depends on.
// Segregated from the concrete repository so service tests can use fakes.
type LeadStore interface {
	FindOrCreateDevice(ctx context.Context, model, storage string) (Device, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	IsBlacklisted(ctx context.Context, email, phone string) (bool, error)
	CreateLead(ctx context.Context, params CreateLeadParams) (CreatedLead, error)
	GetLeadByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetVerificationStatus(ctx context.Context, token string) (VerificationStatus, error)
	ConsumeVerification(ctx context.Context, token string, now time.Time) (Lead, error)
	SweepExpiredQuotes(ctx context.Context, now time.Time, nearExpiryBefore time.Time) (SweepResult, error)
}

var _ LeadStore = (*Repository)(nil)
