package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SlotStore is the persistence surface the scheduling service depends on.
type SlotStore interface {
	ListSlotsInRange(ctx context.Context, from, to time.Time) ([]Slot, error)
	Book(ctx context.Context, params BookParams) (Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (Appointment, error)
	GetAppointmentByLeadID(ctx context.Context, leadID uuid.UUID) (Appointment, error)
	UpdateStatus(ctx context.Context, update StatusUpdate) (StatusChange, error)
	SetSlotBlocked(ctx context.Context, date time.Time, startHour int, blocked bool) (Slot, error)
}

var _ SlotStore = (*Repository)(nil)
