package repository

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Completed and cancelled are terminal.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Slot is a persisted bookable window. Slots are created lazily: a (date,
// hour) pair without a row is an implicit available candidate.
type Slot struct {
	ID          uuid.UUID
	SlotDate    time.Time
	StartHour   int
	IsAvailable bool
	IsBlocked   bool
}

type Appointment struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	SlotID    uuid.UUID
	SlotDate  time.Time
	StartHour int
	Status    string
	IsSameDay bool
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type BookParams struct {
	LeadID    uuid.UUID
	SlotDate  time.Time
	StartHour int
	IsSameDay bool
	// Address is stored alongside pickup bookings; empty for dropoff.
	Address string
	Notes   string
}

type StatusUpdate struct {
	AppointmentID uuid.UUID
	NewStatus     string
	Reason        *string
	// AllowedFrom lists the statuses the transition may start from; the
	// check runs under the appointment's row lock.
	AllowedFrom []string
}

// StatusChange reports a committed transition.
type StatusChange struct {
	AppointmentID uuid.UUID
	LeadID        uuid.UUID
	OldStatus     string
	NewStatus     string
}
