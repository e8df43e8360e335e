// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"buyback_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a lead and its quote are created.
type LeadCreated struct {
	BaseEvent
	LeadID            uuid.UUID `json:"leadId"`
	QuoteID           uuid.UUID `json:"quoteId"`
	Email             string    `json:"email"`
	FirstName         string    `json:"firstName"`
	DeviceModel       string    `json:"deviceModel"`
	DeviceStorage     string    `json:"deviceStorage"`
	FinalQuote        int64     `json:"finalQuote"`
	SellMethod        string    `json:"sellMethod"`
	VerificationToken string    `json:"verificationToken"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadVerified is published when a lead completes email verification.
type LeadVerified struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Email  string    `json:"email"`
}

func (e LeadVerified) EventName() string { return "leads.lead.verified" }

// QuoteExpired is published for each quote the expiration sweep marks expired.
type QuoteExpired struct {
	BaseEvent
	QuoteID    uuid.UUID `json:"quoteId"`
	LeadID     uuid.UUID `json:"leadId"`
	Email      string    `json:"email"`
	FinalQuote int64     `json:"finalQuote"`
	ExpiredAt  time.Time `json:"expiredAt"`
}

func (e QuoteExpired) EventName() string { return "leads.quote.expired" }

// QuoteNearExpiry is published by the sweep for quotes inside the
// notification lookahead window.
type QuoteNearExpiry struct {
	BaseEvent
	QuoteID    uuid.UUID `json:"quoteId"`
	LeadID     uuid.UUID `json:"leadId"`
	Email      string    `json:"email"`
	FinalQuote int64     `json:"finalQuote"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (e QuoteNearExpiry) EventName() string { return "leads.quote.near_expiry" }

// =============================================================================
// Scheduling Domain Events
// =============================================================================

// AppointmentScheduled is published when a slot is successfully claimed.
type AppointmentScheduled struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	LeadID        uuid.UUID `json:"leadId"`
	Email         string    `json:"email"`
	SlotDate      string    `json:"slotDate"`
	StartTime     string    `json:"startTime"`
	IsSameDay     bool      `json:"isSameDay"`
	SellMethod    string    `json:"sellMethod"`
}

func (e AppointmentScheduled) EventName() string { return "scheduling.appointment.scheduled" }

// AppointmentStatusUpdated is published when an appointment's status changes
// (e.g. confirmed, completed, cancelled).
type AppointmentStatusUpdated struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	LeadID        uuid.UUID `json:"leadId"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
	Reason        string    `json:"reason,omitempty"`
}

func (e AppointmentStatusUpdated) EventName() string { return "scheduling.appointment.status_updated" }
