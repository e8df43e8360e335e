// Package transport defines the request and response payloads for the
// scheduling API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ── Requests ──────────────────────────────────────────────────────────────────

type BookRequest struct {
	LeadID    uuid.UUID `json:"leadId" validate:"required"`
	Date      string    `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string    `json:"startTime" validate:"required,datetime=15:04"`
	EndTime   string    `json:"endTime" validate:"omitempty,datetime=15:04"`
	Notes     string    `json:"notes" validate:"omitempty,max=1000"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled"`
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type BlockSlotRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	Blocked   bool   `json:"blocked"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Status    string    `json:"status"`
	IsSameDay bool      `json:"isSameDay"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type SlotResponse struct {
	Date        string `json:"date"`
	StartTime   string `json:"startTime"`
	IsAvailable bool   `json:"isAvailable"`
	IsBlocked   bool   `json:"isBlocked"`
}
