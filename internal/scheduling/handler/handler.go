// Package handler exposes the scheduling API: availability listing and
// booking publicly, slot blocking and status transitions for admins.
package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"buyback_backend/internal/scheduling/repository"
	"buyback_backend/internal/scheduling/service"
	"buyback_backend/internal/scheduling/transport"
	"buyback_backend/platform/httpkit"
	"buyback_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the public scheduling routes.
func (h *Handler) RegisterRoutes(slots, appointments *gin.RouterGroup) {
	slots.GET("", h.ListSlots)

	appointments.POST("", h.Book)
	appointments.GET("/:id", h.GetAppointment)
}

// RegisterAdminRoutes mounts the admin-only scheduling routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/slots/block", h.BlockSlot)
	rg.PATCH("/appointments/:id/status", h.UpdateStatus)
}

func (h *Handler) ListSlots(c *gin.Context) {
	leadID, err := uuid.Parse(c.Query("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "leadId is required", nil)
		return
	}

	daysAhead := 0
	if raw := c.Query("daysAhead"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpkit.Error(c, http.StatusBadRequest, "invalid daysAhead", nil)
			return
		}
		daysAhead = parsed
	}

	days, err := h.svc.ListAvailableSlots(c.Request.Context(), leadID, daysAhead)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, days)
}

func (h *Handler) Book(c *gin.Context) {
	var req transport.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	startHour, ok := parseStartHour(req.StartTime)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "startTime must be on the hour", nil)
		return
	}

	endHour := 0
	if req.EndTime != "" {
		endHour, ok = parseStartHour(req.EndTime)
		if !ok {
			httpkit.Error(c, http.StatusBadRequest, "endTime must be on the hour", nil)
			return
		}
	}

	appt, err := h.svc.Book(c.Request.Context(), service.BookInput{
		LeadID:    req.LeadID,
		Date:      req.Date,
		StartHour: startHour,
		EndHour:   endHour,
		Notes:     strings.TrimSpace(req.Notes),
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, toAppointmentResponse(appt))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid appointment id", nil)
		return
	}

	appt, err := h.svc.GetAppointment(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toAppointmentResponse(appt))
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid appointment id", nil)
		return
	}

	var req transport.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var reason *string
	if trimmed := strings.TrimSpace(req.Reason); trimmed != "" {
		reason = &trimmed
	}

	change, err := h.svc.UpdateStatus(c.Request.Context(), id, req.Status, reason)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"appointmentId": change.AppointmentID,
		"oldStatus":     change.OldStatus,
		"newStatus":     change.NewStatus,
	})
}

func (h *Handler) BlockSlot(c *gin.Context) {
	var req transport.BlockSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	startHour, ok := parseStartHour(req.StartTime)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "startTime must be on the hour", nil)
		return
	}

	slot, err := h.svc.SetSlotBlocked(c.Request.Context(), req.Date, startHour, req.Blocked)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.SlotResponse{
		Date:        slot.SlotDate.Format("2006-01-02"),
		StartTime:   req.StartTime,
		IsAvailable: slot.IsAvailable,
		IsBlocked:   slot.IsBlocked,
	})
}

// parseStartHour accepts "HH:00" only; the schedule is hour-granular.
func parseStartHour(startTime string) (int, bool) {
	parts := strings.SplitN(startTime, ":", 2)
	if len(parts) != 2 || parts[1] != "00" {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

func toAppointmentResponse(appt repository.Appointment) transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:        appt.ID,
		LeadID:    appt.LeadID,
		Date:      appt.SlotDate.Format("2006-01-02"),
		StartTime: formatHour(appt.StartHour),
		EndTime:   formatHour(appt.StartHour + 1),
		Status:    appt.Status,
		IsSameDay: appt.IsSameDay,
		Notes:     appt.Notes,
		CreatedAt: appt.CreatedAt,
	}
}

func formatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}
