// Package service implements slot allocation: availability listing,
// race-free booking with same-day eligibility, and appointment status
// transitions.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"buyback_backend/internal/events"
	"buyback_backend/internal/scheduling/repository"
	"buyback_backend/platform/apperr"
	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadInfo is the minimal lead view booking needs.
type LeadInfo struct {
	ID         uuid.UUID
	Email      string
	Address    string
	SellMethod string
	DistanceKm *float64
	IsVerified bool
}

// LeadDirectory resolves leads owned by another bounded context. A missing
// lead surfaces as repository.ErrLeadNotFound.
type LeadDirectory interface {
	LeadByID(ctx context.Context, id uuid.UUID) (LeadInfo, error)
}

// transitions maps a target status to the statuses it may start from.
var transitions = map[string][]string{
	repository.StatusConfirmed: {repository.StatusScheduled},
	repository.StatusCompleted: {repository.StatusConfirmed},
	repository.StatusCancelled: {repository.StatusScheduled, repository.StatusConfirmed},
}

type Service struct {
	store repository.SlotStore
	leads LeadDirectory
	bus   events.Bus
	cfg   config.BookingConfig
	loc   *time.Location
	log   *logger.Logger
	now   func() time.Time
}

func New(store repository.SlotStore, leads LeadDirectory, bus events.Bus, cfg config.BookingConfig, log *logger.Logger) (*Service, error) {
	loc, err := time.LoadLocation(cfg.GetBookingTimezone())
	if err != nil {
		return nil, fmt.Errorf("invalid booking timezone %q: %w", cfg.GetBookingTimezone(), err)
	}

	svc := &Service{
		store: store,
		leads: leads,
		bus:   bus,
		cfg:   cfg,
		loc:   loc,
		log:   log,
	}
	svc.now = func() time.Time { return time.Now().In(loc) }
	return svc, nil
}

// ListAvailableSlots returns the slot grid for the coming days, merging
// persisted slot state over synthesized candidates. The lead determines
// whether today's entry is flagged same-day eligible.
func (s *Service) ListAvailableSlots(ctx context.Context, leadID uuid.UUID, daysAhead int) ([]DayAvailability, error) {
	lead, err := s.leads.LeadByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "lead not found").
				WithOp("scheduling.ListAvailableSlots")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	if daysAhead <= 0 {
		daysAhead = s.cfg.GetDefaultDaysAhead()
	}
	if max := s.cfg.GetMaxDaysAhead(); daysAhead > max {
		daysAhead = max
	}

	now := s.now()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, daysAhead-1)

	slots, err := s.store.ListSlotsInRange(ctx, from, to)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list slots", err)
	}

	persisted := make(map[slotKey]repository.Slot, len(slots))
	for _, slot := range slots {
		persisted[slotKey{date: slot.SlotDate.Format(dateLayout), hour: slot.StartHour}] = slot
	}

	days := buildAvailability(now, daysAhead, s.cfg.GetOperatingStartHour(), s.cfg.GetOperatingEndHour(), persisted)
	today := now.Format(dateLayout)
	for i := range days {
		if days[i].Date == today {
			days[i].IsSameDay = s.isSameDay(true, now, lead)
		}
	}
	return days, nil
}

type BookInput struct {
	LeadID    uuid.UUID
	Date      string // 2006-01-02 in the booking timezone
	StartHour int
	// EndHour is optional; when set it must be exactly StartHour+1.
	EndHour int
	Notes   string
}

// Book validates the request, computes the frozen same-day flag and claims
// the slot. Exactly one of any set of concurrent bookings for the same slot
// succeeds.
func (s *Service) Book(ctx context.Context, in BookInput) (repository.Appointment, error) {
	lead, err := s.leads.LeadByID(ctx, in.LeadID)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return repository.Appointment{}, apperr.New(apperr.KindNotFound, "lead not found").
				WithOp("scheduling.Book")
		}
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	if !lead.IsVerified {
		return repository.Appointment{}, apperr.New(apperr.KindForbidden, "lead email is not verified").
			WithOp("scheduling.Book")
	}

	if _, err := s.store.GetAppointmentByLeadID(ctx, in.LeadID); err == nil {
		return repository.Appointment{}, apperr.New(apperr.KindConflict, "lead already has an appointment").
			WithOp("scheduling.Book")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to check existing appointment", err)
	}

	date, err := time.ParseInLocation(dateLayout, in.Date, s.loc)
	if err != nil {
		return repository.Appointment{}, apperr.New(apperr.KindValidation, "invalid date").
			WithOp("scheduling.Book")
	}

	if in.StartHour < s.cfg.GetOperatingStartHour() || in.StartHour >= s.cfg.GetOperatingEndHour() {
		return repository.Appointment{}, apperr.New(apperr.KindValidation,
			fmt.Sprintf("start time must be between %s and %s",
				formatHour(s.cfg.GetOperatingStartHour()), formatHour(s.cfg.GetOperatingEndHour()-1))).
			WithOp("scheduling.Book")
	}
	if in.EndHour != 0 && in.EndHour != in.StartHour+1 {
		return repository.Appointment{}, apperr.New(apperr.KindValidation, "appointments are one hour long").
			WithOp("scheduling.Book")
	}
	if date.Weekday() == time.Sunday {
		return repository.Appointment{}, apperr.New(apperr.KindValidation, "appointments are not available on Sundays").
			WithOp("scheduling.Book")
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if date.Before(today) {
		return repository.Appointment{}, apperr.New(apperr.KindValidation, "date is in the past").
			WithOp("scheduling.Book")
	}
	if date.After(today.AddDate(0, 0, s.cfg.GetMaxDaysAhead()-1)) {
		return repository.Appointment{}, apperr.New(apperr.KindValidation, "date is too far ahead").
			WithOp("scheduling.Book")
	}
	isToday := date.Equal(today)
	if isToday && in.StartHour <= now.Hour() {
		return repository.Appointment{}, apperr.New(apperr.KindValidation, "slot has already passed").
			WithOp("scheduling.Book")
	}

	address := ""
	if lead.SellMethod == "pickup" {
		address = lead.Address
	}

	appt, err := s.store.Book(ctx, repository.BookParams{
		LeadID:    in.LeadID,
		SlotDate:  time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
		StartHour: in.StartHour,
		IsSameDay: s.isSameDay(isToday, now, lead),
		Address:   address,
		Notes:     in.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrSlotUnavailable):
			return repository.Appointment{}, apperr.New(apperr.KindConflict, "slot is no longer available").
				WithOp("scheduling.Book")
		case errors.Is(err, repository.ErrAppointmentExists):
			return repository.Appointment{}, apperr.New(apperr.KindConflict, "lead already has an appointment").
				WithOp("scheduling.Book")
		case errors.Is(err, repository.ErrLeadNotFound):
			return repository.Appointment{}, apperr.New(apperr.KindNotFound, "lead not found").
				WithOp("scheduling.Book")
		}
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to book slot", err)
	}

	s.bus.Publish(ctx, events.AppointmentScheduled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		LeadID:        lead.ID,
		Email:         lead.Email,
		SlotDate:      in.Date,
		StartTime:     formatHour(in.StartHour),
		IsSameDay:     appt.IsSameDay,
		SellMethod:    lead.SellMethod,
	})

	return appt, nil
}

// isSameDay is computed once at booking time and frozen on the appointment.
func (s *Service) isSameDay(isToday bool, now time.Time, lead LeadInfo) bool {
	if !isToday {
		return false
	}
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), s.cfg.GetSameDayCutoffHour(), 0, 0, 0, s.loc)
	if now.After(cutoff) {
		return false
	}
	if lead.SellMethod == "pickup" {
		return lead.DistanceKm != nil && *lead.DistanceKm <= s.cfg.GetSameDayMaxDistanceKm()
	}
	return true
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (repository.Appointment, error) {
	appt, err := s.store.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Appointment{}, apperr.New(apperr.KindNotFound, "appointment not found").
				WithOp("scheduling.GetAppointment")
		}
		return repository.Appointment{}, apperr.Wrap(apperr.KindInternal, "failed to load appointment", err)
	}
	return appt, nil
}

// UpdateStatus applies one transition of the status machine. Terminal
// statuses reject any further change.
func (s *Service) UpdateStatus(ctx context.Context, appointmentID uuid.UUID, newStatus string, reason *string) (repository.StatusChange, error) {
	allowedFrom, ok := transitions[newStatus]
	if !ok {
		return repository.StatusChange{}, apperr.New(apperr.KindValidation, "unknown status").
			WithOp("scheduling.UpdateStatus")
	}

	change, err := s.store.UpdateStatus(ctx, repository.StatusUpdate{
		AppointmentID: appointmentID,
		NewStatus:     newStatus,
		Reason:        reason,
		AllowedFrom:   allowedFrom,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return repository.StatusChange{}, apperr.New(apperr.KindNotFound, "appointment not found").
				WithOp("scheduling.UpdateStatus")
		case errors.Is(err, repository.ErrInvalidTransition):
			return repository.StatusChange{}, apperr.New(apperr.KindConflict,
				fmt.Sprintf("cannot transition to %s", newStatus)).
				WithOp("scheduling.UpdateStatus")
		}
		return repository.StatusChange{}, apperr.Wrap(apperr.KindInternal, "failed to update status", err)
	}

	event := events.AppointmentStatusUpdated{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: change.AppointmentID,
		LeadID:        change.LeadID,
		OldStatus:     change.OldStatus,
		NewStatus:     change.NewStatus,
	}
	if reason != nil {
		event.Reason = *reason
	}
	s.bus.Publish(ctx, event)

	return change, nil
}

// SetSlotBlocked lets admins take a slot out of (or back into) rotation.
func (s *Service) SetSlotBlocked(ctx context.Context, dateStr string, startHour int, blocked bool) (repository.Slot, error) {
	date, err := time.ParseInLocation(dateLayout, dateStr, s.loc)
	if err != nil {
		return repository.Slot{}, apperr.New(apperr.KindValidation, "invalid date").
			WithOp("scheduling.SetSlotBlocked")
	}
	if startHour < s.cfg.GetOperatingStartHour() || startHour >= s.cfg.GetOperatingEndHour() {
		return repository.Slot{}, apperr.New(apperr.KindValidation, "start time outside operating hours").
			WithOp("scheduling.SetSlotBlocked")
	}

	slot, err := s.store.SetSlotBlocked(ctx, time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC), startHour, blocked)
	if err != nil {
		return repository.Slot{}, apperr.Wrap(apperr.KindInternal, "failed to update slot", err)
	}
	return slot, nil
}
