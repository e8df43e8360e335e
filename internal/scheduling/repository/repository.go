// Package repository persists schedule slots, appointments and their
// addresses. Slot claiming relies on database-level guarantees so
// concurrent bookings of the same slot cannot both succeed.
package repository

import (
	"context"
	"errors"
	"time"

	"buyback_backend/internal/audit"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrSlotUnavailable   = errors.New("slot is not available")
	ErrAppointmentExists = errors.New("lead already has an appointment")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListSlotsInRange returns persisted slots with slot_date in [from, to].
func (r *Repository) ListSlotsInRange(ctx context.Context, from, to time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, slot_date, start_hour, is_available, is_blocked
		FROM schedule_slots
		WHERE slot_date >= $1 AND slot_date <= $2
		ORDER BY slot_date ASC, start_hour ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]Slot, 0)
	for rows.Next() {
		var slot Slot
		if err := rows.Scan(&slot.ID, &slot.SlotDate, &slot.StartHour, &slot.IsAvailable, &slot.IsBlocked); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Book claims the slot and creates the appointment in one transaction.
//
// The slot row is created on first booking attempt, then claimed with a
// conditional update: zero rows affected means another booking won the
// slot, or an admin blocked it. The partial unique index on the lead keeps
// a lead from holding two live appointments.
func (r *Repository) Book(ctx context.Context, params BookParams) (Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Appointment{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO schedule_slots (slot_date, start_hour)
		VALUES ($1, $2)
		ON CONFLICT (slot_date, start_hour) DO NOTHING
	`, params.SlotDate, params.StartHour); err != nil {
		return Appointment{}, err
	}

	var slotID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE schedule_slots
		SET is_available = false
		WHERE slot_date = $1 AND start_hour = $2
		  AND is_available AND NOT is_blocked
		RETURNING id
	`, params.SlotDate, params.StartHour).Scan(&slotID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrSlotUnavailable
	}
	if err != nil {
		return Appointment{}, err
	}

	var appt Appointment
	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (lead_id, slot_id, status, is_same_day, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, lead_id, slot_id, status, is_same_day, notes, created_at, updated_at
	`, params.LeadID, slotID, StatusScheduled, params.IsSameDay, params.Notes).Scan(
		&appt.ID, &appt.LeadID, &appt.SlotID, &appt.Status, &appt.IsSameDay,
		&appt.Notes, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Appointment{}, ErrAppointmentExists
			case "23503":
				return Appointment{}, ErrLeadNotFound
			}
		}
		return Appointment{}, err
	}
	appt.SlotDate = params.SlotDate
	appt.StartHour = params.StartHour

	if params.Address != "" {
		if _, err := tx.Exec(ctx, `
			INSERT INTO addresses (lead_id, appointment_id, raw_address)
			VALUES ($1, $2, $3)
		`, params.LeadID, appt.ID, params.Address); err != nil {
			return Appointment{}, err
		}
	}

	if err := audit.AppendTx(ctx, tx, audit.Entry{
		AppointmentID: appt.ID,
		ToStatus:      StatusScheduled,
	}); err != nil {
		return Appointment{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Appointment{}, err
	}

	return appt, nil
}

func (r *Repository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return r.getAppointment(ctx, `a.id = $1`, id)
}

func (r *Repository) GetAppointmentByLeadID(ctx context.Context, leadID uuid.UUID) (Appointment, error) {
	return r.getAppointment(ctx, `a.lead_id = $1 AND a.status <> 'cancelled'`, leadID)
}

func (r *Repository) getAppointment(ctx context.Context, where string, arg any) (Appointment, error) {
	var appt Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT a.id, a.lead_id, a.slot_id, s.slot_date, s.start_hour,
			a.status, a.is_same_day, a.notes, a.created_at, a.updated_at
		FROM appointments a
		JOIN schedule_slots s ON s.id = a.slot_id
		WHERE `+where, arg).Scan(
		&appt.ID, &appt.LeadID, &appt.SlotID, &appt.SlotDate, &appt.StartHour,
		&appt.Status, &appt.IsSameDay, &appt.Notes, &appt.CreatedAt, &appt.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	if err != nil {
		return Appointment{}, err
	}
	return appt, nil
}

// UpdateStatus transitions an appointment under its row lock, appends the
// state log row, and releases the slot when the appointment is cancelled.
func (r *Repository) UpdateStatus(ctx context.Context, update StatusUpdate) (StatusChange, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return StatusChange{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		oldStatus string
		slotID    uuid.UUID
		leadID    uuid.UUID
	)
	err = tx.QueryRow(ctx, `
		SELECT status, slot_id, lead_id
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, update.AppointmentID).Scan(&oldStatus, &slotID, &leadID)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusChange{}, ErrNotFound
	}
	if err != nil {
		return StatusChange{}, err
	}

	allowed := false
	for _, from := range update.AllowedFrom {
		if from == oldStatus {
			allowed = true
			break
		}
	}
	if !allowed {
		return StatusChange{}, ErrInvalidTransition
	}

	if _, err := tx.Exec(ctx, `
		UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1
	`, update.AppointmentID, update.NewStatus); err != nil {
		return StatusChange{}, err
	}

	if err := audit.AppendTx(ctx, tx, audit.Entry{
		AppointmentID: update.AppointmentID,
		FromStatus:    &oldStatus,
		ToStatus:      update.NewStatus,
		Reason:        update.Reason,
	}); err != nil {
		return StatusChange{}, err
	}

	if update.NewStatus == StatusCancelled {
		// The freed slot becomes bookable again unless an admin has
		// blocked it in the meantime.
		if _, err := tx.Exec(ctx, `
			UPDATE schedule_slots SET is_available = true
			WHERE id = $1 AND NOT is_blocked
		`, slotID); err != nil {
			return StatusChange{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return StatusChange{}, err
	}

	return StatusChange{
		AppointmentID: update.AppointmentID,
		LeadID:        leadID,
		OldStatus:     oldStatus,
		NewStatus:     update.NewStatus,
	}, nil
}

// SetSlotBlocked upserts the slot and flips its admin block flag.
func (r *Repository) SetSlotBlocked(ctx context.Context, date time.Time, startHour int, blocked bool) (Slot, error) {
	var slot Slot
	err := r.pool.QueryRow(ctx, `
		INSERT INTO schedule_slots (slot_date, start_hour, is_blocked)
		VALUES ($1, $2, $3)
		ON CONFLICT (slot_date, start_hour) DO UPDATE SET is_blocked = $3
		RETURNING id, slot_date, start_hour, is_available, is_blocked
	`, date, startHour, blocked).Scan(&slot.ID, &slot.SlotDate, &slot.StartHour, &slot.IsAvailable, &slot.IsBlocked)
	if err != nil {
		return Slot{}, err
	}
	return slot, nil
}
