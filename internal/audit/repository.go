// Package audit keeps the append-only state log of appointment status
// transitions. Rows are never updated or deleted.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StateLog struct {
	ID            uuid.UUID `json:"id"`
	AppointmentID uuid.UUID `json:"appointmentId"`
	FromStatus    *string   `json:"fromStatus"`
	ToStatus      string    `json:"toStatus"`
	Reason        *string   `json:"reason,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Entry is one transition to record.
type Entry struct {
	AppointmentID uuid.UUID
	FromStatus    *string
	ToStatus      string
	Reason        *string
}

// TransitionCount is one row of the transition report.
type TransitionCount struct {
	ToStatus string `json:"toStatus"`
	Count    int64  `json:"count"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// AppendTx writes a state log row inside the caller's transaction, so the
// log commits or rolls back with the transition it records.
func AppendTx(ctx context.Context, tx pgx.Tx, entry Entry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO state_logs (appointment_id, from_status, to_status, reason)
		VALUES ($1, $2, $3, $4)
	`, entry.AppointmentID, entry.FromStatus, entry.ToStatus, entry.Reason)
	return err
}

func (r *Repository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]StateLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, from_status, to_status, reason, created_at
		FROM state_logs
		WHERE appointment_id = $1
		ORDER BY created_at ASC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]StateLog, 0)
	for rows.Next() {
		var log StateLog
		if err := rows.Scan(&log.ID, &log.AppointmentID, &log.FromStatus, &log.ToStatus, &log.Reason, &log.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// Report counts transitions per target status within the window.
func (r *Repository) Report(ctx context.Context, from, to time.Time) ([]TransitionCount, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_status, COUNT(*)
		FROM state_logs
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY to_status
		ORDER BY to_status ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]TransitionCount, 0)
	for rows.Next() {
		var count TransitionCount
		if err := rows.Scan(&count.ToStatus, &count.Count); err != nil {
			return nil, err
		}
		counts = append(counts, count)
	}
	return counts, rows.Err()
}
