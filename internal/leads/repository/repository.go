package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("lead not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrTokenNotFound   = errors.New("verification token not found")
	ErrTokenUsed       = errors.New("verification token already used")
	ErrTokenExpired    = errors.New("verification token expired")
	ErrAlreadyVerified = errors.New("lead already verified")
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindOrCreateDevice resolves a (model, storage) pair to a device row,
// creating it on first sight. The upsert keeps concurrent first-sights from
// racing into duplicates.
func (r *Repository) FindOrCreateDevice(ctx context.Context, model, storage string) (Device, error) {
	var device Device
	err := r.pool.QueryRow(ctx, `
		INSERT INTO devices (model, storage)
		VALUES ($1, $2)
		ON CONFLICT (model, storage) DO UPDATE SET model = EXCLUDED.model
		RETURNING id, model, storage
	`, model, storage).Scan(&device.ID, &device.Model, &device.Storage)
	if err != nil {
		return Device{}, err
	}
	return device, nil
}

func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM leads WHERE email = $1)
	`, email).Scan(&exists)
	return exists, err
}

// IsBlacklisted checks the email and normalized phone against the blocklist.
func (r *Repository) IsBlacklisted(ctx context.Context, email, phone string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM blacklist_entries
			WHERE is_active
			  AND ((email IS NOT NULL AND email = $1)
			   OR (phone IS NOT NULL AND phone = $2))
		)
	`, email, phone).Scan(&exists)
	return exists, err
}

// CreateLead inserts the lead, its quote and its verification token in one
// transaction. A unique-violation on the lead email surfaces as
// ErrDuplicateEmail so concurrent submissions cannot both win.
func (r *Repository) CreateLead(ctx context.Context, params CreateLeadParams) (CreatedLead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return CreatedLead{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var leadID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO leads (email, first_name, last_name, phone, address, sell_method, distance_km, pickup_fee)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, params.Email, params.FirstName, params.LastName, params.Phone, params.Address,
		params.SellMethod, params.DistanceKm, params.PickupFee).Scan(&leadID)
	if err != nil {
		if isUniqueViolation(err) {
			return CreatedLead{}, ErrDuplicateEmail
		}
		return CreatedLead{}, err
	}

	var quoteID uuid.UUID
	err = tx.QueryRow(ctx, `
		INSERT INTO quotes (lead_id, device_id, damages, has_box, has_charger, is_activation_locked,
			base_price, damage_deduction, margin, final_quote, pickup_fee, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`, leadID, params.DeviceID, params.Damages, params.HasBox, params.HasCharger,
		params.IsActivationLocked, params.BasePrice, params.DamageDeduction, params.Margin,
		params.FinalQuote, params.PickupFee, params.QuoteExpiresAt).Scan(&quoteID)
	if err != nil {
		return CreatedLead{}, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO verifications (lead_id, token, expires_at)
		VALUES ($1, $2, $3)
	`, leadID, params.VerificationToken, params.VerificationExpiresAt)
	if err != nil {
		return CreatedLead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return CreatedLead{}, err
	}

	return CreatedLead{LeadID: leadID, QuoteID: quoteID, VerificationToken: params.VerificationToken}, nil
}

func (r *Repository) GetLeadByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	var lead Lead
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, first_name, last_name, phone, address, sell_method,
			distance_km, pickup_fee, is_verified, created_at, updated_at
		FROM leads
		WHERE id = $1
	`, id).Scan(
		&lead.ID, &lead.Email, &lead.FirstName, &lead.LastName, &lead.Phone,
		&lead.Address, &lead.SellMethod, &lead.DistanceKm, &lead.PickupFee,
		&lead.IsVerified, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// GetVerificationStatus is a read-only lookup for the status endpoint. It
// never consumes the token.
func (r *Repository) GetVerificationStatus(ctx context.Context, token string) (VerificationStatus, error) {
	var status VerificationStatus
	err := r.pool.QueryRow(ctx, `
		SELECT v.token, v.expires_at, v.is_used, l.id, l.is_verified
		FROM verifications v
		JOIN leads l ON l.id = v.lead_id
		WHERE v.token = $1
	`, token).Scan(&status.Token, &status.ExpiresAt, &status.IsUsed, &status.LeadID, &status.LeadIsVerified)
	if errors.Is(err, pgx.ErrNoRows) {
		return VerificationStatus{}, ErrTokenNotFound
	}
	if err != nil {
		return VerificationStatus{}, err
	}
	return status, nil
}

// ConsumeVerification marks the token used and the lead verified, exactly
// once. The row lock serializes concurrent calls with the same token: the
// loser re-reads is_used=true and fails with ErrTokenUsed.
func (r *Repository) ConsumeVerification(ctx context.Context, token string, now time.Time) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		verificationID uuid.UUID
		expiresAt      time.Time
		isUsed         bool
		lead           Lead
	)
	err = tx.QueryRow(ctx, `
		SELECT v.id, v.expires_at, v.is_used,
			l.id, l.email, l.first_name, l.last_name, l.phone, l.address, l.sell_method,
			l.distance_km, l.pickup_fee, l.is_verified, l.created_at, l.updated_at
		FROM verifications v
		JOIN leads l ON l.id = v.lead_id
		WHERE v.token = $1
		FOR UPDATE
	`, token).Scan(
		&verificationID, &expiresAt, &isUsed,
		&lead.ID, &lead.Email, &lead.FirstName, &lead.LastName, &lead.Phone,
		&lead.Address, &lead.SellMethod, &lead.DistanceKm, &lead.PickupFee,
		&lead.IsVerified, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrTokenNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	switch {
	case isUsed:
		return Lead{}, ErrTokenUsed
	case !expiresAt.After(now):
		return Lead{}, ErrTokenExpired
	case lead.IsVerified:
		return Lead{}, ErrAlreadyVerified
	}

	if _, err := tx.Exec(ctx, `
		UPDATE verifications SET is_used = true WHERE id = $1
	`, verificationID); err != nil {
		return Lead{}, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE leads SET is_verified = true, updated_at = now() WHERE id = $1
	`, lead.ID); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}

	lead.IsVerified = true
	return lead, nil
}

// SweepExpiredQuotes flips is_expired on quotes past their window and
// collects quotes entering the near-expiry window exactly once. Both writes
// are conditional on their flags, so re-running the sweep with no time
// passing touches nothing.
func (r *Repository) SweepExpiredQuotes(ctx context.Context, now time.Time, nearExpiryBefore time.Time) (SweepResult, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var result SweepResult

	rows, err := tx.Query(ctx, `
		UPDATE quotes q
		SET is_expired = true
		FROM leads l
		WHERE l.id = q.lead_id
		  AND NOT q.is_expired
		  AND q.expires_at <= $1
		RETURNING q.id, q.lead_id, l.email, q.final_quote, q.expires_at
	`, now)
	if err != nil {
		return SweepResult{}, err
	}
	result.Expired, err = collectExpiringQuotes(rows)
	if err != nil {
		return SweepResult{}, err
	}

	rows, err = tx.Query(ctx, `
		UPDATE quotes q
		SET near_expiry_notified_at = $1
		FROM leads l
		WHERE l.id = q.lead_id
		  AND NOT q.is_expired
		  AND q.near_expiry_notified_at IS NULL
		  AND q.expires_at > $1
		  AND q.expires_at <= $2
		RETURNING q.id, q.lead_id, l.email, q.final_quote, q.expires_at
	`, now, nearExpiryBefore)
	if err != nil {
		return SweepResult{}, err
	}
	result.NearExpiry, err = collectExpiringQuotes(rows)
	if err != nil {
		return SweepResult{}, err
	}

	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM quotes`).Scan(&result.Total); err != nil {
		return SweepResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return SweepResult{}, err
	}

	return result, nil
}

func collectExpiringQuotes(rows pgx.Rows) ([]ExpiringQuote, error) {
	defer rows.Close()

	items := make([]ExpiringQuote, 0)
	for rows.Next() {
		var item ExpiringQuote
		if err := rows.Scan(&item.QuoteID, &item.LeadID, &item.Email, &item.FinalQuote, &item.ExpiresAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
