// Package service implements the lead and quote lifecycle: creation with
// quote integrity checks, one-time email verification, and the expiration
// sweep.
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"buyback_backend/internal/events"
	"buyback_backend/internal/leads/repository"
	"buyback_backend/internal/pricing"
	"buyback_backend/internal/routing"
	"buyback_backend/platform/apperr"
	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"
	"buyback_backend/platform/phone"

	"github.com/google/uuid"
)

// AddressResolver turns a free-form address into distance and fee
// eligibility.
type AddressResolver interface {
	Resolve(ctx context.Context, address string) (routing.Resolution, error)
}

type Service struct {
	store    repository.LeadStore
	engine   *pricing.Engine
	resolver AddressResolver
	bus      events.Bus
	cfg      config.LifecycleConfig
	log      *logger.Logger
	now      func() time.Time
}

func New(store repository.LeadStore, engine *pricing.Engine, resolver AddressResolver, bus events.Bus, cfg config.LifecycleConfig, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		engine:   engine,
		resolver: resolver,
		bus:      bus,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

type CreateLeadInput struct {
	Email      string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	SellMethod string

	Model              string
	Storage            string
	Damages            []string
	HasBox             bool
	HasCharger         bool
	IsActivationLocked bool

	// SubmittedFinalQuote is the amount the client saw when pricing; it is
	// re-verified server side before anything is persisted.
	SubmittedFinalQuote int64
}

type CreateLeadResult struct {
	LeadID         uuid.UUID
	QuoteID        uuid.UUID
	Breakdown      pricing.Breakdown
	PickupFee      *int64
	DistanceKm     *float64
	QuoteExpiresAt time.Time
}

// CreateLead runs the full intake: duplicate and blocklist checks, pickup
// eligibility, quote re-verification, then one atomic insert of lead, quote
// and verification token.
func (s *Service) CreateLead(ctx context.Context, in CreateLeadInput) (CreateLeadResult, error) {
	phoneE164, ok := phone.NormalizeE164(in.Phone)
	if !ok {
		return CreateLeadResult{}, apperr.New(apperr.KindValidation, "invalid phone number").
			WithOp("leads.CreateLead")
	}

	exists, err := s.store.EmailExists(ctx, in.Email)
	if err != nil {
		return CreateLeadResult{}, apperr.Wrap(apperr.KindInternal, "failed to check email", err)
	}
	if exists {
		return CreateLeadResult{}, apperr.New(apperr.KindConflict, "email already registered").
			WithOp("leads.CreateLead")
	}

	blocked, err := s.store.IsBlacklisted(ctx, in.Email, phoneE164)
	if err != nil {
		return CreateLeadResult{}, apperr.Wrap(apperr.KindInternal, "failed to check blocklist", err)
	}
	if blocked {
		// Deliberately vague: the response must not reveal that the
		// contact details are blocklisted.
		return CreateLeadResult{}, apperr.New(apperr.KindConflict, "unable to create lead").
			WithOp("leads.CreateLead")
	}

	var (
		distanceKm *float64
		pickupFee  *int64
	)
	if in.SellMethod == repository.SellMethodPickup {
		resolution, err := s.resolver.Resolve(ctx, in.Address)
		if err != nil {
			return CreateLeadResult{}, err
		}
		if !resolution.IsEligible {
			return CreateLeadResult{}, apperr.New(apperr.KindValidation, "address is outside the pickup service area").
				WithOp("leads.CreateLead")
		}
		distanceKm = &resolution.DistanceKm
		pickupFee = &resolution.PickupFee
	}

	breakdown, err := s.engine.Verify(pricing.Input{
		Model:              in.Model,
		Storage:            in.Storage,
		Damages:            in.Damages,
		HasBox:             in.HasBox,
		HasCharger:         in.HasCharger,
		IsActivationLocked: in.IsActivationLocked,
	}, in.SubmittedFinalQuote)
	if err != nil {
		if errors.Is(err, pricing.ErrQuoteMismatch) {
			s.log.IntegrityViolation(in.Email, in.SubmittedFinalQuote, breakdown.FinalQuote)
		}
		return CreateLeadResult{}, err
	}

	device, err := s.store.FindOrCreateDevice(ctx, in.Model, in.Storage)
	if err != nil {
		return CreateLeadResult{}, apperr.Wrap(apperr.KindInternal, "failed to resolve device", err)
	}

	token, err := generateToken()
	if err != nil {
		return CreateLeadResult{}, apperr.Wrap(apperr.KindInternal, "failed to generate verification token", err)
	}

	now := s.now()
	quoteExpiresAt := now.Add(s.cfg.GetQuoteValidity())

	created, err := s.store.CreateLead(ctx, repository.CreateLeadParams{
		Email:      in.Email,
		FirstName:  in.FirstName,
		LastName:   in.LastName,
		Phone:      phoneE164,
		Address:    in.Address,
		SellMethod: in.SellMethod,
		DistanceKm: distanceKm,
		PickupFee:  pickupFee,

		DeviceID:           device.ID,
		Damages:            in.Damages,
		HasBox:             in.HasBox,
		HasCharger:         in.HasCharger,
		IsActivationLocked: in.IsActivationLocked,
		BasePrice:          breakdown.BasePrice,
		DamageDeduction:    breakdown.DamageDeduction,
		Margin:             breakdown.Margin,
		FinalQuote:         breakdown.FinalQuote,
		QuoteExpiresAt:     quoteExpiresAt,

		VerificationToken:     token,
		VerificationExpiresAt: now.Add(s.cfg.GetVerificationTokenTTL()),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return CreateLeadResult{}, apperr.New(apperr.KindConflict, "email already registered").
				WithOp("leads.CreateLead")
		}
		return CreateLeadResult{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:         events.NewBaseEvent(),
		LeadID:            created.LeadID,
		QuoteID:           created.QuoteID,
		Email:             in.Email,
		FirstName:         in.FirstName,
		DeviceModel:       in.Model,
		DeviceStorage:     in.Storage,
		FinalQuote:        breakdown.FinalQuote,
		SellMethod:        in.SellMethod,
		VerificationToken: created.VerificationToken,
	})

	return CreateLeadResult{
		LeadID:         created.LeadID,
		QuoteID:        created.QuoteID,
		Breakdown:      breakdown,
		PickupFee:      pickupFee,
		DistanceKm:     distanceKm,
		QuoteExpiresAt: quoteExpiresAt,
	}, nil
}

// ConfirmVerification consumes the token and marks the lead verified.
// Exactly-once: a second call with the same token fails.
func (s *Service) ConfirmVerification(ctx context.Context, token string) (repository.Lead, error) {
	lead, err := s.store.ConsumeVerification(ctx, token, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenNotFound):
			return repository.Lead{}, apperr.New(apperr.KindNotFound, "invalid verification token").
				WithOp("leads.ConfirmVerification")
		case errors.Is(err, repository.ErrTokenUsed):
			return repository.Lead{}, apperr.New(apperr.KindConflict, "verification token already used").
				WithOp("leads.ConfirmVerification")
		case errors.Is(err, repository.ErrTokenExpired):
			return repository.Lead{}, apperr.New(apperr.KindGone, "verification token expired").
				WithOp("leads.ConfirmVerification")
		case errors.Is(err, repository.ErrAlreadyVerified):
			return repository.Lead{}, apperr.New(apperr.KindConflict, "lead already verified").
				WithOp("leads.ConfirmVerification")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to confirm verification", err)
	}

	s.bus.Publish(ctx, events.LeadVerified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
	})

	return lead, nil
}

// VerificationState is the derived state of a token for the status
// endpoint.
type VerificationState struct {
	State          string `json:"state"` // pending, used, expired
	LeadIsVerified bool   `json:"leadIsVerified"`
}

// InspectVerification reports token state without consuming it.
func (s *Service) InspectVerification(ctx context.Context, token string) (VerificationState, error) {
	status, err := s.store.GetVerificationStatus(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return VerificationState{}, apperr.New(apperr.KindNotFound, "invalid verification token").
				WithOp("leads.InspectVerification")
		}
		return VerificationState{}, apperr.Wrap(apperr.KindInternal, "failed to look up verification", err)
	}

	state := "pending"
	switch {
	case status.IsUsed:
		state = "used"
	case !status.ExpiresAt.After(s.now()):
		state = "expired"
	}

	return VerificationState{State: state, LeadIsVerified: status.LeadIsVerified}, nil
}

// SweepStats summarizes one expiration sweep run. Total is the overall
// quote count, expired or not.
type SweepStats struct {
	Expired    int `json:"expired"`
	NearExpiry int `json:"nearExpiry"`
	Total      int `json:"total"`
}

// SweepExpiredQuotes expires overdue quotes and emits events for them and
// for quotes entering the near-expiry window. Safe to run repeatedly.
func (s *Service) SweepExpiredQuotes(ctx context.Context) (SweepStats, error) {
	now := s.now()
	result, err := s.store.SweepExpiredQuotes(ctx, now, now.Add(s.cfg.GetNearExpiryWindow()))
	if err != nil {
		return SweepStats{}, apperr.Wrap(apperr.KindInternal, "failed to sweep quotes", err)
	}

	for _, quote := range result.Expired {
		s.bus.Publish(ctx, events.QuoteExpired{
			BaseEvent:  events.NewBaseEvent(),
			QuoteID:    quote.QuoteID,
			LeadID:     quote.LeadID,
			Email:      quote.Email,
			FinalQuote: quote.FinalQuote,
			ExpiredAt:  now,
		})
	}
	for _, quote := range result.NearExpiry {
		s.bus.Publish(ctx, events.QuoteNearExpiry{
			BaseEvent:  events.NewBaseEvent(),
			QuoteID:    quote.QuoteID,
			LeadID:     quote.LeadID,
			Email:      quote.Email,
			FinalQuote: quote.FinalQuote,
			ExpiresAt:  quote.ExpiresAt,
		})
	}

	return SweepStats{
		Expired:    len(result.Expired),
		NearExpiry: len(result.NearExpiry),
		Total:      result.Total,
	}, nil
}

// ComputeQuote prices a device without persisting anything.
func (s *Service) ComputeQuote(in pricing.Input) (pricing.Breakdown, error) {
	return s.engine.Compute(in)
}

// Devices returns the sellable catalog for quote forms.
func (s *Service) Devices() []pricing.DeviceEntry {
	return s.engine.Devices()
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
