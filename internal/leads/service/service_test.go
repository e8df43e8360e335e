package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"buyback_backend/internal/events"
	"buyback_backend/internal/leads/repository"
	"buyback_backend/internal/pricing"
	"buyback_backend/internal/routing"
	"buyback_backend/platform/apperr"
	"buyback_backend/platform/logger"

	"github.com/google/uuid"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeStore struct {
	emailExists  bool
	blacklisted  bool
	createErr    error
	created      *repository.CreateLeadParams
	consumeErr   error
	consumeLead  repository.Lead
	status       repository.VerificationStatus
	statusErr    error
	sweepResults []repository.SweepResult
	sweepCalls   int
}

func (f *fakeStore) FindOrCreateDevice(_ context.Context, model, storage string) (repository.Device, error) {
	return repository.Device{ID: uuid.New(), Model: model, Storage: storage}, nil
}

func (f *fakeStore) EmailExists(context.Context, string) (bool, error) {
	return f.emailExists, nil
}

func (f *fakeStore) IsBlacklisted(context.Context, string, string) (bool, error) {
	return f.blacklisted, nil
}

func (f *fakeStore) CreateLead(_ context.Context, params repository.CreateLeadParams) (repository.CreatedLead, error) {
	if f.createErr != nil {
		return repository.CreatedLead{}, f.createErr
	}
	f.created = &params
	return repository.CreatedLead{
		LeadID:            uuid.New(),
		QuoteID:           uuid.New(),
		VerificationToken: params.VerificationToken,
	}, nil
}

func (f *fakeStore) GetLeadByID(context.Context, uuid.UUID) (repository.Lead, error) {
	return repository.Lead{}, repository.ErrNotFound
}

func (f *fakeStore) GetVerificationStatus(context.Context, string) (repository.VerificationStatus, error) {
	return f.status, f.statusErr
}

func (f *fakeStore) ConsumeVerification(context.Context, string, time.Time) (repository.Lead, error) {
	if f.consumeErr != nil {
		return repository.Lead{}, f.consumeErr
	}
	return f.consumeLead, nil
}

func (f *fakeStore) SweepExpiredQuotes(context.Context, time.Time, time.Time) (repository.SweepResult, error) {
	result := repository.SweepResult{}
	if f.sweepCalls < len(f.sweepResults) {
		result = f.sweepResults[f.sweepCalls]
	}
	f.sweepCalls++
	return result, nil
}

type fakeResolver struct {
	resolution routing.Resolution
	err        error
	calls      int
}

func (f *fakeResolver) Resolve(context.Context, string) (routing.Resolution, error) {
	f.calls++
	return f.resolution, f.err
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(context.Context, events.Event) error { return nil }
func (b *recordingBus) Subscribe(string, events.Handler)                {}

type lifecycleCfg struct{}

func (lifecycleCfg) GetQuoteValidity() time.Duration        { return 168 * time.Hour }
func (lifecycleCfg) GetVerificationTokenTTL() time.Duration { return 15 * time.Minute }
func (lifecycleCfg) GetNearExpiryWindow() time.Duration     { return 24 * time.Hour }

// ── Helpers ───────────────────────────────────────────────────────────────────

func newTestService(store *fakeStore, resolver *fakeResolver, bus *recordingBus) *Service {
	cat := &pricing.Catalog{
		Devices: []pricing.DeviceEntry{
			{Model: "iPhone 13", Family: "iPhone 13", Storages: map[string]int64{"128GB": 600}},
		},
		DamageCosts:        map[string]int64{"cracked_screen": 80},
		AccessoryDeduction: 20,
		MarginRate:         0.30,
		Floor:              50,
		LockTiers:          pricing.LockTiers{Base: 50, Pro: 75, ProMax: 100},
		PickupFeeTiers:     []pricing.FeeTier{{MaxDistanceKm: 60, Fee: 10}},
	}
	engine := pricing.NewEngine(cat, 5)
	return New(store, engine, resolver, bus, lifecycleCfg{}, logger.New("test"))
}

func validInput() CreateLeadInput {
	return CreateLeadInput{
		Email:               "seller@example.com",
		FirstName:           "Ada",
		LastName:            "Lovelace",
		Phone:               "+12125550123",
		Address:             "350 5th Ave, New York",
		SellMethod:          repository.SellMethodDropoff,
		Model:               "iPhone 13",
		Storage:             "128GB",
		Damages:             []string{"cracked_screen"},
		HasBox:              true,
		HasCharger:          true,
		SubmittedFinalQuote: 340,
	}
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestCreateLeadDropoff(t *testing.T) {
	store := &fakeStore{}
	resolver := &fakeResolver{}
	bus := &recordingBus{}
	svc := newTestService(store, resolver, bus)

	result, err := svc.CreateLead(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateLead() error = %v", err)
	}
	if result.Breakdown.FinalQuote != 340 {
		t.Fatalf("FinalQuote = %d, want 340", result.Breakdown.FinalQuote)
	}
	if resolver.calls != 0 {
		t.Fatal("dropoff must not resolve an address")
	}
	if store.created == nil {
		t.Fatal("expected lead to be persisted")
	}
	if store.created.VerificationToken == "" {
		t.Fatal("expected a verification token")
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.LeadCreated); !ok {
		t.Fatalf("published %T, want LeadCreated", bus.published[0])
	}
}

func TestCreateLeadPickupResolvesAddress(t *testing.T) {
	store := &fakeStore{}
	resolver := &fakeResolver{resolution: routing.Resolution{DistanceKm: 12, PickupFee: 10, IsEligible: true}}
	svc := newTestService(store, resolver, &recordingBus{})

	in := validInput()
	in.SellMethod = repository.SellMethodPickup

	result, err := svc.CreateLead(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateLead() error = %v", err)
	}
	if resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", resolver.calls)
	}
	if result.PickupFee == nil || *result.PickupFee != 10 {
		t.Fatalf("PickupFee = %v, want 10", result.PickupFee)
	}
	if result.DistanceKm == nil || *result.DistanceKm != 12 {
		t.Fatalf("DistanceKm = %v, want 12", result.DistanceKm)
	}
}

func TestCreateLeadPickupIneligible(t *testing.T) {
	resolver := &fakeResolver{resolution: routing.Resolution{DistanceKm: 75, IsEligible: false}}
	svc := newTestService(&fakeStore{}, resolver, &recordingBus{})

	in := validInput()
	in.SellMethod = repository.SellMethodPickup

	_, err := svc.CreateLead(context.Background(), in)
	if err == nil {
		t.Fatal("expected error for ineligible address")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", apperr.GetKind(err))
	}
}

func TestCreateLeadDuplicateEmail(t *testing.T) {
	svc := newTestService(&fakeStore{emailExists: true}, &fakeResolver{}, &recordingBus{})

	_, err := svc.CreateLead(context.Background(), validInput())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want KindConflict", apperr.GetKind(err))
	}
}

func TestCreateLeadDuplicateEmailRace(t *testing.T) {
	// The pre-check passed but the insert lost a race to a concurrent
	// submission with the same email.
	store := &fakeStore{createErr: repository.ErrDuplicateEmail}
	svc := newTestService(store, &fakeResolver{}, &recordingBus{})

	_, err := svc.CreateLead(context.Background(), validInput())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want KindConflict", apperr.GetKind(err))
	}
}

func TestCreateLeadBlacklistedIsVague(t *testing.T) {
	svc := newTestService(&fakeStore{blacklisted: true}, &fakeResolver{}, &recordingBus{})

	_, err := svc.CreateLead(context.Background(), validInput())
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want KindConflict", apperr.GetKind(err))
	}

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperr.Error, got %T", err)
	}
	// The message must not reveal that the contact details are blocklisted.
	if appErr.Message != "unable to create lead" {
		t.Fatalf("message = %q leaks the rejection cause", appErr.Message)
	}
}

func TestCreateLeadQuoteIntegrity(t *testing.T) {
	store := &fakeStore{}
	bus := &recordingBus{}
	svc := newTestService(store, &fakeResolver{}, bus)

	in := validInput()
	in.SubmittedFinalQuote = 500 // computed is 340, well past tolerance

	_, err := svc.CreateLead(context.Background(), in)
	if err == nil {
		t.Fatal("expected integrity error")
	}
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want KindValidation", apperr.GetKind(err))
	}
	if store.created != nil {
		t.Fatal("a mismatched quote must not create a lead")
	}
	if len(bus.published) != 0 {
		t.Fatal("a mismatched quote must not publish events")
	}
}

func TestCreateLeadInvalidPhone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
	}{
		{"garbage", "not a phone"},
		{"too short", "+1 23"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := newTestService(store, &fakeResolver{}, &recordingBus{})

			in := validInput()
			in.Phone = tt.phone

			_, err := svc.CreateLead(context.Background(), in)
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Fatalf("kind = %v, want KindValidation", apperr.GetKind(err))
			}
			if store.created != nil {
				t.Fatal("an invalid phone must not create a lead")
			}
		})
	}
}

func TestConfirmVerificationErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		wantKind apperr.Kind
	}{
		{"unknown token", repository.ErrTokenNotFound, apperr.KindNotFound},
		{"already used", repository.ErrTokenUsed, apperr.KindConflict},
		{"expired", repository.ErrTokenExpired, apperr.KindGone},
		{"lead already verified", repository.ErrAlreadyVerified, apperr.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeStore{consumeErr: tt.storeErr}, &fakeResolver{}, &recordingBus{})
			_, err := svc.ConfirmVerification(context.Background(), "sometoken")
			if apperr.GetKind(err) != tt.wantKind {
				t.Fatalf("kind = %v, want %v", apperr.GetKind(err), tt.wantKind)
			}
		})
	}
}

func TestConfirmVerificationPublishesEvent(t *testing.T) {
	lead := repository.Lead{ID: uuid.New(), Email: "seller@example.com", IsVerified: true}
	bus := &recordingBus{}
	svc := newTestService(&fakeStore{consumeLead: lead}, &fakeResolver{}, bus)

	got, err := svc.ConfirmVerification(context.Background(), "sometoken")
	if err != nil {
		t.Fatalf("ConfirmVerification() error = %v", err)
	}
	if !got.IsVerified {
		t.Fatal("expected returned lead to be verified")
	}
	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.LeadVerified); !ok {
		t.Fatalf("published %T, want LeadVerified", bus.published[0])
	}
}

func TestInspectVerificationStates(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		status repository.VerificationStatus
		want   string
	}{
		{"pending", repository.VerificationStatus{ExpiresAt: now.Add(10 * time.Minute)}, "pending"},
		{"used", repository.VerificationStatus{IsUsed: true, ExpiresAt: now.Add(10 * time.Minute)}, "used"},
		{"expired", repository.VerificationStatus{ExpiresAt: now.Add(-time.Minute)}, "expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeStore{status: tt.status}, &fakeResolver{}, &recordingBus{})
			state, err := svc.InspectVerification(context.Background(), "sometoken")
			if err != nil {
				t.Fatalf("InspectVerification() error = %v", err)
			}
			if state.State != tt.want {
				t.Fatalf("state = %q, want %q", state.State, tt.want)
			}
		})
	}
}

func TestSweepExpiredQuotesIdempotent(t *testing.T) {
	expiring := repository.ExpiringQuote{
		QuoteID: uuid.New(), LeadID: uuid.New(), Email: "seller@example.com",
		FinalQuote: 340, ExpiresAt: time.Now(),
	}
	store := &fakeStore{sweepResults: []repository.SweepResult{
		{Expired: []repository.ExpiringQuote{expiring}, Total: 3},
		{Total: 3}, // nothing newly expired on the second run
	}}
	bus := &recordingBus{}
	svc := newTestService(store, &fakeResolver{}, bus)

	first, err := svc.SweepExpiredQuotes(context.Background())
	if err != nil {
		t.Fatalf("SweepExpiredQuotes() error = %v", err)
	}
	if first.Expired != 1 {
		t.Fatalf("first sweep expired = %d, want 1", first.Expired)
	}
	if first.Total != 3 {
		t.Fatalf("first sweep total = %d, want 3", first.Total)
	}

	second, err := svc.SweepExpiredQuotes(context.Background())
	if err != nil {
		t.Fatalf("SweepExpiredQuotes() error = %v", err)
	}
	if second.Expired != 0 {
		t.Fatalf("second sweep expired = %d, want 0", second.Expired)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published %d events, want 1", len(bus.published))
	}
	if _, ok := bus.published[0].(events.QuoteExpired); !ok {
		t.Fatalf("published %T, want QuoteExpired", bus.published[0])
	}
}
