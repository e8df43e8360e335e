package email

import (
	"context"
	"testing"
	"time"

	"buyback_backend/internal/events"
	"buyback_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingSender struct {
	verifications []string
	appointments  []string
	nearExpiries  []string
	lastVerifyURL string
}

func (s *recordingSender) SendVerificationEmail(_ context.Context, toEmail, _, verifyURL string, _ int64) error {
	s.verifications = append(s.verifications, toEmail)
	s.lastVerifyURL = verifyURL
	return nil
}

func (s *recordingSender) SendAppointmentEmail(_ context.Context, toEmail, _, _, _ string) error {
	s.appointments = append(s.appointments, toEmail)
	return nil
}

func (s *recordingSender) SendQuoteNearExpiryEmail(_ context.Context, toEmail string, _ int64, _ time.Time) error {
	s.nearExpiries = append(s.nearExpiries, toEmail)
	return nil
}

func TestSubscriberRoutesEvents(t *testing.T) {
	sender := &recordingSender{}
	sub := &Subscriber{sender: sender, appBaseURL: "https://example.com", log: logger.New("test")}

	bus := events.NewInMemoryBus(logger.New("test"))
	sub.Register(bus)

	ctx := context.Background()
	if err := bus.PublishSync(ctx, events.LeadCreated{
		BaseEvent:         events.NewBaseEvent(),
		LeadID:            uuid.New(),
		Email:             "seller@example.com",
		VerificationToken: "tok123",
		FinalQuote:        320,
	}); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}
	if err := bus.PublishSync(ctx, events.AppointmentScheduled{
		BaseEvent: events.NewBaseEvent(),
		Email:     "seller@example.com",
		SlotDate:  "2026-09-03",
		StartTime: "14:00",
	}); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}
	if err := bus.PublishSync(ctx, events.QuoteNearExpiry{
		BaseEvent: events.NewBaseEvent(),
		Email:     "seller@example.com",
		ExpiresAt: time.Now().Add(12 * time.Hour),
	}); err != nil {
		t.Fatalf("PublishSync() error = %v", err)
	}

	if len(sender.verifications) != 1 || len(sender.appointments) != 1 || len(sender.nearExpiries) != 1 {
		t.Fatalf("sent %d/%d/%d mails, want 1/1/1",
			len(sender.verifications), len(sender.appointments), len(sender.nearExpiries))
	}
	if sender.lastVerifyURL != "https://example.com/verify/tok123" {
		t.Fatalf("verify URL = %s", sender.lastVerifyURL)
	}
}
