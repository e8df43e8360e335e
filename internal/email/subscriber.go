package email

import (
	"context"
	"fmt"

	"buyback_backend/internal/events"
	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"
)

// Subscriber reacts to domain events with outbound mail. Failures are
// logged by the bus and never affect the triggering operation.
type Subscriber struct {
	sender     Sender
	appBaseURL string
	log        *logger.Logger
}

func NewSubscriber(cfg config.EmailConfig, log *logger.Logger) *Subscriber {
	var sender Sender
	if cfg.GetEmailEnabled() {
		sender = NewSMTPSender(cfg)
	} else {
		sender = NewNoopSender(log)
	}
	return &Subscriber{sender: sender, appBaseURL: cfg.GetAppBaseURL(), log: log}
}

// Register subscribes the mail handlers on the event bus.
func (s *Subscriber) Register(bus events.Bus) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(s.onLeadCreated))
	bus.Subscribe(events.AppointmentScheduled{}.EventName(), events.HandlerFunc(s.onAppointmentScheduled))
	bus.Subscribe(events.QuoteNearExpiry{}.EventName(), events.HandlerFunc(s.onQuoteNearExpiry))
}

func (s *Subscriber) onLeadCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadCreated)
	if !ok {
		return nil
	}

	verifyURL := fmt.Sprintf("%s/verify/%s", s.appBaseURL, e.VerificationToken)
	return s.sender.SendVerificationEmail(ctx, e.Email, e.FirstName, verifyURL, e.FinalQuote)
}

func (s *Subscriber) onAppointmentScheduled(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AppointmentScheduled)
	if !ok {
		return nil
	}

	return s.sender.SendAppointmentEmail(ctx, e.Email, e.SlotDate, e.StartTime, e.SellMethod)
}

func (s *Subscriber) onQuoteNearExpiry(ctx context.Context, event events.Event) error {
	e, ok := event.(events.QuoteNearExpiry)
	if !ok {
		return nil
	}

	return s.sender.SendQuoteNearExpiryEmail(ctx, e.Email, e.FinalQuote, e.ExpiresAt)
}
