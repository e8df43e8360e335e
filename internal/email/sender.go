// Package email delivers transactional mail driven by domain events:
// verification links, appointment confirmations and quote expiry notices.
package email

import (
	"context"
	"fmt"
	"time"

	"buyback_backend/platform/config"
	"buyback_backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers a single rendered message.
type Sender interface {
	SendVerificationEmail(ctx context.Context, toEmail, firstName, verifyURL string, quoteAmount int64) error
	SendAppointmentEmail(ctx context.Context, toEmail, date, startTime, sellMethod string) error
	SendQuoteNearExpiryEmail(ctx context.Context, toEmail string, quoteAmount int64, expiresAt time.Time) error
}

// SMTPSender delivers mail over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromEmail string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromEmail: cfg.GetEmailFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendVerificationEmail(ctx context.Context, toEmail, firstName, verifyURL string, quoteAmount int64) error {
	content, err := renderEmailTemplate("verification.html", verificationEmailData{
		baseEmailData: baseEmailData{
			Title:    "Confirm your email address",
			Heading:  "Confirm your email address",
			CTALabel: "Verify email",
			CTAURL:   verifyURL,
		},
		FirstName:   firstName,
		QuoteAmount: quoteAmount,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectVerification, content)
}

func (s *SMTPSender) SendAppointmentEmail(ctx context.Context, toEmail, date, startTime, sellMethod string) error {
	content, err := renderEmailTemplate("appointment.html", appointmentEmailData{
		baseEmailData: baseEmailData{
			Title:   "Your appointment is scheduled",
			Heading: "Your appointment is scheduled",
		},
		Date:       date,
		StartTime:  startTime,
		SellMethod: sellMethod,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectAppointment, content)
}

func (s *SMTPSender) SendQuoteNearExpiryEmail(ctx context.Context, toEmail string, quoteAmount int64, expiresAt time.Time) error {
	content, err := renderEmailTemplate("quote_near_expiry.html", quoteNearExpiryEmailData{
		baseEmailData: baseEmailData{
			Title:   "Your quote is about to expire",
			Heading: "Your quote is about to expire",
		},
		QuoteAmount: quoteAmount,
		ExpiresAt:   expiresAt.Format("January 2, 2006 15:04"),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuoteNearExpiry, content)
}

// NoopSender is used when email delivery is disabled; it logs instead of
// sending.
type NoopSender struct {
	log *logger.Logger
}

func NewNoopSender(log *logger.Logger) *NoopSender {
	return &NoopSender{log: log}
}

func (s *NoopSender) SendVerificationEmail(_ context.Context, toEmail, _, verifyURL string, _ int64) error {
	s.log.Info("email disabled, skipping verification mail", "to", toEmail, "url", verifyURL)
	return nil
}

func (s *NoopSender) SendAppointmentEmail(_ context.Context, toEmail, date, startTime, _ string) error {
	s.log.Info("email disabled, skipping appointment mail", "to", toEmail, "date", date, "startTime", startTime)
	return nil
}

func (s *NoopSender) SendQuoteNearExpiryEmail(_ context.Context, toEmail string, _ int64, _ time.Time) error {
	s.log.Info("email disabled, skipping near-expiry mail", "to", toEmail)
	return nil
}
