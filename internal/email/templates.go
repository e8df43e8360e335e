package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	subjectVerification    = "Confirm your email address"
	subjectAppointment     = "Your appointment is scheduled"
	subjectQuoteNearExpiry = "Your quote expires soon"
)

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type verificationEmailData struct {
	baseEmailData
	FirstName   string
	QuoteAmount int64
}

type appointmentEmailData struct {
	baseEmailData
	Date       string
	StartTime  string
	SellMethod string
}

type quoteNearExpiryEmailData struct {
	baseEmailData
	QuoteAmount int64
	ExpiresAt   string
}

func renderEmailTemplate(name string, data any) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
