// Package email delivers operational alert emails.
package email

import (
	"context"
	"fmt"

	"labor_pipeline_backend/platform/config"
)

// Alert is one operational email.
type Alert struct {
	To       string
	Subject  string
	Heading  string
	Severity string
	Body     string
	Facts    []Fact
	CTALabel string
	CTAURL   string
}

type Sender interface {
	SendAlert(ctx context.Context, alert Alert) error
}

// NoopSender drops every email. Used when EMAIL_ENABLED is false.
type NoopSender struct{}

func (NoopSender) SendAlert(context.Context, Alert) error { return nil }

func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}
	if cfg.GetSMTPHost() == "" {
		return nil, fmt.Errorf("SMTP_HOST is required when email is enabled")
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}

func renderAlert(a Alert) (string, error) {
	return renderEmailTemplate("alert.html", alertEmailData{
		Title:    a.Subject,
		Heading:  a.Heading,
		Severity: a.Severity,
		Body:     a.Body,
		Facts:    a.Facts,
		CTALabel: a.CTALabel,
		CTAURL:   a.CTAURL,
	})
}
