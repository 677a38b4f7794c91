// Package email delivers transactional mail: funnel verification codes and
// password reset links.
package email

import (
	"context"

	"solar_crm_backend/platform/config"
	"solar_crm_backend/platform/logger"
)

// Sender delivers the two transactional messages the system produces.
type Sender interface {
	SendOTPEmail(ctx context.Context, toEmail, name, code string) error
	SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error
}

// NewSender returns an SMTP-backed sender, or a log-only sender when SMTP is
// not configured so local development works without a mail server.
func NewSender(cfg config.SMTPConfig, log *logger.Logger) Sender {
	if !cfg.IsEmailEnabled() {
		log.Warn("email delivery disabled, messages will only be logged")
		return &logSender{log: log}
	}
	return NewSMTPSender(cfg)
}

type logSender struct {
	log *logger.Logger
}

func (s *logSender) SendOTPEmail(_ context.Context, toEmail, name, code string) error {
	s.log.Info("otp email (not sent)", "to", toEmail, "name", name, "code", code)
	return nil
}

func (s *logSender) SendPasswordResetEmail(_ context.Context, toEmail, resetURL string) error {
	s.log.Info("password reset email (not sent)", "to", toEmail, "url", resetURL)
	return nil
}
