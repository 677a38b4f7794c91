package email

import (
	"context"
	"fmt"
	"html"
	"time"

	"solar_crm_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

const (
	subjectOTP           = "Your verification code"
	subjectPasswordReset = "Reset your password"
)

// SMTPSender delivers mail over a direct SMTP connection via go-mail.
type SMTPSender struct {
	cfg config.SMTPConfig
}

func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.cfg.GetEmailFromName(), s.cfg.GetEmailFromAddress()); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.cfg.GetSMTPHost(),
		gomail.WithPort(s.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.cfg.GetSMTPUsername()),
		gomail.WithPassword(s.cfg.GetSMTPPassword()),
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

func (s *SMTPSender) SendOTPEmail(ctx context.Context, toEmail, name, code string) error {
	greeting := "Hello"
	if name != "" {
		greeting = "Hello " + html.EscapeString(name)
	}
	body := fmt.Sprintf(
		`<p>%s,</p><p>Your verification code is:</p><p style="font-size:24px;font-weight:bold;letter-spacing:4px">%s</p><p>The code expires in 5 minutes.</p>`,
		greeting, html.EscapeString(code),
	)
	return s.send(ctx, toEmail, subjectOTP, body)
}

func (s *SMTPSender) SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error {
	body := fmt.Sprintf(
		`<p>Hello,</p><p>A password reset was requested for your account. Click the link below to choose a new password:</p><p><a href="%s">Reset password</a></p><p>If you did not request this, you can ignore this email.</p>`,
		html.EscapeString(resetURL),
	)
	return s.send(ctx, toEmail, subjectPasswordReset, body)
}
