package notification

import (
	"context"
	"testing"

	"solar_crm_backend/internal/events"
	"solar_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type recordingSender struct {
	otpTo    []string
	otpCodes []string
	resetTo  []string
}

func (r *recordingSender) SendOTPEmail(_ context.Context, toEmail, _, code string) error {
	r.otpTo = append(r.otpTo, toEmail)
	r.otpCodes = append(r.otpCodes, code)
	return nil
}

func (r *recordingSender) SendPasswordResetEmail(_ context.Context, toEmail, _ string) error {
	r.resetTo = append(r.resetTo, toEmail)
	return nil
}

func TestOTPRequestedSendsEmail(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	sender := &recordingSender{}
	module := New(sender, log)
	module.RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.LeadOTPRequested{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
		Name:      "Asha",
		Email:     "asha@example.com",
		Code:      "123456",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(sender.otpTo) != 1 || sender.otpTo[0] != "asha@example.com" {
		t.Fatalf("expected one otp email, got %+v", sender.otpTo)
	}
	if sender.otpCodes[0] != "123456" {
		t.Errorf("code = %q", sender.otpCodes[0])
	}
}

func TestPasswordResetRequestedSendsEmail(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	sender := &recordingSender{}
	module := New(sender, log)
	module.RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), events.PasswordResetRequested{
		BaseEvent: events.NewBaseEvent(),
		Email:     "admin@example.com",
		ResetURL:  "https://crm.example.com/reset?token=abc",
	})
	if err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	if len(sender.resetTo) != 1 || sender.resetTo[0] != "admin@example.com" {
		t.Fatalf("expected one reset email, got %+v", sender.resetTo)
	}
}
