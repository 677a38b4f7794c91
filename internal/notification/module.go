// Package notification subscribes to domain events and fans them out to
// delivery channels: SSE frames for connected dashboards, email for funnel
// visitors and password resets. Domain modules publish events and never talk
// to a mail server or an HTTP stream directly.
package notification

import (
	"context"
	"fmt"

	"solar_crm_backend/internal/email"
	"solar_crm_backend/internal/events"
	apphttp "solar_crm_backend/internal/http"
	"solar_crm_backend/internal/notification/sse"
	"solar_crm_backend/platform/logger"
)

type Module struct {
	sse    *sse.Service
	sender email.Sender
	log    *logger.Logger
}

func New(sender email.Sender, log *logger.Logger) *Module {
	return &Module{
		sse:    sse.New(log),
		sender: sender,
		log:    log,
	}
}

// SSE exposes the broadcaster for modules that need direct access.
func (m *Module) SSE() *sse.Service { return m.sse }

// Close disconnects all SSE clients. Called on shutdown.
func (m *Module) Close() { m.sse.Close() }

func (m *Module) Name() string { return "notification" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events", m.sse.Handler())
}

// RegisterHandlers subscribes the module to the domain events it delivers.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadUpdated{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadUpdated)
		if !ok {
			return nil
		}
		m.sse.Broadcast(sse.Event{Type: sse.EventLeadUpdate, Data: e.Payload})
		return nil
	}))

	bus.Subscribe(events.LeadsBulkUpdated{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadsBulkUpdated)
		if !ok {
			return nil
		}
		m.sse.Broadcast(sse.Event{
			Type: sse.EventLeadUpdate,
			Data: map[string]string{"message": fmt.Sprintf("%d leads updated.", e.Count)},
		})
		return nil
	}))

	bus.Subscribe(events.LeadDeleted{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadDeleted)
		if !ok {
			return nil
		}
		m.sse.Broadcast(sse.Event{
			Type: sse.EventLeadDelete,
			Data: map[string]string{"id": e.LeadID.String()},
		})
		return nil
	}))

	bus.Subscribe(events.LeadImportCompleted{}.EventName(), events.HandlerFunc(func(_ context.Context, event events.Event) error {
		e, ok := event.(events.LeadImportCompleted)
		if !ok {
			return nil
		}
		m.sse.Broadcast(sse.Event{
			Type: sse.EventImportComplete,
			Data: map[string]interface{}{
				"jobId":        e.JobID.String(),
				"successCount": e.SuccessCount,
				"errorCount":   e.ErrorCount,
			},
		})
		return nil
	}))

	bus.Subscribe(events.LeadOTPRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadOTPRequested)
		if !ok {
			return nil
		}
		if err := m.sender.SendOTPEmail(ctx, e.Email, e.Name, e.Code); err != nil {
			m.log.Error("failed to send otp email", "leadId", e.LeadID, "error", err)
			return err
		}
		return nil
	}))

	bus.Subscribe(events.PasswordResetRequested{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.PasswordResetRequested)
		if !ok {
			return nil
		}
		if err := m.sender.SendPasswordResetEmail(ctx, e.Email, e.ResetURL); err != nil {
			m.log.Error("failed to send password reset email", "error", err)
			return err
		}
		return nil
	}))
}
