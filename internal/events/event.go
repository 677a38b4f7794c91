// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"solar_crm_backend/platform/events"
	"solar_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Lead Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline, whether from
// the public funnel or a CSV import.
type LeadCreated struct {
	BaseEvent
	LeadID           uuid.UUID  `json:"leadId"`
	ProductType      string     `json:"productType"`
	Source           string     `json:"source"`
	AssignedVendorID *uuid.UUID `json:"assignedVendorId,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadUpdated is published after a single-lead mutation (stage change,
// reassignment, note, OTP verification). Payload carries the full lead
// view-model so subscribers can forward it without another read.
type LeadUpdated struct {
	BaseEvent
	LeadID  uuid.UUID   `json:"leadId"`
	Payload interface{} `json:"payload"`
}

func (e LeadUpdated) EventName() string { return "leads.lead.updated" }

// LeadsBulkUpdated is published after a bulk action completes. It carries the
// affected count, not the individual lead payloads.
type LeadsBulkUpdated struct {
	BaseEvent
	Count int `json:"count"`
}

func (e LeadsBulkUpdated) EventName() string { return "leads.bulk.updated" }

// LeadDeleted is published when a lead is hard-deleted.
type LeadDeleted struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e LeadDeleted) EventName() string { return "leads.lead.deleted" }

// LeadImportCompleted is published when a CSV import job finishes.
type LeadImportCompleted struct {
	BaseEvent
	JobID        uuid.UUID `json:"jobId"`
	SuccessCount int       `json:"successCount"`
	ErrorCount   int       `json:"errorCount"`
}

func (e LeadImportCompleted) EventName() string { return "leads.import.completed" }

// LeadOTPRequested is published when a funnel visitor submits contact info and
// a verification code must be delivered.
type LeadOTPRequested struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Code   string    `json:"code"`
}

func (e LeadOTPRequested) EventName() string { return "leads.otp.requested" }

// =============================================================================
// User Events
// =============================================================================

// PasswordResetRequested is published when a user requests a password reset.
type PasswordResetRequested struct {
	BaseEvent
	Email    string `json:"email"`
	ResetURL string `json:"resetUrl"`
}

func (e PasswordResetRequested) EventName() string { return "users.password.reset_requested" }
