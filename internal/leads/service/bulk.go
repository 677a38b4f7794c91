package service

import (
	"context"
	"fmt"

	"solar_crm_backend/internal/events"
	"solar_crm_backend/internal/leads/domain"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/apperr"

	"github.com/google/uuid"
)

// BulkAction applies one change to many leads at once. The field update is
// atomic and determines the outcome; the activity log append runs after the
// commit in its own failure boundary, so a logging failure never turns an
// applied update into a reported error.
func (s *Service) BulkAction(ctx context.Context, actor Actor, req transport.BulkActionRequest) (transport.BulkActionResponse, error) {
	scope := actor.scope()

	var updated int64
	var activityAction string

	switch req.Action {
	case transport.BulkActionChangeStage:
		token := domain.NormalizeStage(req.Value)
		if !domain.IsKnownStage(token) {
			return transport.BulkActionResponse{}, apperr.BadRequest(fmt.Sprintf("unknown pipeline stage %q", req.Value))
		}
		n, err := s.repo.BulkSetStage(ctx, req.LeadIDs, token, scope)
		if err != nil {
			return transport.BulkActionResponse{}, apperr.Wrap(apperr.KindInternal, "bulk stage update failed", err)
		}
		updated = n
		activityAction = fmt.Sprintf("Stage changed to %s via bulk update", req.Value)

	case transport.BulkActionAssignVendor:
		vendorID, vendorName, err := s.resolveBulkVendor(ctx, req.Value)
		if err != nil {
			return transport.BulkActionResponse{}, err
		}
		n, err := s.repo.BulkSetVendor(ctx, req.LeadIDs, vendorID, scope)
		if err != nil {
			return transport.BulkActionResponse{}, apperr.Wrap(apperr.KindInternal, "bulk vendor update failed", err)
		}
		updated = n
		activityAction = fmt.Sprintf("Assigned to %s via bulk update", vendorName)

	default:
		return transport.BulkActionResponse{}, apperr.BadRequest("invalid bulk action type")
	}

	if err := s.repo.AppendActivities(ctx, req.LeadIDs, repository.ActivityParams{
		Action:   activityAction,
		UserName: actor.Name,
	}); err != nil {
		s.log.Error("failed to create bulk activity logs (non-critical)", "error", err)
	}

	s.bus.Publish(ctx, events.LeadsBulkUpdated{
		BaseEvent: events.NewBaseEvent(),
		Count:     len(req.LeadIDs),
	})

	return transport.BulkActionResponse{
		Message:      "Bulk action successful.",
		UpdatedCount: updated,
	}, nil
}

func (s *Service) resolveBulkVendor(ctx context.Context, value string) (*uuid.UUID, string, error) {
	if value == "unassigned" {
		return nil, "Unassigned", nil
	}
	vendorID, err := uuid.Parse(value)
	if err != nil {
		return nil, "", apperr.BadRequest("invalid vendor id")
	}
	name, ok, err := s.repo.VendorName(ctx, vendorID)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInternal, "failed to resolve vendor", err)
	}
	if !ok {
		// The update still proceeds; the log line just loses the name.
		name = "..."
	}
	return &vendorID, name, nil
}
