package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solar_crm_backend/internal/events"
	"solar_crm_backend/internal/leads/domain"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the persistence surface the service needs. *repository.Repository
// satisfies it; tests substitute a fake.
type Store interface {
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	GetDetail(ctx context.Context, id uuid.UUID) (repository.LeadDetail, error)
	List(ctx context.Context, filter repository.ListFilter) ([]repository.LeadListItem, error)
	Update(ctx context.Context, id uuid.UUID, fields repository.UpdateFields, activities []repository.ActivityParams) (repository.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddDocuments(ctx context.Context, id uuid.UUID, filenames []string, activities []repository.ActivityParams) error
	BulkSetStage(ctx context.Context, ids []uuid.UUID, stage string, vendorScope *uuid.UUID) (int64, error)
	BulkSetVendor(ctx context.Context, ids []uuid.UUID, vendorID *uuid.UUID, vendorScope *uuid.UUID) (int64, error)
	AppendActivities(ctx context.Context, ids []uuid.UUID, params repository.ActivityParams) error
	ListStats(ctx context.Context, vendorScope *uuid.UUID) ([]repository.LeadStat, error)
	VendorName(ctx context.Context, id uuid.UUID) (string, bool, error)
	FindVendorByDistrict(ctx context.Context, district string) (uuid.UUID, string, bool, error)
}

// CodeStore holds short-lived verification codes.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

// Actor identifies the authenticated caller of an admin operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}

const RoleVendor = "Vendor"

// scope returns the vendor filter enforced for Vendor callers and nil for
// Masters.
func (a Actor) scope() *uuid.UUID {
	if a.Role == RoleVendor {
		id := a.ID
		return &id
	}
	return nil
}

type Service struct {
	repo  Store
	bus   events.Bus
	codes CodeStore
	log   *logger.Logger
}

func New(repo Store, bus events.Bus, codes CodeStore, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, codes: codes, log: log}
}

// List returns leads visible to the actor. Masters may filter by vendor,
// state and district; Vendors always see only their own assignments.
func (s *Service) List(ctx context.Context, actor Actor, query transport.ListLeadsQuery) ([]transport.LeadResponse, error) {
	filter := repository.ListFilter{}
	if scope := actor.scope(); scope != nil {
		filter.VendorID = scope
	} else {
		if query.AssignedVendorID != "" && query.AssignedVendorID != "all" {
			vendorID, err := uuid.Parse(query.AssignedVendorID)
			if err != nil {
				return nil, apperr.BadRequest("invalid vendor id")
			}
			filter.VendorID = &vendorID
		}
		if query.State != "all" {
			filter.State = query.State
		}
		if query.District != "all" {
			filter.District = query.District
		}
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list leads", err)
	}

	responses := make([]transport.LeadResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toLeadResponse(item.Lead, item.AssignedVendorName))
	}
	return responses, nil
}

// Get returns the full lead detail. Vendors get 403 for foreign leads rather
// than 404, matching the admin UI contract.
func (s *Service) Get(ctx context.Context, actor Actor, id uuid.UUID) (transport.LeadDetailResponse, error) {
	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadDetailResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	if scope := actor.scope(); scope != nil {
		if detail.AssignedVendorID == nil || *detail.AssignedVendorID != *scope {
			return transport.LeadDetailResponse{}, apperr.Forbidden("access denied")
		}
	}
	return toLeadDetailResponse(detail), nil
}

// loadOwned fetches the lead and enforces the actor's vendor scope, the same
// check Get applies on the read path. Mutations must never reach a lead the
// caller cannot see.
func (s *Service) loadOwned(ctx context.Context, actor Actor, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}
	if scope := actor.scope(); scope != nil {
		if lead.AssignedVendorID == nil || *lead.AssignedVendorID != *scope {
			return repository.Lead{}, apperr.Forbidden("access denied")
		}
	}
	return lead, nil
}

// Update applies stage and assignment changes, appending one activity entry
// per changed field in the same transaction as the field writes.
func (s *Service) Update(ctx context.Context, actor Actor, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadDetailResponse, error) {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return transport.LeadDetailResponse{}, err
	}

	fields := repository.UpdateFields{}
	activities := make([]repository.ActivityParams, 0, 2)

	if req.PipelineStage != nil {
		token := domain.NormalizeStage(*req.PipelineStage)
		if !domain.IsKnownStage(token) {
			return transport.LeadDetailResponse{}, apperr.BadRequest(fmt.Sprintf("unknown pipeline stage %q", *req.PipelineStage))
		}
		fields.PipelineStage = &token
		activities = append(activities, repository.ActivityParams{
			Action:   fmt.Sprintf("Stage changed to %s", *req.PipelineStage),
			UserName: actor.Name,
		})
	}

	if req.AssignedVendorID.Set {
		vendorName := "Unassigned"
		if req.AssignedVendorID.Value != nil {
			name, ok, err := s.repo.VendorName(ctx, *req.AssignedVendorID.Value)
			if err != nil {
				return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to resolve vendor", err)
			}
			if !ok {
				return transport.LeadDetailResponse{}, apperr.BadRequest("assigned vendor does not exist")
			}
			vendorName = name
		}
		fields.SetVendor = true
		fields.VendorID = req.AssignedVendorID.Value
		activities = append(activities, repository.ActivityParams{
			Action:   fmt.Sprintf("Assigned to %s", vendorName),
			UserName: actor.Name,
		})
	}

	if len(activities) == 0 {
		return transport.LeadDetailResponse{}, apperr.BadRequest("nothing to update")
	}

	if _, err := s.repo.Update(ctx, id, fields, activities); err != nil {
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update lead", err)
	}

	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to reload lead", err)
	}

	response := toLeadDetailResponse(detail)
	s.bus.Publish(ctx, events.LeadUpdated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		Payload:   response,
	})
	return response, nil
}

// AddNote appends a note activity without touching any lead fields.
func (s *Service) AddNote(ctx context.Context, actor Actor, id uuid.UUID, req transport.AddNoteRequest) (transport.LeadDetailResponse, error) {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return transport.LeadDetailResponse{}, err
	}

	note := req.Note
	err := s.repo.AppendActivities(ctx, []uuid.UUID{id}, repository.ActivityParams{
		Action:   "Note Added",
		UserName: actor.Name,
		Notes:    &note,
	})
	if err != nil {
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to add note", err)
	}

	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to reload lead", err)
	}
	return toLeadDetailResponse(detail), nil
}

// AttachDocument records an uploaded document and its activity entry.
func (s *Service) AttachDocument(ctx context.Context, actor Actor, id uuid.UUID, storedName, originalName string) (transport.LeadDetailResponse, error) {
	if _, err := s.loadOwned(ctx, actor, id); err != nil {
		return transport.LeadDetailResponse{}, err
	}

	err := s.repo.AddDocuments(ctx, id, []string{storedName}, []repository.ActivityParams{{
		Action:   fmt.Sprintf("Document '%s' uploaded", originalName),
		UserName: actor.Name,
	}})
	if err != nil {
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to record document", err)
	}

	detail, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return transport.LeadDetailResponse{}, apperr.Wrap(apperr.KindInternal, "failed to reload lead", err)
	}
	return toLeadDetailResponse(detail), nil
}

// Delete removes a lead and broadcasts the deletion.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to delete lead", err)
	}
	s.bus.Publish(ctx, events.LeadDeleted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
	})
	return nil
}
