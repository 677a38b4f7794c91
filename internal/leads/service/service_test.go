package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"solar_crm_backend/internal/events"
	"solar_crm_backend/internal/leads/domain"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store. Individual methods can be forced to fail
// via the err* fields.
type fakeStore struct {
	leads      map[uuid.UUID]repository.Lead
	activities map[uuid.UUID][]repository.ActivityParams
	vendors    map[uuid.UUID]string

	errAppendActivities error

	bulkStageCalls  []bulkStageCall
	bulkVendorCalls []bulkVendorCall
}

type bulkStageCall struct {
	ids   []uuid.UUID
	stage string
	scope *uuid.UUID
}

type bulkVendorCall struct {
	ids      []uuid.UUID
	vendorID *uuid.UUID
	scope    *uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		leads:      map[uuid.UUID]repository.Lead{},
		activities: map[uuid.UUID][]repository.ActivityParams{},
		vendors:    map[uuid.UUID]string{},
	}
}

func (f *fakeStore) addLead(lead repository.Lead) repository.Lead {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CustomFields == nil {
		lead.CustomFields = map[string]string{}
	}
	if lead.PipelineStage == "" {
		lead.PipelineStage = domain.StageNewLead
	}
	f.leads[lead.ID] = lead
	return lead
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateLeadParams) (repository.Lead, error) {
	lead := f.addLead(repository.Lead{
		ProductType:      params.ProductType,
		Name:             params.Name,
		Email:            params.Email,
		Phone:            params.Phone,
		CustomFields:     params.CustomFields,
		PipelineStage:    params.PipelineStage,
		Source:           params.Source,
		Score:            params.Score,
		ScoreStatus:      params.ScoreStatus,
		AssignedVendorID: params.AssignedVendorID,
		CreatedAt:        time.Now(),
	})
	f.activities[lead.ID] = append(f.activities[lead.ID], params.Activities...)
	return lead, nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (f *fakeStore) GetDetail(_ context.Context, id uuid.UUID) (repository.LeadDetail, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.LeadDetail{}, repository.ErrNotFound
	}
	detail := repository.LeadDetail{Lead: lead}
	if lead.AssignedVendorID != nil {
		if name, ok := f.vendors[*lead.AssignedVendorID]; ok {
			detail.AssignedVendorName = &name
		}
	}
	for _, a := range f.activities[id] {
		detail.Activities = append(detail.Activities, repository.Activity{
			LeadID:   id,
			Action:   a.Action,
			UserName: a.UserName,
			Notes:    a.Notes,
		})
	}
	return detail, nil
}

func (f *fakeStore) List(_ context.Context, filter repository.ListFilter) ([]repository.LeadListItem, error) {
	items := make([]repository.LeadListItem, 0)
	for _, lead := range f.leads {
		if filter.VendorID != nil {
			if lead.AssignedVendorID == nil || *lead.AssignedVendorID != *filter.VendorID {
				continue
			}
		}
		if filter.State != "" && lead.CustomFields["state"] != filter.State {
			continue
		}
		if filter.District != "" && lead.CustomFields["district"] != filter.District {
			continue
		}
		items = append(items, repository.LeadListItem{Lead: lead})
	}
	return items, nil
}

func (f *fakeStore) Update(_ context.Context, id uuid.UUID, fields repository.UpdateFields, activities []repository.ActivityParams) (repository.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if fields.PipelineStage != nil {
		lead.PipelineStage = *fields.PipelineStage
	}
	if fields.SetVendor {
		lead.AssignedVendorID = fields.VendorID
	}
	if fields.Name != nil {
		lead.Name = *fields.Name
	}
	if fields.Email != nil {
		lead.Email = *fields.Email
	}
	if fields.Phone != nil {
		lead.Phone = *fields.Phone
	}
	if fields.OTPVerified != nil {
		lead.OTPVerified = *fields.OTPVerified
	}
	if fields.CustomFields != nil {
		lead.CustomFields = fields.CustomFields
	}
	if fields.Score != nil {
		lead.Score = *fields.Score
	}
	if fields.ScoreStatus != nil {
		lead.ScoreStatus = *fields.ScoreStatus
	}
	f.leads[id] = lead
	f.activities[id] = append(f.activities[id], activities...)
	return lead, nil
}

func (f *fakeStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.leads[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.leads, id)
	delete(f.activities, id)
	return nil
}

func (f *fakeStore) AddDocuments(_ context.Context, id uuid.UUID, _ []string, activities []repository.ActivityParams) error {
	f.activities[id] = append(f.activities[id], activities...)
	return nil
}

func (f *fakeStore) BulkSetStage(_ context.Context, ids []uuid.UUID, stage string, scope *uuid.UUID) (int64, error) {
	f.bulkStageCalls = append(f.bulkStageCalls, bulkStageCall{ids: ids, stage: stage, scope: scope})
	var n int64
	for _, id := range ids {
		lead, ok := f.leads[id]
		if !ok {
			continue
		}
		if scope != nil && (lead.AssignedVendorID == nil || *lead.AssignedVendorID != *scope) {
			continue
		}
		lead.PipelineStage = stage
		f.leads[id] = lead
		n++
	}
	return n, nil
}

func (f *fakeStore) BulkSetVendor(_ context.Context, ids []uuid.UUID, vendorID *uuid.UUID, scope *uuid.UUID) (int64, error) {
	f.bulkVendorCalls = append(f.bulkVendorCalls, bulkVendorCall{ids: ids, vendorID: vendorID, scope: scope})
	var n int64
	for _, id := range ids {
		lead, ok := f.leads[id]
		if !ok {
			continue
		}
		if scope != nil && (lead.AssignedVendorID == nil || *lead.AssignedVendorID != *scope) {
			continue
		}
		lead.AssignedVendorID = vendorID
		f.leads[id] = lead
		n++
	}
	return n, nil
}

func (f *fakeStore) AppendActivities(_ context.Context, ids []uuid.UUID, params repository.ActivityParams) error {
	if f.errAppendActivities != nil {
		return f.errAppendActivities
	}
	for _, id := range ids {
		f.activities[id] = append(f.activities[id], params)
	}
	return nil
}

func (f *fakeStore) ListStats(_ context.Context, scope *uuid.UUID) ([]repository.LeadStat, error) {
	stats := make([]repository.LeadStat, 0)
	for _, lead := range f.leads {
		if scope != nil {
			if lead.AssignedVendorID == nil || *lead.AssignedVendorID != *scope {
				continue
			}
		}
		stats = append(stats, repository.LeadStat{
			CreatedAt:     lead.CreatedAt,
			PipelineStage: lead.PipelineStage,
			Source:        lead.Source,
			OTPVerified:   lead.OTPVerified,
			Score:         lead.Score,
		})
	}
	return stats, nil
}

func (f *fakeStore) VendorName(_ context.Context, id uuid.UUID) (string, bool, error) {
	name, ok := f.vendors[id]
	return name, ok, nil
}

// District matching lives in repository SQL; the fake never auto-assigns.
func (f *fakeStore) FindVendorByDistrict(context.Context, string) (uuid.UUID, string, bool, error) {
	return uuid.Nil, "", false, nil
}

// fakeCodes is an in-memory CodeStore.
type fakeCodes struct {
	values map[string]string
}

func newFakeCodes() *fakeCodes {
	return &fakeCodes{values: map[string]string{}}
}

func (f *fakeCodes) Set(_ context.Context, key, value string, _ time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCodes) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCodes) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func newTestService(store *fakeStore) (*Service, *fakeCodes) {
	codes := newFakeCodes()
	log := logger.New("development")
	return New(store, events.NewInMemoryBus(log), codes, log), codes
}

func master() Actor {
	return Actor{ID: uuid.New(), Name: "Admin", Role: "Master"}
}

func strPtr(s string) *string { return &s }

func TestUpdateAppendsOneActivityPerChangedField(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	store.vendors[vendorID] = "SunWorks"
	lead := store.addLead(repository.Lead{ProductType: "rooftop"})

	svc, _ := newTestService(store)

	resp, err := svc.Update(context.Background(), master(), lead.ID, transport.UpdateLeadRequest{
		PipelineStage:    strPtr("Qualified (Vetting)"),
		AssignedVendorID: transport.OptionalUUID{Set: true, Value: &vendorID},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	acts := store.activities[lead.ID]
	if len(acts) != 2 {
		t.Fatalf("expected 2 activity entries, got %d", len(acts))
	}
	if acts[0].Action != "Stage changed to Qualified (Vetting)" {
		t.Errorf("unexpected stage activity %q", acts[0].Action)
	}
	if acts[1].Action != "Assigned to SunWorks" {
		t.Errorf("unexpected assignment activity %q", acts[1].Action)
	}
	if store.leads[lead.ID].PipelineStage != domain.StageQualified {
		t.Errorf("stage not normalized, got %q", store.leads[lead.ID].PipelineStage)
	}
	if resp.PipelineStage != "Qualified (Vetting)" {
		t.Errorf("response stage not denormalized, got %q", resp.PipelineStage)
	}
	if resp.AssignedVendorName != "SunWorks" {
		t.Errorf("expected vendor name in response, got %q", resp.AssignedVendorName)
	}
}

func TestUpdateUnassignLogsUnassigned(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	store.vendors[vendorID] = "SunWorks"
	lead := store.addLead(repository.Lead{AssignedVendorID: &vendorID})

	svc, _ := newTestService(store)

	_, err := svc.Update(context.Background(), master(), lead.ID, transport.UpdateLeadRequest{
		AssignedVendorID: transport.OptionalUUID{Set: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	acts := store.activities[lead.ID]
	if len(acts) != 1 || acts[0].Action != "Assigned to Unassigned" {
		t.Fatalf("expected single unassignment activity, got %+v", acts)
	}
	if store.leads[lead.ID].AssignedVendorID != nil {
		t.Error("vendor not cleared")
	}
}

func TestUpdateRejectsUnknownStage(t *testing.T) {
	store := newFakeStore()
	lead := store.addLead(repository.Lead{})
	svc, _ := newTestService(store)

	_, err := svc.Update(context.Background(), master(), lead.ID, transport.UpdateLeadRequest{
		PipelineStage: strPtr("Archived"),
	})
	if apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("expected bad request, got %v", err)
	}
	if len(store.activities[lead.ID]) != 0 {
		t.Error("rejected update must not log activity")
	}
}

func TestActivityLogIsAppendOnlyAcrossUpdates(t *testing.T) {
	store := newFakeStore()
	lead := store.addLead(repository.Lead{})
	svc, _ := newTestService(store)
	actor := master()

	stages := []string{"Verified Lead", "Qualified (Vetting)", "Proposal Sent", "Closed Won / Project"}
	for _, stage := range stages {
		if _, err := svc.Update(context.Background(), actor, lead.ID, transport.UpdateLeadRequest{
			PipelineStage: strPtr(stage),
		}); err != nil {
			t.Fatalf("Update(%q): %v", stage, err)
		}
	}

	acts := store.activities[lead.ID]
	if len(acts) != len(stages) {
		t.Fatalf("expected %d activity entries, got %d", len(stages), len(acts))
	}
	for i, stage := range stages {
		want := "Stage changed to " + stage
		if acts[i].Action != want {
			t.Errorf("entry %d: got %q, want %q", i, acts[i].Action, want)
		}
	}
}

func TestGetForbiddenForForeignVendor(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	lead := store.addLead(repository.Lead{AssignedVendorID: &owner})
	svc, _ := newTestService(store)

	intruder := Actor{ID: uuid.New(), Name: "Other", Role: RoleVendor}
	if _, err := svc.Get(context.Background(), intruder, lead.ID); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	ownerActor := Actor{ID: owner, Name: "Owner", Role: RoleVendor}
	if _, err := svc.Get(context.Background(), ownerActor, lead.ID); err != nil {
		t.Fatalf("owner should see own lead: %v", err)
	}
}

func TestUpdateForbiddenForForeignVendor(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	lead := store.addLead(repository.Lead{AssignedVendorID: &owner})
	svc, _ := newTestService(store)

	intruder := Actor{ID: uuid.New(), Name: "Other", Role: RoleVendor}
	_, err := svc.Update(context.Background(), intruder, lead.ID, transport.UpdateLeadRequest{
		PipelineStage: strPtr("Closed Won / Project"),
	})
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if store.leads[lead.ID].PipelineStage != domain.StageNewLead {
		t.Errorf("foreign vendor changed the stage to %q", store.leads[lead.ID].PipelineStage)
	}
	if len(store.activities[lead.ID]) != 0 {
		t.Error("rejected update must not log activity")
	}

	ownerActor := Actor{ID: owner, Name: "Owner", Role: RoleVendor}
	if _, err := svc.Update(context.Background(), ownerActor, lead.ID, transport.UpdateLeadRequest{
		PipelineStage: strPtr("Verified Lead"),
	}); err != nil {
		t.Fatalf("owner should update own lead: %v", err)
	}
}

func TestAddNoteForbiddenForForeignVendor(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	lead := store.addLead(repository.Lead{AssignedVendorID: &owner})
	svc, _ := newTestService(store)

	intruder := Actor{ID: uuid.New(), Name: "Other", Role: RoleVendor}
	_, err := svc.AddNote(context.Background(), intruder, lead.ID, transport.AddNoteRequest{Note: "mine now"})
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(store.activities[lead.ID]) != 0 {
		t.Error("foreign vendor left a note")
	}
}

func TestAttachDocumentForbiddenForForeignVendor(t *testing.T) {
	store := newFakeStore()
	owner := uuid.New()
	lead := store.addLead(repository.Lead{AssignedVendorID: &owner})
	svc, _ := newTestService(store)

	intruder := Actor{ID: uuid.New(), Name: "Other", Role: RoleVendor}
	_, err := svc.AttachDocument(context.Background(), intruder, lead.ID, "abc.pdf", "quote.pdf")
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(store.activities[lead.ID]) != 0 {
		t.Error("foreign vendor attached a document")
	}
}

func TestListForcesVendorScope(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	other := uuid.New()
	store.addLead(repository.Lead{AssignedVendorID: &vendorID})
	store.addLead(repository.Lead{AssignedVendorID: &other})
	store.addLead(repository.Lead{})
	svc, _ := newTestService(store)

	vendor := Actor{ID: vendorID, Name: "V", Role: RoleVendor}
	// A vendor asking for someone else's leads still gets their own.
	items, err := svc.List(context.Background(), vendor, transport.ListLeadsQuery{AssignedVendorID: other.String()})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 lead in vendor scope, got %d", len(items))
	}

	all, err := svc.List(context.Background(), master(), transport.ListLeadsQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("master should see all 3 leads, got %d", len(all))
	}
}

func TestBulkActionSurvivesActivityLogFailure(t *testing.T) {
	store := newFakeStore()
	store.errAppendActivities = errors.New("activities table on fire")
	a := store.addLead(repository.Lead{})
	b := store.addLead(repository.Lead{})
	svc, _ := newTestService(store)

	resp, err := svc.BulkAction(context.Background(), master(), transport.BulkActionRequest{
		Action:  transport.BulkActionChangeStage,
		Value:   "Negotiation/Finance",
		LeadIDs: []uuid.UUID{a.ID, b.ID},
	})
	if err != nil {
		t.Fatalf("primary update succeeded, bulk action must not fail: %v", err)
	}
	if resp.UpdatedCount != 2 {
		t.Errorf("expected 2 updated, got %d", resp.UpdatedCount)
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		if store.leads[id].PipelineStage != domain.StageNegotiation {
			t.Errorf("lead %s stage not updated", id)
		}
		if len(store.activities[id]) != 0 {
			t.Errorf("lead %s unexpectedly has activity entries", id)
		}
	}
}

func TestBulkActionScopesVendorInPrimaryUpdate(t *testing.T) {
	store := newFakeStore()
	vendorID := uuid.New()
	mine := store.addLead(repository.Lead{AssignedVendorID: &vendorID})
	foreign := store.addLead(repository.Lead{})
	svc, _ := newTestService(store)

	vendor := Actor{ID: vendorID, Name: "V", Role: RoleVendor}
	resp, err := svc.BulkAction(context.Background(), vendor, transport.BulkActionRequest{
		Action:  transport.BulkActionChangeStage,
		Value:   "Qualified (Vetting)",
		LeadIDs: []uuid.UUID{mine.ID, foreign.ID},
	})
	if err != nil {
		t.Fatalf("BulkAction: %v", err)
	}
	if resp.UpdatedCount != 1 {
		t.Errorf("expected only own lead updated, got %d", resp.UpdatedCount)
	}
	if store.leads[foreign.ID].PipelineStage != domain.StageNewLead {
		t.Error("foreign lead must not be touched")
	}
	if len(store.bulkStageCalls) != 1 || store.bulkStageCalls[0].scope == nil {
		t.Fatal("vendor scope must reach the primary update")
	}
}

func TestBulkAssignUnknownVendorUsesPlaceholderName(t *testing.T) {
	store := newFakeStore()
	lead := store.addLead(repository.Lead{})
	svc, _ := newTestService(store)

	ghost := uuid.New()
	if _, err := svc.BulkAction(context.Background(), master(), transport.BulkActionRequest{
		Action:  transport.BulkActionAssignVendor,
		Value:   ghost.String(),
		LeadIDs: []uuid.UUID{lead.ID},
	}); err != nil {
		t.Fatalf("BulkAction: %v", err)
	}

	acts := store.activities[lead.ID]
	if len(acts) != 1 || !strings.Contains(acts[0].Action, "Assigned to ... via bulk update") {
		t.Fatalf("expected placeholder vendor name in activity, got %+v", acts)
	}
}

func TestSendAndVerifyOTP(t *testing.T) {
	store := newFakeStore()
	lead := store.addLead(repository.Lead{
		ProductType:  "rooftop",
		CustomFields: map[string]string{"bill": "6000", "propertyStatus": "Homeowner"},
	})
	svc, codes := newTestService(store)
	ctx := context.Background()

	if err := svc.SendOTP(ctx, lead.ID, transport.SendOTPRequest{
		Name:  "Asha",
		Email: "asha@example.com",
		Phone: "9876543210",
	}); err != nil {
		t.Fatalf("SendOTP: %v", err)
	}

	code, ok := codes.values[otpKey(lead.ID)]
	if !ok || len(code) != 6 {
		t.Fatalf("expected 6-digit code in store, got %q", code)
	}

	if _, err := svc.VerifyOTP(ctx, lead.ID, transport.VerifyOTPRequest{OTP: "000000"}); apperr.GetKind(err) != apperr.KindBadRequest {
		if code == "000000" {
			t.Skip("collided with the generated code")
		}
		t.Fatalf("wrong code must be rejected, got %v", err)
	}

	resp, err := svc.VerifyOTP(ctx, lead.ID, transport.VerifyOTPRequest{OTP: code})
	if err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	if resp.Results["Payback Period"] != "~4.5 Years" {
		t.Errorf("expected rooftop savings results, got %+v", resp.Results)
	}

	updated := store.leads[lead.ID]
	if !updated.OTPVerified {
		t.Error("lead must be marked verified")
	}
	if updated.PipelineStage != domain.StageVerifiedLead {
		t.Errorf("expected stage %q, got %q", domain.StageVerifiedLead, updated.PipelineStage)
	}
	if updated.Score != 100 {
		t.Errorf("verified complete rooftop lead scores 100, got %d", updated.Score)
	}
	if _, ok := codes.values[otpKey(lead.ID)]; ok {
		t.Error("used code must be dropped")
	}

	// The code is single-use.
	if _, err := svc.VerifyOTP(ctx, lead.ID, transport.VerifyOTPRequest{OTP: code}); apperr.GetKind(err) != apperr.KindBadRequest {
		t.Fatalf("replayed code must be rejected, got %v", err)
	}
}
