package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"solar_crm_backend/internal/events"
	"solar_crm_backend/internal/leads/domain"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/phone"

	"github.com/google/uuid"
)

const funnelUser = "System"

const otpTTL = 5 * time.Minute

var leadSources = []string{"Website", "Referral", "Cold Call", "Social Media"}

// CreateFromFunnel creates a lead from the public calculator flow. The lead
// is scored immediately and auto-assigned to a vendor covering the form's
// district when one exists.
func (s *Service) CreateFromFunnel(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	customFields := map[string]string(req.CustomFields)
	if customFields == nil {
		customFields = map[string]string{}
	}

	params := repository.CreateLeadParams{
		ProductType:   string(req.ProductType),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         phone.NormalizeE164(req.Phone),
		CustomFields:  customFields,
		PipelineStage: domain.StageNewLead,
		Source:        randomSource(),
	}

	action := "Lead Created via Website"
	if vendorID, vendorName, ok, err := s.repo.FindVendorByDistrict(ctx, customFields["district"]); err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "vendor lookup failed", err)
	} else if ok {
		params.AssignedVendorID = &vendorID
		action += fmt.Sprintf(" and auto-assigned to %s", vendorName)
	}
	params.Activities = []repository.ActivityParams{{Action: action, UserName: funnelUser}}

	params.Score = domain.Score(scoreInputFromParams(params))
	params.ScoreStatus = domain.StatusFor(params.Score)

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to create lead", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           lead.ID,
		ProductType:      lead.ProductType,
		Source:           lead.Source,
		AssignedVendorID: lead.AssignedVendorID,
	})
	return toLeadResponse(lead, nil), nil
}

// SendOTP captures the visitor's contact details, rescores the lead and
// issues a short-lived verification code for delivery by email.
func (s *Service) SendOTP(ctx context.Context, id uuid.UUID, req transport.SendOTPRequest) error {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	name := req.Name
	email := req.Email
	normalized := phone.NormalizeE164(req.Phone)

	lead.Name = name
	lead.Email = email
	lead.Phone = normalized
	score := domain.Score(scoreInput(lead))
	status := domain.StatusFor(score)

	_, err = s.repo.Update(ctx, id, repository.UpdateFields{
		Name:        &name,
		Email:       &email,
		Phone:       &normalized,
		Score:       &score,
		ScoreStatus: &status,
	}, []repository.ActivityParams{{Action: "Contact info submitted, OTP sent", UserName: funnelUser}})
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to save contact info", err)
	}

	code, err := generateOTP()
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to generate verification code", err)
	}
	if err := s.codes.Set(ctx, otpKey(id), code, otpTTL); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store verification code", err)
	}

	s.bus.Publish(ctx, events.LeadOTPRequested{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		Name:      name,
		Email:     email,
		Code:      code,
	})
	return nil
}

// VerifyOTP checks the submitted code, marks the lead verified and returns
// the product-specific savings estimate.
func (s *Service) VerifyOTP(ctx context.Context, id uuid.UUID, req transport.VerifyOTPRequest) (transport.VerifyOTPResponse, error) {
	stored, ok, err := s.codes.Get(ctx, otpKey(id))
	if err != nil {
		return transport.VerifyOTPResponse{}, apperr.Wrap(apperr.KindInternal, "failed to check verification code", err)
	}
	if !ok || stored != req.OTP {
		return transport.VerifyOTPResponse{}, apperr.BadRequest("Invalid OTP")
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.VerifyOTPResponse{}, apperr.NotFound("lead not found")
		}
		return transport.VerifyOTPResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	lead.OTPVerified = true
	score := domain.Score(scoreInput(lead))
	status := domain.StatusFor(score)
	verified := true
	stage := domain.StageVerifiedLead

	updated, err := s.repo.Update(ctx, id, repository.UpdateFields{
		OTPVerified:   &verified,
		PipelineStage: &stage,
		Score:         &score,
		ScoreStatus:   &status,
	}, []repository.ActivityParams{{Action: "OTP Verified", UserName: funnelUser}})
	if err != nil {
		return transport.VerifyOTPResponse{}, apperr.Wrap(apperr.KindInternal, "failed to mark lead verified", err)
	}

	if err := s.codes.Delete(ctx, otpKey(id)); err != nil {
		s.log.Warn("failed to drop used verification code", "leadId", id, "error", err)
	}

	s.bus.Publish(ctx, events.LeadUpdated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		Payload:   toLeadResponse(updated, nil),
	})

	return transport.VerifyOTPResponse{
		Message: "Verification successful",
		Results: savingsResults(updated.ProductType, updated.CustomFields),
	}, nil
}

// UploadedFile describes one stored application document.
type UploadedFile struct {
	FieldName    string
	StoredName   string
	OriginalName string
}

// AttachApplicationFiles records funnel document uploads: each file lands in
// the documents table, its stored name under its form field in custom_fields,
// and one activity entry per file.
func (s *Service) AttachApplicationFiles(ctx context.Context, id uuid.UUID, files []UploadedFile) (transport.LeadResponse, error) {
	if len(files) == 0 {
		return transport.LeadResponse{}, apperr.BadRequest("no files uploaded")
	}

	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound("lead not found")
		}
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to load lead", err)
	}

	merged := make(map[string]string, len(lead.CustomFields)+len(files))
	for k, v := range lead.CustomFields {
		merged[k] = v
	}
	filenames := make([]string, 0, len(files))
	activities := make([]repository.ActivityParams, 0, len(files))
	for _, f := range files {
		merged[f.FieldName] = f.StoredName
		filenames = append(filenames, f.StoredName)
		activities = append(activities, repository.ActivityParams{
			Action:   fmt.Sprintf("Document '%s' uploaded via form", f.OriginalName),
			UserName: funnelUser,
		})
	}

	updated, err := s.repo.Update(ctx, id, repository.UpdateFields{CustomFields: merged}, activities)
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to save application", err)
	}
	if err := s.repo.AddDocuments(ctx, id, filenames, nil); err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to record documents", err)
	}
	return toLeadResponse(updated, nil), nil
}

func scoreInput(lead repository.Lead) domain.ScoreInput {
	return domain.ScoreInput{
		OTPVerified:  lead.OTPVerified,
		Name:         lead.Name,
		Email:        lead.Email,
		Phone:        lead.Phone,
		CustomFields: lead.CustomFields,
	}
}

func scoreInputFromParams(params repository.CreateLeadParams) domain.ScoreInput {
	return domain.ScoreInput{
		Name:         params.Name,
		Email:        params.Email,
		Phone:        params.Phone,
		CustomFields: params.CustomFields,
	}
}

func otpKey(id uuid.UUID) string {
	return "lead:otp:" + id.String()
}

func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomSource() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(leadSources))))
	if err != nil {
		return leadSources[0]
	}
	return leadSources[n.Int64()]
}
