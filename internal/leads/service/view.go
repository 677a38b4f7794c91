package service

import (
	"solar_crm_backend/internal/leads/domain"
	"solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/internal/leads/transport"
)

func toLeadResponse(lead repository.Lead, vendorName *string) transport.LeadResponse {
	name := "Unassigned"
	if vendorName != nil {
		name = *vendorName
	}
	return transport.LeadResponse{
		ID:                 lead.ID,
		ProductType:        lead.ProductType,
		Name:               lead.Name,
		Email:              lead.Email,
		Phone:              lead.Phone,
		CustomFields:       lead.CustomFields,
		OTPVerified:        lead.OTPVerified,
		Score:              lead.Score,
		ScoreStatus:        lead.ScoreStatus,
		PipelineStage:      domain.DenormalizeStage(lead.PipelineStage),
		Source:             lead.Source,
		AssignedVendorID:   lead.AssignedVendorID,
		AssignedVendorName: name,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func toLeadDetailResponse(detail repository.LeadDetail) transport.LeadDetailResponse {
	activities := make([]transport.ActivityResponse, 0, len(detail.Activities))
	for _, a := range detail.Activities {
		activities = append(activities, transport.ActivityResponse{
			ID:        a.ID,
			Action:    a.Action,
			User:      a.UserName,
			Notes:     a.Notes,
			CreatedAt: a.CreatedAt,
		})
	}
	documents := make([]transport.DocumentResponse, 0, len(detail.Documents))
	for _, d := range detail.Documents {
		documents = append(documents, transport.DocumentResponse{
			ID:        d.ID,
			Filename:  d.Filename,
			CreatedAt: d.CreatedAt,
		})
	}
	return transport.LeadDetailResponse{
		LeadResponse: toLeadResponse(detail.Lead, detail.AssignedVendorName),
		Activities:   activities,
		Documents:    documents,
	}
}
