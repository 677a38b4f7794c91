package transport

import (
	"time"

	"github.com/google/uuid"
)

type ProductType string

const (
	ProductTypeRooftop ProductType = "rooftop"
	ProductTypePump    ProductType = "pump"
	ProductTypeInquiry ProductType = "inquiry"
)

// Bulk action discriminators, matching the admin UI payloads.
const (
	BulkActionChangeStage  = "changeStage"
	BulkActionAssignVendor = "assignVendor"
)

// Request DTOs

type CreateLeadRequest struct {
	ProductType  ProductType  `json:"productType" validate:"required,oneof=rooftop pump inquiry"`
	Name         string       `json:"name,omitempty" validate:"omitempty,max=200"`
	Email        string       `json:"email,omitempty" validate:"omitempty,email"`
	Phone        string       `json:"phone,omitempty" validate:"omitempty,max=20"`
	CustomFields CustomFields `json:"customFields,omitempty"`
}

// UpdateLeadRequest carries the pipeline moves an admin can make. The stage
// arrives as a display label and is normalized before persistence.
type UpdateLeadRequest struct {
	PipelineStage    *string      `json:"pipelineStage,omitempty" validate:"omitempty,min=1"`
	AssignedVendorID OptionalUUID `json:"assignedVendorId,omitempty" validate:"-"`
}

type AddNoteRequest struct {
	Note string `json:"note" validate:"required,min=1,max=2000"`
}

// BulkActionRequest applies one change to many leads. Value is a display
// stage label for changeStage, a vendor id or "unassigned" for assignVendor.
type BulkActionRequest struct {
	Action  string      `json:"action" validate:"required,oneof=changeStage assignVendor"`
	Value   string      `json:"value" validate:"required"`
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,dive,required"`
}

type ListLeadsQuery struct {
	AssignedVendorID string `form:"assignedVendorId"`
	State            string `form:"state"`
	District         string `form:"district"`
}

type SendOTPRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,min=5,max=20"`
}

type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,len=6,numeric"`
}

type DashboardQuery struct {
	VendorID  string `form:"vendorId"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	GroupBy   string `form:"groupBy" validate:"omitempty,oneof=day week month"`
}

// Response DTOs

type ActivityResponse struct {
	ID        uuid.UUID `json:"id"`
	Action    string    `json:"action"`
	User      string    `json:"user"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type DocumentResponse struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"createdAt"`
}

type LeadResponse struct {
	ID                 uuid.UUID         `json:"id"`
	ProductType        string            `json:"productType"`
	Name               string            `json:"name"`
	Email              string            `json:"email"`
	Phone              string            `json:"phone"`
	CustomFields       map[string]string `json:"customFields"`
	OTPVerified        bool              `json:"otpVerified"`
	Score              int               `json:"score"`
	ScoreStatus        string            `json:"scoreStatus"`
	PipelineStage      string            `json:"pipelineStage"`
	Source             string            `json:"source"`
	AssignedVendorID   *uuid.UUID        `json:"assignedVendorId"`
	AssignedVendorName string            `json:"assignedVendorName"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

type LeadDetailResponse struct {
	LeadResponse
	Activities []ActivityResponse `json:"activityLog"`
	Documents  []DocumentResponse `json:"documents"`
}

type BulkActionResponse struct {
	Message      string `json:"message"`
	UpdatedCount int64  `json:"updatedCount"`
}

type VerifyOTPResponse struct {
	Message string            `json:"message"`
	Results map[string]string `json:"results"`
}

type DashboardStatsResponse struct {
	TotalLeads    int    `json:"totalLeads"`
	VerifiedLeads int    `json:"verifiedLeads"`
	ProjectsWon   int    `json:"projectsWon"`
	PipelineValue string `json:"pipelineValue"`
}

type TimeSeriesPoint struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type ChartDataResponse struct {
	TimeSeriesLeads   []TimeSeriesPoint `json:"timeSeriesLeads"`
	LeadSources       []TimeSeriesPoint `json:"leadSources"`
	TimeSeriesRevenue []TimeSeriesPoint `json:"timeSeriesRevenue"`
}
