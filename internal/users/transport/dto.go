package transport

import "github.com/google/uuid"

type CreateVendorRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	State    *string `json:"state"`
	District *string `json:"district"`
}

type CreateMasterAdminRequest struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	Password             string `json:"password" validate:"required,min=6"`
	ConfirmationPassword string `json:"confirmationPassword" validate:"required"`
}

type ConfirmVendorDeletionRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Country      string    `json:"country"`
	State        *string   `json:"state"`
	District     *string   `json:"district"`
	ProfileImage *string   `json:"profileImage"`
}

type VendorResponse struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	State    *string   `json:"state"`
	District *string   `json:"district"`
}

type AdminResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type DeletionRequestedResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

type DeletionConfirmedResponse struct {
	Message       string `json:"message"`
	DetachedLeads int64  `json:"detachedLeads"`
}
