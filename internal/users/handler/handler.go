package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"solar_crm_backend/internal/users/repository"
	"solar_crm_backend/internal/users/service"
	"solar_crm_backend/internal/users/transport"
	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/httpkit"
	"solar_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// ObjectStore persists uploaded profile images.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
}

type Handler struct {
	svc     *service.Service
	val     *validator.Validator
	objects ObjectStore
}

func New(svc *service.Service, val *validator.Validator, objects ObjectStore) *Handler {
	return &Handler{svc: svc, val: val, objects: objects}
}

func (h *Handler) RegisterVendorRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListVendors)
	rg.POST("", h.CreateVendor)
	rg.POST("/:id/request-deletion", h.RequestVendorDeletion)
	rg.DELETE("/:id", h.ConfirmVendorDeletion)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.ListMasterAdmins)
	rg.POST("", h.CreateMasterAdmin)
}

func (h *Handler) RegisterProfileRoutes(rg *gin.RouterGroup) {
	rg.PATCH("/profile", h.UpdateProfile)
}

func (h *Handler) ListVendors(c *gin.Context) {
	vendors, err := h.svc.ListVendors(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.VendorResponse, 0, len(vendors))
	for _, v := range vendors {
		out = append(out, transport.VendorResponse{
			ID: v.ID, Name: v.Name, Email: v.Email, State: v.State, District: v.District,
		})
	}
	httpkit.OK(c, out)
}

func (h *Handler) CreateVendor(c *gin.Context) {
	var req transport.CreateVendorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	user, err := h.svc.CreateVendor(c.Request.Context(), service.CreateVendorParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		State:    req.State,
		District: req.District,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) ListMasterAdmins(c *gin.Context) {
	admins, err := h.svc.ListMasterAdmins(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	out := make([]transport.AdminResponse, 0, len(admins))
	for _, a := range admins {
		out = append(out, transport.AdminResponse{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role})
	}
	httpkit.OK(c, out)
}

func (h *Handler) CreateMasterAdmin(c *gin.Context) {
	var req transport.CreateMasterAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	callerID, ok := callerIDFromContext(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	user, err := h.svc.CreateMasterAdmin(c.Request.Context(), callerID, service.CreateMasterAdminParams{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		ConfirmationPassword: req.ConfirmationPassword,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) RequestVendorDeletion(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	code, err := h.svc.RequestVendorDeletion(c.Request.Context(), vendorID)
	if httpkit.HandleError(c, err) {
		return
	}

	// The admin UI requires the caller to retype this code before the
	// DELETE request is sent.
	httpkit.OK(c, transport.DeletionRequestedResponse{
		Message: "Confirm deletion by echoing the code within 10 minutes.",
		Code:    code,
	})
}

func (h *Handler) ConfirmVendorDeletion(c *gin.Context) {
	vendorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.ConfirmVendorDeletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	detached, err := h.svc.ConfirmVendorDeletion(c.Request.Context(), vendorID, req.Code)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.DeletionConfirmedResponse{
		Message:       "Vendor deleted.",
		DetachedLeads: detached,
	})
}

// UpdateProfile accepts multipart form data with an optional name field and
// an optional profileImage file.
func (h *Handler) UpdateProfile(c *gin.Context) {
	callerID, ok := callerIDFromContext(c)
	if !ok {
		httpkit.Error(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	params := service.ProfileUpdateParams{}
	if name := c.PostForm("name"); name != "" {
		params.Name = &name
	}

	if fileHeader, err := c.FormFile("profileImage"); err == nil {
		stored, err := h.storeFile(c, fileHeader)
		if httpkit.HandleError(c, err) {
			return
		}
		params.ProfileImage = &stored
	}

	user, err := h.svc.UpdateProfile(c.Request.Context(), callerID, params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toUserResponse(user))
}

func (h *Handler) storeFile(c *gin.Context, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to open upload", err)
	}
	defer file.Close()

	objectName := fmt.Sprintf("profiles/%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.objects.Upload(c.Request.Context(), objectName, file, fileHeader.Size, contentType); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to store upload", err)
	}
	return objectName, nil
}

func callerIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(httpkit.ContextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func toUserResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Country:      u.Country,
		State:        u.State,
		District:     u.District,
		ProfileImage: u.ProfileImage,
	}
}
