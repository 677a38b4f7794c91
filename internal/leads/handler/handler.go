package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"solar_crm_backend/internal/leads/service"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/httpkit"
	"solar_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// ObjectStore persists uploaded lead documents.
type ObjectStore interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
}

// Handler exposes the authenticated lead management API.
type Handler struct {
	svc     *service.Service
	val     *validator.Validator
	objects ObjectStore
}

func New(svc *service.Service, val *validator.Validator, objects ObjectStore) *Handler {
	return &Handler{svc: svc, val: val, objects: objects}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, masterOnly gin.HandlerFunc) {
	rg.GET("", h.List)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", masterOnly, h.Delete)
	rg.POST("/:id/notes", h.AddNote)
	rg.POST("/:id/documents", h.UploadDocument)
	rg.POST("/bulk-action", h.BulkAction)
}

func (h *Handler) RegisterDashboardRoutes(rg *gin.RouterGroup) {
	rg.GET("/stats", h.DashboardStats)
	rg.GET("/charts", h.DashboardCharts)
}

func actorFromContext(c *gin.Context) service.Actor {
	actor := service.Actor{}
	if v, ok := c.Get(httpkit.ContextUserIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			actor.ID = id
		}
	}
	if v, ok := c.Get(httpkit.ContextUserNameKey); ok {
		actor.Name, _ = v.(string)
	}
	if v, ok := c.Get(httpkit.ContextRoleKey); ok {
		actor.Role, _ = v.(string)
	}
	return actor
}

func (h *Handler) List(c *gin.Context) {
	var query transport.ListLeadsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	leads, err := h.svc.List(c.Request.Context(), actorFromContext(c), query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, leads)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), actorFromContext(c), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), actorFromContext(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), id)) {
		return
	}
	httpkit.Message(c, "Lead deleted successfully.")
}

func (h *Handler) AddNote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.AddNote(c.Request.Context(), actorFromContext(c), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) UploadDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "File upload failed", nil)
		return
	}

	storedName, err := h.storeFile(c, fileHeader)
	if err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "failed to store document", nil)
		return
	}

	lead, err := h.svc.AttachDocument(c.Request.Context(), actorFromContext(c), id, storedName, fileHeader.Filename)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

func (h *Handler) BulkAction(c *gin.Context) {
	var req transport.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid request for bulk action.", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	resp, err := h.svc.BulkAction(c.Request.Context(), actorFromContext(c), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

func (h *Handler) DashboardStats(c *gin.Context) {
	var query transport.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	stats, err := h.svc.DashboardStats(c.Request.Context(), actorFromContext(c), query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stats)
}

func (h *Handler) DashboardCharts(c *gin.Context) {
	var query transport.DashboardQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	charts, err := h.svc.DashboardCharts(c.Request.Context(), actorFromContext(c), query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, charts)
}

// storeFile streams a multipart file into the object store under a fresh
// name, keeping the original extension.
func (h *Handler) storeFile(c *gin.Context, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	storedName := fmt.Sprintf("%s%s", uuid.NewString(), filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")
	if err := h.objects.Upload(c.Request.Context(), storedName, file, fileHeader.Size, contentType); err != nil {
		return "", err
	}
	return storedName, nil
}
