package handler

import (
	"context"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"sync"

	"solar_crm_backend/internal/leads/service"
	"solar_crm_backend/internal/leads/transport"
	"solar_crm_backend/platform/httpkit"
	"solar_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PublicHandler exposes the unauthenticated funnel API the calculator flow
// calls.
type PublicHandler struct {
	svc     *service.Service
	val     *validator.Validator
	objects ObjectStore
}

func NewPublic(svc *service.Service, val *validator.Validator, objects ObjectStore) *PublicHandler {
	return &PublicHandler{svc: svc, val: val, objects: objects}
}

func (h *PublicHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/leads", h.CreateLead)
	rg.POST("/leads/:id/send-otp", h.SendOTP)
	rg.POST("/leads/:id/verify-otp", h.VerifyOTP)
	rg.POST("/leads/:id/application", h.UploadApplication)
}

func (h *PublicHandler) CreateLead(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	lead, err := h.svc.CreateFromFunnel(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *PublicHandler) SendOTP(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if httpkit.HandleError(c, h.svc.SendOTP(c.Request.Context(), id, req)) {
		return
	}
	httpkit.Message(c, "OTP sent")
}

func (h *PublicHandler) VerifyOTP(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "Invalid OTP", nil)
		return
	}

	resp, err := h.svc.VerifyOTP(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}

// UploadApplication accepts the funnel's multipart document submission. Each
// file part's field name identifies the form field it satisfies.
func (h *PublicHandler) UploadApplication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "No files uploaded.", nil)
		return
	}

	files := make([]service.UploadedFile, 0)
	var filesMu sync.Mutex
	g, gctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(5)

	for fieldName, headers := range form.File {
		for _, fileHeader := range headers {
			fieldName, fileHeader := fieldName, fileHeader
			g.Go(func() error {
				storedName, err := h.storeFile(gctx, fileHeader)
				if err != nil {
					return err
				}
				filesMu.Lock()
				files = append(files, service.UploadedFile{
					FieldName:    fieldName,
					StoredName:   storedName,
					OriginalName: fileHeader.Filename,
				})
				filesMu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		httpkit.Error(c, http.StatusInternalServerError, "Failed to process file upload.", nil)
		return
	}

	lead, err := h.svc.AttachApplicationFiles(c.Request.Context(), id, files)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, lead)
}

// storeFile mirrors Handler.storeFile for the unauthenticated flow.
func (h *PublicHandler) storeFile(ctx context.Context, fileHeader *multipart.FileHeader) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	storedName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	if err := h.objects.Upload(ctx, storedName, file, fileHeader.Size, fileHeader.Header.Get("Content-Type")); err != nil {
		return "", err
	}
	return storedName, nil
}
