package importer

import (
	"context"
	"io"
	"net/http"
	"strings"

	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/httpkit"
	"solar_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxCSVSize = 5 << 20

// JobStore is what the handler needs from the jobs repository.
type JobStore interface {
	CreateJob(ctx context.Context, uploadedBy string, rawCSV []byte) (uuid.UUID, error)
	GetJob(ctx context.Context, id uuid.UUID) (Job, error)
}

type Handler struct {
	jobs  JobStore
	queue Enqueuer
	log   *logger.Logger
}

func NewHandler(jobs JobStore, queue Enqueuer, log *logger.Logger) *Handler {
	return &Handler{jobs: jobs, queue: queue, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/import", h.Upload)
	rg.GET("/import/:jobId", h.JobStatus)
}

// Upload accepts a CSV batch, stores it as a pending job and enqueues the
// processing task. Clients follow completion via the job endpoint or the
// event stream.
func (h *Handler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "CSV file is required", nil)
		return
	}
	if fileHeader.Size > maxCSVSize {
		httpkit.Error(c, http.StatusBadRequest, "CSV file exceeds the 5MB limit", nil)
		return
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		httpkit.Error(c, http.StatusBadRequest, "only .csv files are accepted", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to read upload", err))
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxCSVSize+1))
	if err != nil {
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to read upload", err))
		return
	}

	uploadedBy := "System"
	if v, ok := c.Get(httpkit.ContextUserNameKey); ok {
		if name, _ := v.(string); name != "" {
			uploadedBy = name
		}
	}

	jobID, err := h.jobs.CreateJob(c.Request.Context(), uploadedBy, raw)
	if httpkit.HandleError(c, err) {
		return
	}

	if err := h.queue.EnqueueLeadImport(c.Request.Context(), LeadImportPayload{JobID: jobID.String()}); err != nil {
		h.log.Error("failed to enqueue import job", "jobId", jobID, "error", err)
		httpkit.HandleError(c, apperr.Wrap(apperr.KindInternal, "failed to queue import", err))
		return
	}

	httpkit.JSON(c, http.StatusAccepted, gin.H{
		"jobId":   jobID,
		"message": "Import started. You will be notified when it completes.",
	})
}

func (h *Handler) JobStatus(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("jobId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid job id", nil)
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err == ErrJobNotFound {
		httpkit.Error(c, http.StatusNotFound, "import job not found", nil)
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{
		"id":           job.ID,
		"status":       job.Status,
		"successCount": job.SuccessCount,
		"errorCount":   job.ErrorCount,
		"errors":       job.Errors,
		"createdAt":    job.CreatedAt,
		"finishedAt":   job.FinishedAt,
	})
}
