package importer

import (
	"context"
	"fmt"

	"solar_crm_backend/internal/events"
	"solar_crm_backend/internal/leads/domain"
	leadsrepo "solar_crm_backend/internal/leads/repository"
	"solar_crm_backend/platform/config"
	"solar_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Worker consumes lead import tasks. Each task processes one stored CSV
// batch: rows become leads, failures become row errors on the job record.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	jobs   *Repository
	leads  *leadsrepo.Repository
	bus    events.Bus
	log    *logger.Logger
}

func NewWorker(cfg config.RedisConfig, pool *pgxpool.Pool, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		jobs:   NewRepository(pool),
		leads:  leadsrepo.New(pool),
		bus:    bus,
		log:    log,
	}

	mux.HandleFunc(TaskLeadImport, w.handleLeadImport)

	return w, nil
}

func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleLeadImport(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadImportPayload(task)
	if err != nil {
		return err
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		return fmt.Errorf("invalid job id %q: %w", payload.JobID, err)
	}

	job, err := w.jobs.GetJob(ctx, jobID)
	if err != nil {
		if err == ErrJobNotFound {
			w.log.Warn("import job vanished, dropping task", "jobId", jobID)
			return nil
		}
		return err
	}

	// A retried task may find the job already picked up; don't run it twice.
	if err := w.jobs.MarkRunning(ctx, jobID); err != nil {
		if err == ErrJobNotFound {
			w.log.Warn("import job not pending, dropping task", "jobId", jobID, "status", job.Status)
			return nil
		}
		return err
	}

	rows, rowErrors, parseErr := ParseCSV([]byte(job.RawCSV))
	if parseErr != nil {
		if err := w.jobs.Finish(ctx, jobID, JobStatusFailed, 0, 1, []string{parseErr.Error()}); err != nil {
			return err
		}
		w.publishCompleted(ctx, jobID, 0, 1)
		w.log.Warn("import job rejected", "jobId", jobID, "error", parseErr)
		return nil
	}

	successCount := 0
	for _, row := range rows {
		if err := w.createLead(ctx, row, job.UploadedBy); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: %s", row.Line, err))
			continue
		}
		successCount++
	}

	status := JobStatusCompleted
	if successCount == 0 && len(rowErrors) > 0 {
		status = JobStatusFailed
	}
	if err := w.jobs.Finish(ctx, jobID, status, successCount, len(rowErrors), rowErrors); err != nil {
		return err
	}

	w.publishCompleted(ctx, jobID, successCount, len(rowErrors))
	w.log.Info("import job finished", "jobId", jobID, "imported", successCount, "errors", len(rowErrors))
	return nil
}

func (w *Worker) createLead(ctx context.Context, row LeadRow, uploadedBy string) error {
	var vendorID *uuid.UUID
	if district := row.CustomFields["district"]; district != "" {
		id, _, found, err := w.leads.FindVendorByDistrict(ctx, district)
		if err != nil {
			return err
		}
		if found {
			vendorID = &id
		}
	}

	score := domain.Score(domain.ScoreInput{
		Name:         row.Name,
		Email:        row.Email,
		Phone:        row.Phone,
		CustomFields: row.CustomFields,
	})

	_, err := w.leads.Create(ctx, leadsrepo.CreateLeadParams{
		ProductType:      row.ProductType,
		Name:             row.Name,
		Email:            row.Email,
		Phone:            row.Phone,
		CustomFields:     row.CustomFields,
		PipelineStage:    row.PipelineStage,
		Source:           row.Source,
		Score:            score,
		ScoreStatus:      domain.StatusFor(score),
		AssignedVendorID: vendorID,
		Activities: []leadsrepo.ActivityParams{
			{Action: "Lead imported from CSV", UserName: uploadedBy},
		},
	})
	return err
}

func (w *Worker) publishCompleted(ctx context.Context, jobID uuid.UUID, successCount, errorCount int) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(ctx, events.LeadImportCompleted{
		BaseEvent:    events.NewBaseEvent(),
		JobID:        jobID,
		SuccessCount: successCount,
		ErrorCount:   errorCount,
	})
}
