package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

var ErrJobNotFound = errors.New("import job not found")

type Job struct {
	ID           uuid.UUID
	UploadedBy   string
	RawCSV       string
	Status       string
	SuccessCount int
	ErrorCount   int
	Errors       []string
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateJob persists the raw upload so the worker can process it out of band.
func (r *Repository) CreateJob(ctx context.Context, uploadedBy string, rawCSV []byte) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO import_jobs (uploaded_by, raw_csv) VALUES ($1, $2) RETURNING id`,
		uploadedBy, string(rawCSV),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create import job: %w", err)
	}
	return id, nil
}

func (r *Repository) GetJob(ctx context.Context, id uuid.UUID) (Job, error) {
	var (
		job       Job
		rawErrors []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, uploaded_by, raw_csv, status, success_count, error_count, errors, created_at, finished_at
		   FROM import_jobs WHERE id = $1`,
		id,
	).Scan(&job.ID, &job.UploadedBy, &job.RawCSV, &job.Status, &job.SuccessCount,
		&job.ErrorCount, &rawErrors, &job.CreatedAt, &job.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Job{}, ErrJobNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("get import job: %w", err)
	}
	if err := json.Unmarshal(rawErrors, &job.Errors); err != nil {
		return Job{}, fmt.Errorf("decode import job errors: %w", err)
	}
	return job, nil
}

func (r *Repository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE import_jobs SET status = $2 WHERE id = $1 AND status = $3`,
		id, JobStatusRunning, JobStatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark import job running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

// Finish records the terminal state of a job along with its row-level errors.
func (r *Repository) Finish(ctx context.Context, id uuid.UUID, status string, successCount, errorCount int, rowErrors []string) error {
	if rowErrors == nil {
		rowErrors = []string{}
	}
	encoded, err := json.Marshal(rowErrors)
	if err != nil {
		return fmt.Errorf("encode import job errors: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE import_jobs
		    SET status = $2, success_count = $3, error_count = $4, errors = $5, finished_at = now()
		  WHERE id = $1`,
		id, status, successCount, errorCount, encoded,
	)
	if err != nil {
		return fmt.Errorf("finish import job: %w", err)
	}
	return nil
}
