package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// LeadStat is the slim projection the dashboard aggregates over.
type LeadStat struct {
	CreatedAt     time.Time
	PipelineStage string
	Source        string
	OTPVerified   bool
	Score         int
}

// ListStats returns every lead visible to the caller as a dashboard row.
func (r *Repository) ListStats(ctx context.Context, vendorScope *uuid.UUID) ([]LeadStat, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT created_at, pipeline_stage, source, otp_verified, score
		FROM leads
		WHERE ($1::uuid IS NULL OR assigned_vendor_id = $1)
	`, vendorScope)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]LeadStat, 0)
	for rows.Next() {
		var s LeadStat
		if err := rows.Scan(&s.CreatedAt, &s.PipelineStage, &s.Source, &s.OTPVerified, &s.Score); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
