package repository

import (
	"context"

	"github.com/google/uuid"
)

// BulkSetStage moves every matching lead to the given stage. When vendorScope
// is set, rows assigned to other vendors are silently excluded from the match.
func (r *Repository) BulkSetStage(ctx context.Context, ids []uuid.UUID, stage string, vendorScope *uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET pipeline_stage = $2, updated_at = now()
		WHERE id = ANY($1)
		AND ($3::uuid IS NULL OR assigned_vendor_id = $3)
	`, ids, stage, vendorScope)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// BulkSetVendor reassigns every matching lead. vendorID nil means unassign.
func (r *Repository) BulkSetVendor(ctx context.Context, ids []uuid.UUID, vendorID *uuid.UUID, vendorScope *uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET assigned_vendor_id = $2, updated_at = now()
		WHERE id = ANY($1)
		AND ($3::uuid IS NULL OR assigned_vendor_id = $3)
	`, ids, vendorID, vendorScope)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AppendActivities writes one activity row per lead id, outside any lead
// update transaction.
func (r *Repository) AppendActivities(ctx context.Context, ids []uuid.UUID, params ActivityParams) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activities (lead_id, action, user_name, notes)
		SELECT unnest($1::uuid[]), $2, $3, $4
	`, ids, params.Action, params.UserName, params.Notes)
	return err
}
