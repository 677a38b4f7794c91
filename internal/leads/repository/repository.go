package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID               uuid.UUID
	ProductType      string
	Name             string
	Email            string
	Phone            string
	CustomFields     map[string]string
	OTPVerified      bool
	Score            int
	ScoreStatus      string
	PipelineStage    string
	Source           string
	AssignedVendorID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Activity struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Action    string
	UserName  string
	Notes     *string
	CreatedAt time.Time
}

type Document struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Filename  string
	CreatedAt time.Time
}

// LeadDetail is a lead with its joined vendor name and full history.
type LeadDetail struct {
	Lead
	AssignedVendorName *string
	Activities         []Activity
	Documents          []Document
}

// LeadListItem is a lead row with the vendor name resolved, as returned by List.
type LeadListItem struct {
	Lead
	AssignedVendorName *string
}

const leadColumns = `id, product_type, name, email, phone, custom_fields, otp_verified,
	score, score_status, pipeline_stage, source, assigned_vendor_id, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	var customFields []byte
	err := row.Scan(
		&lead.ID, &lead.ProductType, &lead.Name, &lead.Email, &lead.Phone, &customFields,
		&lead.OTPVerified, &lead.Score, &lead.ScoreStatus, &lead.PipelineStage, &lead.Source,
		&lead.AssignedVendorID, &lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	if err := json.Unmarshal(customFields, &lead.CustomFields); err != nil {
		return Lead{}, err
	}
	if lead.CustomFields == nil {
		lead.CustomFields = map[string]string{}
	}
	return lead, nil
}

type ActivityParams struct {
	Action   string
	UserName string
	Notes    *string
}

type CreateLeadParams struct {
	ProductType      string
	Name             string
	Email            string
	Phone            string
	CustomFields     map[string]string
	PipelineStage    string
	Source           string
	Score            int
	ScoreStatus      string
	AssignedVendorID *uuid.UUID
	Activities       []ActivityParams
}

// Create inserts a lead and its initial activity entries in one transaction.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	customFields, err := json.Marshal(nonNilFields(params.CustomFields))
	if err != nil {
		return Lead{}, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	lead, err := scanLead(tx.QueryRow(ctx, `
		INSERT INTO leads (product_type, name, email, phone, custom_fields, pipeline_stage,
			source, score, score_status, assigned_vendor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+leadColumns,
		params.ProductType, params.Name, params.Email, params.Phone, customFields,
		params.PipelineStage, params.Source, params.Score, params.ScoreStatus, params.AssignedVendorID,
	))
	if err != nil {
		return Lead{}, err
	}

	if err := insertActivitiesTx(ctx, tx, lead.ID, params.Activities); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// GetByID returns the bare lead row.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// GetDetail returns the lead with vendor name, activity log and documents.
func (r *Repository) GetDetail(ctx context.Context, id uuid.UUID) (LeadDetail, error) {
	var detail LeadDetail
	var customFields []byte
	err := r.pool.QueryRow(ctx, `
		SELECT l.id, l.product_type, l.name, l.email, l.phone, l.custom_fields, l.otp_verified,
			l.score, l.score_status, l.pipeline_stage, l.source, l.assigned_vendor_id,
			l.created_at, l.updated_at, u.name
		FROM leads l
		LEFT JOIN users u ON u.id = l.assigned_vendor_id
		WHERE l.id = $1
	`, id).Scan(
		&detail.ID, &detail.ProductType, &detail.Name, &detail.Email, &detail.Phone, &customFields,
		&detail.OTPVerified, &detail.Score, &detail.ScoreStatus, &detail.PipelineStage, &detail.Source,
		&detail.AssignedVendorID, &detail.CreatedAt, &detail.UpdatedAt, &detail.AssignedVendorName,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeadDetail{}, ErrNotFound
	}
	if err != nil {
		return LeadDetail{}, err
	}
	if err := json.Unmarshal(customFields, &detail.CustomFields); err != nil {
		return LeadDetail{}, err
	}
	if detail.CustomFields == nil {
		detail.CustomFields = map[string]string{}
	}

	if detail.Activities, err = r.listActivities(ctx, id); err != nil {
		return LeadDetail{}, err
	}
	if detail.Documents, err = r.listDocuments(ctx, id); err != nil {
		return LeadDetail{}, err
	}
	return detail, nil
}

// ListFilter narrows List results. VendorID is forced to the caller for
// Vendor-role users; State and District match custom_fields keys.
type ListFilter struct {
	VendorID *uuid.UUID
	State    string
	District string
}

// List returns leads newest-first with vendor names resolved.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]LeadListItem, error) {
	query := `
		SELECT l.id, l.product_type, l.name, l.email, l.phone, l.custom_fields, l.otp_verified,
			l.score, l.score_status, l.pipeline_stage, l.source, l.assigned_vendor_id,
			l.created_at, l.updated_at, u.name
		FROM leads l
		LEFT JOIN users u ON u.id = l.assigned_vendor_id
		WHERE ($1::uuid IS NULL OR l.assigned_vendor_id = $1)
		AND ($2 = '' OR l.custom_fields->>'state' = $2)
		AND ($3 = '' OR l.custom_fields->>'district' = $3)
		ORDER BY l.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, filter.VendorID, filter.State, filter.District)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]LeadListItem, 0)
	for rows.Next() {
		var item LeadListItem
		var customFields []byte
		if err := rows.Scan(
			&item.ID, &item.ProductType, &item.Name, &item.Email, &item.Phone, &customFields,
			&item.OTPVerified, &item.Score, &item.ScoreStatus, &item.PipelineStage, &item.Source,
			&item.AssignedVendorID, &item.CreatedAt, &item.UpdatedAt, &item.AssignedVendorName,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(customFields, &item.CustomFields); err != nil {
			return nil, err
		}
		if item.CustomFields == nil {
			item.CustomFields = map[string]string{}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateFields holds the optional field changes applied by Update. A nil
// pointer leaves the column untouched. SetVendor distinguishes "assign to
// nobody" from "leave assignment alone".
type UpdateFields struct {
	PipelineStage *string
	SetVendor     bool
	VendorID      *uuid.UUID
	Name          *string
	Email         *string
	Phone         *string
	OTPVerified   *bool
	CustomFields  map[string]string
	Score         *int
	ScoreStatus   *string
}

// Update applies field changes and appends activity entries in a single
// transaction, so a failed log append rolls the field change back too.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, fields UpdateFields, activities []ActivityParams) (Lead, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Lead{}, err
	}
	defer tx.Rollback(ctx)

	var customFields []byte
	if fields.CustomFields != nil {
		if customFields, err = json.Marshal(fields.CustomFields); err != nil {
			return Lead{}, err
		}
	}

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads SET
			pipeline_stage = COALESCE($2, pipeline_stage),
			assigned_vendor_id = CASE WHEN $3 THEN $4 ELSE assigned_vendor_id END,
			name = COALESCE($5, name),
			email = COALESCE($6, email),
			phone = COALESCE($7, phone),
			otp_verified = COALESCE($8, otp_verified),
			custom_fields = COALESCE($9, custom_fields),
			score = COALESCE($10, score),
			score_status = COALESCE($11, score_status),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		id, fields.PipelineStage, fields.SetVendor, fields.VendorID,
		fields.Name, fields.Email, fields.Phone, fields.OTPVerified,
		customFields, fields.Score, fields.ScoreStatus,
	))
	if err != nil {
		return Lead{}, err
	}

	if err := insertActivitiesTx(ctx, tx, id, activities); err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}
	return lead, nil
}

// Delete removes a lead. Activities and documents cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddDocuments records uploaded filenames and their activity entries.
func (r *Repository) AddDocuments(ctx context.Context, id uuid.UUID, filenames []string, activities []ActivityParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, filename := range filenames {
		if _, err := tx.Exec(ctx,
			`INSERT INTO documents (lead_id, filename) VALUES ($1, $2)`, id, filename); err != nil {
			return err
		}
	}
	if err := insertActivitiesTx(ctx, tx, id, activities); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// VendorName resolves a vendor's display name; ok is false when the id does
// not reference a Vendor user.
func (r *Repository) VendorName(ctx context.Context, id uuid.UUID) (string, bool, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM users WHERE id = $1 AND role = 'Vendor'`, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

// FindVendorByDistrict returns the first vendor covering the district, for
// funnel auto-assignment. ok is false when no vendor matches.
func (r *Repository) FindVendorByDistrict(ctx context.Context, district string) (uuid.UUID, string, bool, error) {
	if district == "" {
		return uuid.Nil, "", false, nil
	}
	var id uuid.UUID
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT id, name FROM users WHERE role = 'Vendor' AND district = $1 ORDER BY created_at LIMIT 1`,
		district).Scan(&id, &name)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, "", false, nil
	}
	if err != nil {
		return uuid.Nil, "", false, err
	}
	return id, name, true, nil
}

func insertActivitiesTx(ctx context.Context, tx pgx.Tx, leadID uuid.UUID, activities []ActivityParams) error {
	for _, a := range activities {
		if _, err := tx.Exec(ctx,
			`INSERT INTO activities (lead_id, action, user_name, notes) VALUES ($1, $2, $3, $4)`,
			leadID, a.Action, a.UserName, a.Notes); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) listActivities(ctx context.Context, leadID uuid.UUID) ([]Activity, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, action, user_name, notes, created_at
		FROM activities WHERE lead_id = $1 ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Activity, 0)
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Action, &a.UserName, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *Repository) listDocuments(ctx context.Context, leadID uuid.UUID) ([]Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, filename, created_at
		FROM documents WHERE lead_id = $1 ORDER BY created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.LeadID, &d.Filename, &d.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func nonNilFields(fields map[string]string) map[string]string {
	if fields == nil {
		return map[string]string{}
	}
	return fields
}
