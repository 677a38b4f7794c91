package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already in use")
)

const uniqueViolation = "23505"

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Country      string
	State        *string
	District     *string
	ProfileImage *string
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, `WHERE lower(email) = lower($1)`, email)
}

func (r *Repository) getOne(ctx context.Context, where string, arg interface{}) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password, role, country, state, district, profile_image FROM users `+where,
		arg,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Country, &u.State, &u.District, &u.ProfileImage)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string
	State        *string
	District     *string
}

// Create inserts a user. Duplicate emails surface as ErrDuplicateEmail via
// the unique constraint rather than a racy pre-check.
func (r *Repository) Create(ctx context.Context, params CreateUserParams) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (name, email, password, role, country, state, district)
		 VALUES ($1, $2, $3, $4, 'India', $5, $6)
		 RETURNING id, name, email, password, role, country, state, district, profile_image`,
		params.Name, params.Email, params.PasswordHash, params.Role, params.State, params.District,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Country, &u.State, &u.District, &u.ProfileImage)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrDuplicateEmail
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// VendorListItem is the trimmed shape the vendor management screen consumes.
type VendorListItem struct {
	ID       uuid.UUID
	Name     string
	Email    string
	State    *string
	District *string
}

func (r *Repository) ListVendors(ctx context.Context) ([]VendorListItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, state, district FROM users WHERE role = 'Vendor' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []VendorListItem
	for rows.Next() {
		var v VendorListItem
		if err := rows.Scan(&v.ID, &v.Name, &v.Email, &v.State, &v.District); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

type AdminListItem struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  string
}

func (r *Repository) ListMasterAdmins(ctx context.Context) ([]AdminListItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, email, role FROM users WHERE role = 'Master' ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list master admins: %w", err)
	}
	defer rows.Close()

	var admins []AdminListItem
	for rows.Next() {
		var a AdminListItem
		if err := rows.Scan(&a.ID, &a.Name, &a.Email, &a.Role); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

type ProfileUpdate struct {
	Name         *string
	ProfileImage *string
}

func (r *Repository) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`UPDATE users
		    SET name          = COALESCE($2, name),
		        profile_image = COALESCE($3, profile_image),
		        updated_at    = now()
		  WHERE id = $1
		 RETURNING id, name, email, password, role, country, state, district, profile_image`,
		id, update.Name, update.ProfileImage,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.Country, &u.State, &u.District, &u.ProfileImage)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// DeleteVendor detaches the vendor's leads and removes the account in one
// transaction, so no reader ever sees leads pointing at a deleted user.
// Returns the number of detached leads.
func (r *Repository) DeleteVendor(ctx context.Context, id uuid.UUID) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin delete vendor: %w", err)
	}
	defer tx.Rollback(ctx)

	detached, err := tx.Exec(ctx,
		`UPDATE leads SET assigned_vendor_id = NULL WHERE assigned_vendor_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("detach vendor leads: %w", err)
	}

	deleted, err := tx.Exec(ctx,
		`DELETE FROM users WHERE id = $1 AND role = 'Vendor'`, id)
	if err != nil {
		return 0, fmt.Errorf("delete vendor: %w", err)
	}
	if deleted.RowsAffected() == 0 {
		return 0, ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit delete vendor: %w", err)
	}
	return detached.RowsAffected(), nil
}
