package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("user not found")

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
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

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, password, role, state, district, profile_image
		   FROM users WHERE lower(email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.State, &u.District, &u.ProfileImage)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// SetResetToken stores the digest of a freshly issued reset token,
// replacing any previous one.
func (r *Repository) SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET reset_token = $2, reset_token_expires_at = $3, updated_at = now() WHERE id = $1`,
		userID, tokenHash, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetUserByResetToken looks a user up by reset token digest and returns the
// token's expiry alongside.
func (r *Repository) GetUserByResetToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	var (
		id        uuid.UUID
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, reset_token_expires_at FROM users WHERE reset_token = $1`,
		tokenHash,
	).Scan(&id, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, time.Time{}, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("get user by reset token: %w", err)
	}
	if expiresAt == nil {
		return uuid.Nil, time.Time{}, ErrNotFound
	}
	return id, *expiresAt, nil
}

// UpdatePassword replaces the stored hash and clears any outstanding reset token.
func (r *Repository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users
		    SET password = $2, reset_token = NULL, reset_token_expires_at = NULL, updated_at = now()
		  WHERE id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
