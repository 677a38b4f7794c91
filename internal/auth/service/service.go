// Package service implements credential checks, token issuance and the
// password reset flow.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"solar_crm_backend/internal/auth/password"
	"solar_crm_backend/internal/auth/repository"
	"solar_crm_backend/internal/auth/token"
	"solar_crm_backend/internal/events"
	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/config"
	"solar_crm_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Users is the slice of the auth repository the service depends on.
type Users interface {
	GetUserByEmail(ctx context.Context, email string) (repository.User, error)
	SetResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	GetUserByResetToken(ctx context.Context, tokenHash string) (uuid.UUID, time.Time, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
}

type Service struct {
	repo Users
	cfg  *config.Config
	bus  events.Bus
	log  *logger.Logger
}

func New(repo Users, cfg *config.Config, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, bus: bus, log: log}
}

// AuthenticatedUser is the profile returned alongside a fresh token.
type AuthenticatedUser struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Role         string
	State        *string
	District     *string
	ProfileImage *string
}

// Login verifies credentials and returns a signed access token. Wrong email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, plainPassword string) (string, AuthenticatedUser, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", AuthenticatedUser{}, apperr.New(apperr.KindUnauthorized, "Invalid credentials")
		}
		return "", AuthenticatedUser{}, apperr.Wrap(apperr.KindInternal, "failed to look up user", err)
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return "", AuthenticatedUser{}, apperr.New(apperr.KindUnauthorized, "Invalid credentials")
	}

	signed, err := s.signJWT(user)
	if err != nil {
		return "", AuthenticatedUser{}, apperr.Wrap(apperr.KindInternal, "failed to sign token", err)
	}

	return signed, AuthenticatedUser{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		Role:         user.Role,
		State:        user.State,
		District:     user.District,
		ProfileImage: user.ProfileImage,
	}, nil
}

// ForgotPassword issues a reset token for known accounts. Unknown emails are
// silently ignored so the endpoint cannot be used for account enumeration.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return apperr.Wrap(apperr.KindInternal, "failed to look up user", err)
	}

	rawToken, err := token.GenerateRandomToken(32)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to generate reset token", err)
	}

	expiresAt := time.Now().Add(s.cfg.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, token.HashSHA256(rawToken), expiresAt); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to store reset token", err)
	}

	s.bus.Publish(ctx, events.PasswordResetRequested{
		BaseEvent: events.NewBaseEvent(),
		Email:     user.Email,
		ResetURL:  s.resetURL(rawToken),
	})
	s.log.Info("password reset requested", "userId", user.ID)
	return nil
}

// ResetPassword consumes a reset token and replaces the stored credential.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	userID, expiresAt, err := s.repo.GetUserByResetToken(ctx, token.HashSHA256(rawToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.New(apperr.KindBadRequest, "Invalid or expired reset token")
		}
		return apperr.Wrap(apperr.KindInternal, "failed to look up reset token", err)
	}
	if time.Now().After(expiresAt) {
		return apperr.New(apperr.KindBadRequest, "Invalid or expired reset token")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to update password", err)
	}

	s.log.Info("password reset completed", "userId", userID)
	return nil
}

func (s *Service) signJWT(user repository.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"name": user.Name,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.AccessTokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
}

func (s *Service) resetURL(tokenValue string) string {
	base := strings.TrimRight(s.cfg.AppBaseURL, "/")
	return base + "/reset-password?token=" + tokenValue
}
