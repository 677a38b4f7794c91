// Package service implements vendor and master-admin account management.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"solar_crm_backend/internal/auth/password"
	"solar_crm_backend/internal/users/repository"
	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	RoleMaster = "Master"
	RoleVendor = "Vendor"

	deleteCodeTTL = 10 * time.Minute
)

// Store is the slice of the users repository the service depends on.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	Create(ctx context.Context, params repository.CreateUserParams) (repository.User, error)
	ListVendors(ctx context.Context) ([]repository.VendorListItem, error)
	ListMasterAdmins(ctx context.Context) ([]repository.AdminListItem, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update repository.ProfileUpdate) (repository.User, error)
	DeleteVendor(ctx context.Context, id uuid.UUID) (int64, error)
}

// CodeStore holds short-lived delete confirmation codes.
type CodeStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	repo  Store
	codes CodeStore
	log   *logger.Logger
}

func New(repo Store, codes CodeStore, log *logger.Logger) *Service {
	return &Service{repo: repo, codes: codes, log: log}
}

type CreateVendorParams struct {
	Name     string
	Email    string
	Password string
	State    *string
	District *string
}

func (s *Service) CreateVendor(ctx context.Context, params CreateVendorParams) (repository.User, error) {
	hash, err := password.Hash(params.Password)
	if err != nil {
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user, err := s.repo.Create(ctx, repository.CreateUserParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         RoleVendor,
		State:        params.State,
		District:     params.District,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return repository.User{}, apperr.New(apperr.KindConflict, "Email already in use")
		}
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to create vendor", err)
	}

	s.log.Info("vendor created", "vendorId", user.ID, "district", params.District)
	return user, nil
}

func (s *Service) ListVendors(ctx context.Context) ([]repository.VendorListItem, error) {
	vendors, err := s.repo.ListVendors(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list vendors", err)
	}
	return vendors, nil
}

func (s *Service) ListMasterAdmins(ctx context.Context) ([]repository.AdminListItem, error) {
	admins, err := s.repo.ListMasterAdmins(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to list master admins", err)
	}
	return admins, nil
}

type CreateMasterAdminParams struct {
	Name                 string
	Email                string
	Password             string
	ConfirmationPassword string
}

// CreateMasterAdmin requires the requesting admin to re-enter their own
// password before a new Master account is created.
func (s *Service) CreateMasterAdmin(ctx context.Context, callerID uuid.UUID, params CreateMasterAdminParams) (repository.User, error) {
	caller, err := s.repo.GetByID(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, apperr.New(apperr.KindUnauthorized, "Unable to verify your identity. Please log in again.")
		}
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to load caller", err)
	}
	if err := password.Compare(caller.PasswordHash, params.ConfirmationPassword); err != nil {
		return repository.User{}, apperr.New(apperr.KindUnauthorized, "Your password confirmation is incorrect.")
	}

	hash, err := password.Hash(params.Password)
	if err != nil {
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	user, err := s.repo.Create(ctx, repository.CreateUserParams{
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: hash,
		Role:         RoleMaster,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return repository.User{}, apperr.New(apperr.KindConflict, "Email already in use.")
		}
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to create master admin", err)
	}

	s.log.Info("master admin created", "adminId", user.ID, "createdBy", callerID)
	return user, nil
}

type ProfileUpdateParams struct {
	Name         *string
	ProfileImage *string
}

func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, params ProfileUpdateParams) (repository.User, error) {
	if params.Name == nil && params.ProfileImage == nil {
		user, err := s.repo.GetByID(ctx, userID)
		if err != nil {
			return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to load profile", err)
		}
		return user, nil
	}

	user, err := s.repo.UpdateProfile(ctx, userID, repository.ProfileUpdate{
		Name:         params.Name,
		ProfileImage: params.ProfileImage,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, apperr.NotFound("user not found")
		}
		return repository.User{}, apperr.Wrap(apperr.KindInternal, "failed to update profile", err)
	}
	return user, nil
}

// RequestVendorDeletion issues a short-lived confirmation code the caller
// must echo back before the vendor is actually removed.
func (s *Service) RequestVendorDeletion(ctx context.Context, vendorID uuid.UUID) (string, error) {
	vendor, err := s.repo.GetByID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperr.NotFound("vendor not found")
		}
		return "", apperr.Wrap(apperr.KindInternal, "failed to load vendor", err)
	}
	if vendor.Role != RoleVendor {
		return "", apperr.New(apperr.KindBadRequest, "user is not a vendor")
	}

	code, err := generateCode()
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to generate confirmation code", err)
	}
	if err := s.codes.Set(ctx, deleteCodeKey(vendorID), code, deleteCodeTTL); err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to store confirmation code", err)
	}
	return code, nil
}

// ConfirmVendorDeletion checks the confirmation code, then detaches the
// vendor's leads and deletes the account atomically.
func (s *Service) ConfirmVendorDeletion(ctx context.Context, vendorID uuid.UUID, code string) (int64, error) {
	stored, found, err := s.codes.Get(ctx, deleteCodeKey(vendorID))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "failed to read confirmation code", err)
	}
	if !found || stored != code {
		return 0, apperr.New(apperr.KindBadRequest, "Invalid or expired confirmation code")
	}

	detached, err := s.repo.DeleteVendor(ctx, vendorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, apperr.NotFound("vendor not found")
		}
		return 0, apperr.Wrap(apperr.KindInternal, "failed to delete vendor", err)
	}

	if err := s.codes.Delete(ctx, deleteCodeKey(vendorID)); err != nil {
		s.log.Warn("failed to delete confirmation code", "vendorId", vendorID, "error", err)
	}

	s.log.Info("vendor deleted", "vendorId", vendorID, "detachedLeads", detached)
	return detached, nil
}

func deleteCodeKey(vendorID uuid.UUID) string {
	return "vendor:delete:" + vendorID.String()
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
