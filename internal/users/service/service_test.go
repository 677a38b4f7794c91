package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"solar_crm_backend/internal/auth/password"
	"solar_crm_backend/internal/users/repository"
	"solar_crm_backend/platform/apperr"
	"solar_crm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	users map[uuid.UUID]repository.User
	// leads maps lead id to assigned vendor id.
	leads map[uuid.UUID]*uuid.UUID

	deleteCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[uuid.UUID]repository.User{},
		leads: map[uuid.UUID]*uuid.UUID{},
	}
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) Create(_ context.Context, params repository.CreateUserParams) (repository.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, params.Email) {
			return repository.User{}, repository.ErrDuplicateEmail
		}
	}
	u := repository.User{
		ID:           uuid.New(),
		Name:         params.Name,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		Country:      "India",
		State:        params.State,
		District:     params.District,
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeStore) ListVendors(_ context.Context) ([]repository.VendorListItem, error) {
	var out []repository.VendorListItem
	for _, u := range f.users {
		if u.Role == RoleVendor {
			out = append(out, repository.VendorListItem{ID: u.ID, Name: u.Name, Email: u.Email, State: u.State, District: u.District})
		}
	}
	return out, nil
}

func (f *fakeStore) ListMasterAdmins(_ context.Context) ([]repository.AdminListItem, error) {
	var out []repository.AdminListItem
	for _, u := range f.users {
		if u.Role == RoleMaster {
			out = append(out, repository.AdminListItem{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateProfile(_ context.Context, id uuid.UUID, update repository.ProfileUpdate) (repository.User, error) {
	u, ok := f.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.ProfileImage != nil {
		u.ProfileImage = update.ProfileImage
	}
	f.users[id] = u
	return u, nil
}

// DeleteVendor mirrors the repository transaction: both the lead detach and
// the user delete happen, or neither does.
func (f *fakeStore) DeleteVendor(_ context.Context, id uuid.UUID) (int64, error) {
	f.deleteCalls++
	u, ok := f.users[id]
	if !ok || u.Role != RoleVendor {
		return 0, repository.ErrNotFound
	}
	var detached int64
	for leadID, vendorID := range f.leads {
		if vendorID != nil && *vendorID == id {
			f.leads[leadID] = nil
			detached++
		}
	}
	delete(f.users, id)
	return detached, nil
}

type fakeCodes struct {
	values map[string]string
}

func (f *fakeCodes) Set(_ context.Context, key, value string, _ time.Duration) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func (f *fakeCodes) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeCodes) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func newTestService() (*Service, *fakeStore, *fakeCodes) {
	store := newFakeStore()
	codes := &fakeCodes{}
	return New(store, codes, logger.New("development")), store, codes
}

func seedVendor(t *testing.T, store *fakeStore, email string) repository.User {
	t.Helper()
	district := "Pune"
	u, err := store.Create(context.Background(), repository.CreateUserParams{
		Name: "Vendor " + email, Email: email, PasswordHash: "x", Role: RoleVendor, District: &district,
	})
	if err != nil {
		t.Fatalf("seed vendor: %v", err)
	}
	return u
}

func TestCreateVendorRejectsDuplicateEmail(t *testing.T) {
	svc, store, _ := newTestService()
	seedVendor(t, store, "vendor@example.com")

	_, err := svc.CreateVendor(context.Background(), CreateVendorParams{
		Name: "Second", Email: "Vendor@Example.com", Password: "secret123",
	})

	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindConflict {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestCreateVendorHashesPassword(t *testing.T) {
	svc, store, _ := newTestService()

	user, err := svc.CreateVendor(context.Background(), CreateVendorParams{
		Name: "New Vendor", Email: "new@example.com", Password: "secret123",
	})
	if err != nil {
		t.Fatalf("CreateVendor returned error: %v", err)
	}

	stored := store.users[user.ID]
	if stored.PasswordHash == "secret123" {
		t.Fatal("password stored in plain text")
	}
	if err := password.Compare(stored.PasswordHash, "secret123"); err != nil {
		t.Error("stored hash does not verify against the password")
	}
	if stored.Role != RoleVendor || stored.Country != "India" {
		t.Errorf("unexpected vendor record: %+v", stored)
	}
}

func TestCreateMasterAdminRequiresPasswordConfirmation(t *testing.T) {
	svc, store, _ := newTestService()

	hash, err := password.Hash("caller-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	caller, err := store.Create(context.Background(), repository.CreateUserParams{
		Name: "Caller", Email: "caller@example.com", PasswordHash: hash, Role: RoleMaster,
	})
	if err != nil {
		t.Fatalf("seed caller: %v", err)
	}

	_, err = svc.CreateMasterAdmin(context.Background(), caller.ID, CreateMasterAdminParams{
		Name: "New Admin", Email: "admin2@example.com", Password: "secret123",
		ConfirmationPassword: "wrong",
	})
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnauthorized {
		t.Fatalf("expected unauthorized for wrong confirmation, got %v", err)
	}

	created, err := svc.CreateMasterAdmin(context.Background(), caller.ID, CreateMasterAdminParams{
		Name: "New Admin", Email: "admin2@example.com", Password: "secret123",
		ConfirmationPassword: "caller-secret",
	})
	if err != nil {
		t.Fatalf("CreateMasterAdmin returned error: %v", err)
	}
	if created.Role != RoleMaster {
		t.Errorf("Role = %q, want Master", created.Role)
	}
}

func TestVendorDeletionDetachesLeadsAtomically(t *testing.T) {
	svc, store, _ := newTestService()
	vendor := seedVendor(t, store, "vendor@example.com")
	other := seedVendor(t, store, "other@example.com")

	for i := 0; i < 3; i++ {
		id := vendor.ID
		store.leads[uuid.New()] = &id
	}
	otherLead := uuid.New()
	otherID := other.ID
	store.leads[otherLead] = &otherID

	code, err := svc.RequestVendorDeletion(context.Background(), vendor.ID)
	if err != nil {
		t.Fatalf("RequestVendorDeletion returned error: %v", err)
	}

	detached, err := svc.ConfirmVendorDeletion(context.Background(), vendor.ID, code)
	if err != nil {
		t.Fatalf("ConfirmVendorDeletion returned error: %v", err)
	}
	if detached != 3 {
		t.Errorf("detached = %d, want 3", detached)
	}
	if _, exists := store.users[vendor.ID]; exists {
		t.Error("vendor should be gone")
	}
	for leadID, vendorID := range store.leads {
		if leadID == otherLead {
			if vendorID == nil || *vendorID != other.ID {
				t.Error("unrelated vendor's lead was detached")
			}
			continue
		}
		if vendorID != nil {
			t.Error("lead still references the deleted vendor")
		}
	}
}

func TestVendorDeletionRejectsWrongCode(t *testing.T) {
	svc, store, _ := newTestService()
	vendor := seedVendor(t, store, "vendor@example.com")

	if _, err := svc.RequestVendorDeletion(context.Background(), vendor.ID); err != nil {
		t.Fatalf("RequestVendorDeletion returned error: %v", err)
	}

	_, err := svc.ConfirmVendorDeletion(context.Background(), vendor.ID, "000000")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindBadRequest {
		t.Fatalf("expected bad request for wrong code, got %v", err)
	}
	if store.deleteCalls != 0 {
		t.Error("delete must not run before the code is verified")
	}
	if _, exists := store.users[vendor.ID]; !exists {
		t.Error("vendor should survive a failed confirmation")
	}
}

func TestVendorDeletionCodeIsSingleUse(t *testing.T) {
	svc, store, codes := newTestService()
	vendor := seedVendor(t, store, "vendor@example.com")

	code, err := svc.RequestVendorDeletion(context.Background(), vendor.ID)
	if err != nil {
		t.Fatalf("RequestVendorDeletion returned error: %v", err)
	}
	if _, err := svc.ConfirmVendorDeletion(context.Background(), vendor.ID, code); err != nil {
		t.Fatalf("ConfirmVendorDeletion returned error: %v", err)
	}
	if len(codes.values) != 0 {
		t.Error("confirmation code should be consumed")
	}
}

func TestRequestVendorDeletionRejectsMasterAccounts(t *testing.T) {
	svc, store, _ := newTestService()
	master, err := store.Create(context.Background(), repository.CreateUserParams{
		Name: "Boss", Email: "boss@example.com", PasswordHash: "x", Role: RoleMaster,
	})
	if err != nil {
		t.Fatalf("seed master: %v", err)
	}

	_, err = svc.RequestVendorDeletion(context.Background(), master.ID)
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindBadRequest {
		t.Fatalf("expected bad request for non-vendor, got %v", err)
	}
}

func TestUpdateProfileNoChangesReturnsCurrentUser(t *testing.T) {
	svc, store, _ := newTestService()
	vendor := seedVendor(t, store, "vendor@example.com")

	before := store.users[vendor.ID]
	after, err := svc.UpdateProfile(context.Background(), vendor.ID, ProfileUpdateParams{})
	if err != nil {
		t.Fatalf("UpdateProfile returned error: %v", err)
	}
	if after.Name != before.Name || after.Email != before.Email {
		t.Errorf("no-op update changed the user: %+v", after)
	}
}
