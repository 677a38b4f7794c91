package service

import (
	"context"
	"errors"
	"strings"
	"testing"
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

type fakeUsers struct {
	users       map[string]repository.User
	resetHashes map[uuid.UUID]string
	resetExpiry map[uuid.UUID]time.Time
	passwords   map[uuid.UUID]string
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:       map[string]repository.User{},
		resetHashes: map[uuid.UUID]string{},
		resetExpiry: map[uuid.UUID]time.Time{},
		passwords:   map[uuid.UUID]string{},
	}
}

func (f *fakeUsers) GetUserByEmail(_ context.Context, email string) (repository.User, error) {
	u, ok := f.users[strings.ToLower(email)]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) SetResetToken(_ context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	f.resetHashes[userID] = tokenHash
	f.resetExpiry[userID] = expiresAt
	return nil
}

func (f *fakeUsers) GetUserByResetToken(_ context.Context, tokenHash string) (uuid.UUID, time.Time, error) {
	for id, hash := range f.resetHashes {
		if hash == tokenHash {
			return id, f.resetExpiry[id], nil
		}
	}
	return uuid.Nil, time.Time{}, repository.ErrNotFound
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID uuid.UUID, passwordHash string) error {
	f.passwords[userID] = passwordHash
	delete(f.resetHashes, userID)
	delete(f.resetExpiry, userID)
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }
func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
		ResetTokenTTL:  30 * time.Minute,
		AppBaseURL:     "https://portal.example.com/",
	}
}

func seedUser(t *testing.T, store *fakeUsers, email, plain, role string) repository.User {
	t.Helper()
	hash, err := password.Hash(plain)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := repository.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	store.users[strings.ToLower(email)] = u
	return u
}

func TestLoginIssuesTokenWithIdentityClaims(t *testing.T) {
	store := newFakeUsers()
	user := seedUser(t, store, "master@example.com", "secret123", "Master")
	bus := &recordingBus{}
	svc := New(store, testConfig(), bus, logger.New("development"))

	signed, authed, err := svc.Login(context.Background(), "master@example.com", "secret123")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if authed.ID != user.ID || authed.Role != "Master" {
		t.Errorf("unexpected authenticated user: %+v", authed)
	}

	parsed, err := jwt.Parse(signed, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != user.ID.String() {
		t.Errorf("sub = %v, want %s", claims["sub"], user.ID)
	}
	if claims["name"] != "Test User" || claims["role"] != "Master" {
		t.Errorf("identity claims missing: %v", claims)
	}
}

func TestLoginRejectsWrongPasswordAndUnknownEmailAlike(t *testing.T) {
	store := newFakeUsers()
	seedUser(t, store, "master@example.com", "secret123", "Master")
	svc := New(store, testConfig(), &recordingBus{}, logger.New("development"))

	_, _, wrongPassword := svc.Login(context.Background(), "master@example.com", "nope")
	_, _, unknownEmail := svc.Login(context.Background(), "ghost@example.com", "nope")

	for _, err := range []error{wrongPassword, unknownEmail} {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) || appErr.Kind != apperr.KindUnauthorized {
			t.Fatalf("expected unauthorized, got %v", err)
		}
	}
	if wrongPassword.Error() != unknownEmail.Error() {
		t.Error("wrong password and unknown email should be indistinguishable")
	}
}

func TestForgotPasswordPublishesResetURL(t *testing.T) {
	store := newFakeUsers()
	user := seedUser(t, store, "vendor@example.com", "secret123", "Vendor")
	bus := &recordingBus{}
	svc := New(store, testConfig(), bus, logger.New("development"))

	if err := svc.ForgotPassword(context.Background(), "vendor@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(bus.published))
	}
	evt, ok := bus.published[0].(events.PasswordResetRequested)
	if !ok {
		t.Fatalf("unexpected event type %T", bus.published[0])
	}
	if evt.Email != "vendor@example.com" {
		t.Errorf("Email = %q", evt.Email)
	}
	if !strings.HasPrefix(evt.ResetURL, "https://portal.example.com/reset-password?token=") {
		t.Errorf("ResetURL = %q", evt.ResetURL)
	}

	// Only the digest is stored, never the raw token.
	raw := strings.TrimPrefix(evt.ResetURL, "https://portal.example.com/reset-password?token=")
	if stored := store.resetHashes[user.ID]; stored == raw {
		t.Error("raw reset token was persisted")
	} else if stored != token.HashSHA256(raw) {
		t.Error("stored digest does not match the issued token")
	}
}

func TestForgotPasswordIsSilentForUnknownEmail(t *testing.T) {
	bus := &recordingBus{}
	svc := New(newFakeUsers(), testConfig(), bus, logger.New("development"))

	if err := svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email must not surface an error, got %v", err)
	}
	if len(bus.published) != 0 {
		t.Errorf("no event should be published for unknown emails, got %d", len(bus.published))
	}
}

func TestResetPasswordConsumesToken(t *testing.T) {
	store := newFakeUsers()
	user := seedUser(t, store, "vendor@example.com", "oldpassword", "Vendor")
	bus := &recordingBus{}
	svc := New(store, testConfig(), bus, logger.New("development"))

	if err := svc.ForgotPassword(context.Background(), "vendor@example.com"); err != nil {
		t.Fatalf("ForgotPassword returned error: %v", err)
	}
	evt := bus.published[0].(events.PasswordResetRequested)
	raw := strings.TrimPrefix(evt.ResetURL, "https://portal.example.com/reset-password?token=")

	if err := svc.ResetPassword(context.Background(), raw, "newpassword"); err != nil {
		t.Fatalf("ResetPassword returned error: %v", err)
	}
	newHash := store.passwords[user.ID]
	if err := password.Compare(newHash, "newpassword"); err != nil {
		t.Error("new password does not verify against stored hash")
	}

	// Second use of the same token must fail.
	if err := svc.ResetPassword(context.Background(), raw, "another"); err == nil {
		t.Error("reset token should be single use")
	}
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	store := newFakeUsers()
	user := seedUser(t, store, "vendor@example.com", "oldpassword", "Vendor")
	svc := New(store, testConfig(), &recordingBus{}, logger.New("development"))

	raw, err := token.GenerateRandomToken(32)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	store.resetHashes[user.ID] = token.HashSHA256(raw)
	store.resetExpiry[user.ID] = time.Now().Add(-time.Minute)

	err = svc.ResetPassword(context.Background(), raw, "newpassword")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.KindBadRequest {
		t.Fatalf("expected bad request for expired token, got %v", err)
	}
}
