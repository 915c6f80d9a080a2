package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
	"github.com/FolkodeGroup/mediapp/pkg/config"
	"github.com/FolkodeGroup/mediapp/pkg/crypto"
	jwtpkg "github.com/FolkodeGroup/mediapp/pkg/jwt"
	"github.com/FolkodeGroup/mediapp/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

type userRepoMock struct {
	createFunc     func(ctx context.Context, user *domain.User) error
	getByLoginFunc func(ctx context.Context, login string) (*domain.User, error)
	getByIDFunc    func(ctx context.Context, id string) (*domain.User, error)
	failedFunc     func(ctx context.Context, userID string) (int, error)
	successFunc    func(ctx context.Context, userID string, at time.Time) error
}

func (m userRepoMock) CreateUser(ctx context.Context, user *domain.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	return nil
}

func (m userRepoMock) GetUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	if m.getByLoginFunc != nil {
		return m.getByLoginFunc(ctx, login)
	}
	return nil, repository.ErrNotFound
}

func (m userRepoMock) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m userRepoMock) RecordFailedLogin(ctx context.Context, userID string) (int, error) {
	if m.failedFunc != nil {
		return m.failedFunc(ctx, userID)
	}
	return 1, nil
}

func (m userRepoMock) RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error {
	if m.successFunc != nil {
		return m.successFunc(ctx, userID, at)
	}
	return nil
}

func testConfig() config.APIConfig {
	return config.APIConfig{
		JWTSecret:        "test-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		MaxLoginAttempts: 5,
		BcryptCost:       crypto.MinCost,
	}
}

func hashedUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := crypto.HashPassword(password, crypto.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &domain.User{ID: "user-1", Username: "usuario", Email: "usuario@example.com", PasswordHash: hash, Role: "medico", Active: true}
}

func TestLoginIssuesTokens(t *testing.T) {
	user := hashedUser(t, "123456")
	var stamped bool
	repo := userRepoMock{
		getByLoginFunc: func(_ context.Context, login string) (*domain.User, error) {
			if login != "usuario" {
				t.Fatalf("unexpected login lookup: %q", login)
			}
			u := *user
			return &u, nil
		},
		successFunc: func(_ context.Context, userID string, _ time.Time) error {
			stamped = userID == "user-1"
			return nil
		},
	}
	refresh := NewMemoryRefreshStore()
	svc := New(repo, NewMemoryAttemptTracker(5, time.Minute, time.Minute), refresh, logger.Discard(), testConfig())

	got, tokens, err := svc.Login(context.Background(), LoginInput{Login: " usuario ", Password: "123456", IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "user-1" || got.LastLoginAt == nil {
		t.Fatalf("unexpected user: %+v", got)
	}
	if !stamped {
		t.Fatalf("expected successful login to be recorded")
	}
	claims, err := jwtpkg.Parse(tokens.AccessToken, "test-secret")
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "medico" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if tokens.RefreshToken == "" {
		t.Fatalf("expected refresh token")
	}
	if userID, err := refresh.Lookup(context.Background(), tokens.RefreshToken); err != nil || userID != "user-1" {
		t.Fatalf("refresh token not stored: %q %v", userID, err)
	}
}

func TestLoginWrongPasswordReportsRemaining(t *testing.T) {
	user := hashedUser(t, "123456")
	repo := userRepoMock{
		getByLoginFunc: func(context.Context, string) (*domain.User, error) { return user, nil },
		failedFunc:     func(context.Context, string) (int, error) { return 3, nil },
	}
	svc := New(repo, nil, nil, logger.Discard(), testConfig())

	_, _, err := svc.Login(context.Background(), LoginInput{Login: "usuario", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var credErr *CredentialsError
	if !errors.As(err, &credErr) || credErr.Remaining != 2 {
		t.Fatalf("expected 2 remaining attempts, got %+v", credErr)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc := New(userRepoMock{}, nil, nil, logger.Discard(), testConfig())
	_, _, err := svc.Login(context.Background(), LoginInput{Login: "ghost", Password: "x"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var credErr *CredentialsError
	if errors.As(err, &credErr) {
		t.Fatalf("unknown users must not reveal remaining attempts")
	}
}

func TestLoginLockedAccount(t *testing.T) {
	user := hashedUser(t, "123456")
	user.FailedAttempts = 5
	repo := userRepoMock{
		getByLoginFunc: func(context.Context, string) (*domain.User, error) { return user, nil },
	}
	svc := New(repo, nil, nil, logger.Discard(), testConfig())
	if _, _, err := svc.Login(context.Background(), LoginInput{Login: "usuario", Password: "123456"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestLoginBlocksAddressAfterRepeatedFailures(t *testing.T) {
	tracker := NewMemoryAttemptTracker(2, time.Minute, time.Minute)
	svc := New(userRepoMock{}, tracker, nil, logger.Discard(), testConfig())
	ctx := context.Background()
	in := LoginInput{Login: "ghost", Password: "x", IP: "192.0.2.7"}

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Login(ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, _, err := svc.Login(ctx, in); !errors.Is(err, ErrIPBlocked) {
		t.Fatalf("expected ErrIPBlocked, got %v", err)
	}
	other := LoginInput{Login: "ghost", Password: "x", IP: "192.0.2.8"}
	if _, _, err := svc.Login(ctx, other); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("other addresses must not be blocked, got %v", err)
	}
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	user := hashedUser(t, "123456")
	repo := userRepoMock{
		getByIDFunc: func(_ context.Context, id string) (*domain.User, error) {
			if id != "user-1" {
				t.Fatalf("unexpected id %q", id)
			}
			return user, nil
		},
	}
	store := NewMemoryRefreshStore()
	if err := store.Save(context.Background(), "refresh-abc", "user-1", time.Hour); err != nil {
		t.Fatalf("save: %v", err)
	}
	svc := New(repo, nil, store, logger.Discard(), testConfig())

	access, err := svc.Refresh(context.Background(), "refresh-abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := jwtpkg.Parse(access, "test-secret"); err != nil {
		t.Fatalf("invalid access token: %v", err)
	}
	if _, err := svc.Refresh(context.Background(), "unknown"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestRefreshDisabledWithoutStore(t *testing.T) {
	svc := New(userRepoMock{}, nil, nil, logger.Discard(), testConfig())
	if _, err := svc.Refresh(context.Background(), "anything"); !errors.Is(err, ErrRefreshDisabled) {
		t.Fatalf("expected ErrRefreshDisabled, got %v", err)
	}
}

func TestRegisterHashesPassword(t *testing.T) {
	var stored *domain.User
	repo := userRepoMock{
		createFunc: func(_ context.Context, user *domain.User) error {
			stored = user
			return nil
		},
	}
	svc := New(repo, nil, nil, logger.Discard(), testConfig())
	user, err := svc.Register(context.Background(), RegisterInput{Username: "ana", Email: " Ana@Example.com ", Password: "secret1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored.ID != user.ID {
		t.Fatalf("expected user to be persisted")
	}
	if user.Email != "ana@example.com" || user.Role != defaultRole || !user.Active {
		t.Fatalf("unexpected user: %+v", user)
	}
	if err := crypto.ComparePassword(user.PasswordHash, "secret1"); err != nil {
		t.Fatalf("password hash mismatch: %v", err)
	}
	if cost, err := bcrypt.Cost(user.PasswordHash); err != nil || cost != crypto.MinCost {
		t.Fatalf("expected configured cost %d, got %d (%v)", crypto.MinCost, cost, err)
	}
}

func TestAuthorize(t *testing.T) {
	user := hashedUser(t, "123456")
	repo := userRepoMock{
		getByIDFunc: func(context.Context, string) (*domain.User, error) { return user, nil },
	}
	svc := New(repo, nil, nil, logger.Discard(), testConfig())
	token, err := jwtpkg.GenerateToken("user-1", "medico", "test-secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	got, claims, err := svc.Authorize(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "user-1" || claims.Role != "medico" {
		t.Fatalf("unexpected authorize result: %+v %+v", got, claims)
	}
	if _, _, err := svc.Authorize(context.Background(), "  "); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
}
