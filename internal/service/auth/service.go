package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
	"github.com/FolkodeGroup/mediapp/pkg/config"
	"github.com/FolkodeGroup/mediapp/pkg/crypto"
	jwtpkg "github.com/FolkodeGroup/mediapp/pkg/jwt"
)

const defaultRole = "medico"

// Service handles authentication workflows.
type Service struct {
	users    repository.UserRepository
	attempts AttemptTracker
	refresh  RefreshStore
	logger   *slog.Logger
	cfg      config.APIConfig
	now      func() time.Time
}

// New constructs a Service. attempts and refresh may be nil, which disables
// per-address blocking and refresh tokens respectively.
func New(users repository.UserRepository, attempts AttemptTracker, refresh RefreshStore, logger *slog.Logger, cfg config.APIConfig) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{users: users, attempts: attempts, refresh: refresh, logger: logger, cfg: cfg, now: time.Now}
}

// TokenPair contains access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// LoginInput carries the credentials of one login attempt.
type LoginInput struct {
	Login    string
	Password string
	IP       string
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username string
	Name     string
	Email    string
	Password string
	Role     string
}

// Login authenticates a user and returns tokens.
func (s Service) Login(ctx context.Context, in LoginInput) (*domain.User, TokenPair, error) {
	login := strings.TrimSpace(in.Login)
	if s.attempts != nil && in.IP != "" {
		blocked, err := s.attempts.Blocked(ctx, in.IP)
		if err != nil {
			s.logger.Warn("attempt tracker unavailable", "error", err, "ip", in.IP)
		} else if blocked {
			return nil, TokenPair{}, ErrIPBlocked
		}
	}

	user, err := s.users.GetUserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordAddressFailure(ctx, in.IP)
			s.logger.Warn("login failed: unknown user", "login", login, "ip", in.IP)
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	if user.Locked(s.cfg.MaxLoginAttempts) {
		s.logger.Warn("login rejected: account locked", "user_id", user.ID, "failed_attempts", user.FailedAttempts, "ip", in.IP)
		return nil, TokenPair{}, ErrAccountLocked
	}

	if err := crypto.ComparePassword(user.PasswordHash, in.Password); err != nil {
		attempts, recErr := s.users.RecordFailedLogin(ctx, user.ID)
		if recErr != nil {
			s.logger.Error("record failed login", "error", recErr, "user_id", user.ID)
			attempts = user.FailedAttempts + 1
		}
		s.recordAddressFailure(ctx, in.IP)
		remaining := -1
		if s.cfg.MaxLoginAttempts > 0 {
			remaining = max(s.cfg.MaxLoginAttempts-attempts, 0)
		}
		s.logger.Warn("login failed: wrong password", "user_id", user.ID, "failed_attempts", attempts, "ip", in.IP)
		return nil, TokenPair{}, &CredentialsError{Remaining: remaining}
	}

	now := s.now().UTC()
	if err := s.users.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		s.logger.Error("record successful login", "error", err, "user_id", user.ID)
	}
	if s.attempts != nil && in.IP != "" {
		if err := s.attempts.Reset(ctx, in.IP); err != nil {
			s.logger.Warn("reset attempt counter", "error", err, "ip", in.IP)
		}
	}
	user.FailedAttempts = 0
	user.LastLoginAt = &now

	tokens, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role, "ip", in.IP)
	return user, tokens, nil
}

// Register creates a new active account.
func (s Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	hash, err := crypto.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = defaultRole
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     strings.TrimSpace(in.Username),
		Name:         strings.TrimSpace(in.Name),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if s.refresh == nil {
		return "", ErrRefreshDisabled
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return "", ErrInvalidRefreshToken
	}
	userID, err := s.refresh.Lookup(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidRefreshToken
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if user.Locked(s.cfg.MaxLoginAttempts) {
		return "", ErrAccountLocked
	}
	access, err := jwtpkg.GenerateToken(user.ID, user.Role, s.cfg.JWTSecret, s.accessTTL())
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return access, nil
}

// Authorize validates a bearer token and returns the associated user and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, ErrTokenRequired
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	if !user.Active {
		return nil, nil, ErrAccountLocked
	}
	return user, claims, nil
}

func (s Service) issueTokens(ctx context.Context, user *domain.User) (TokenPair, error) {
	ttl := s.accessTTL()
	access, err := jwtpkg.GenerateToken(user.ID, user.Role, s.cfg.JWTSecret, ttl)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	pair := TokenPair{AccessToken: access, ExpiresAt: s.now().UTC().Add(ttl)}
	if s.refresh == nil {
		return pair, nil
	}
	refresh, err := randomToken(32)
	if err != nil {
		return TokenPair{}, err
	}
	refreshTTL := s.cfg.RefreshTokenTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if err := s.refresh.Save(ctx, refresh, user.ID, refreshTTL); err != nil {
		s.logger.Warn("refresh token not stored", "error", err, "user_id", user.ID)
		return pair, nil
	}
	pair.RefreshToken = refresh
	return pair, nil
}

func (s Service) accessTTL() time.Duration {
	if s.cfg.AccessTokenTTL > 0 {
		return s.cfg.AccessTokenTTL
	}
	return 24 * time.Hour
}

func (s Service) recordAddressFailure(ctx context.Context, ip string) {
	if s.attempts == nil || ip == "" {
		return
	}
	count, err := s.attempts.RecordFailure(ctx, ip)
	if err != nil {
		s.logger.Warn("record address failure", "error", err, "ip", ip)
		return
	}
	if count >= s.attempts.Limit() {
		s.logger.Warn("address blocked after repeated failures", "ip", ip, "failures", count)
	}
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
