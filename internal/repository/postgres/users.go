package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
)

const (
	userColumns = `id, username, name, email, password_hash, role, active, failed_attempts, last_login_at, created_at`
	userInsert  = `INSERT INTO users (id, username, name, email, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	userByLogin = `SELECT ` + userColumns + ` FROM users WHERE username = $1 OR email = $1`
	userByID    = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	userFailed  = `UPDATE users SET failed_attempts = failed_attempts + 1 WHERE id = $1 RETURNING failed_attempts`
	userSuccess = `UPDATE users SET failed_attempts = 0, last_login_at = $2 WHERE id = $1`
)

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return repository.ErrInvalidArgument
	}
	_, err := r.db.Exec(ctx, userInsert,
		user.ID,
		user.Username,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Active,
		user.CreatedAt,
	)
	return translateError(err)
}

// GetUserByLogin fetches a user by username or email.
func (r *Repository) GetUserByLogin(ctx context.Context, login string) (*domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, repository.ErrNotFound
	}
	return r.scanUser(ctx, userByLogin, login)
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(ctx, userByID, id)
}

// RecordFailedLogin increments the failed-attempt counter.
func (r *Repository) RecordFailedLogin(ctx context.Context, userID string) (int, error) {
	var attempts int
	if err := r.db.QueryRow(ctx, userFailed, userID).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("record failed login: %w", translateError(err))
	}
	return attempts, nil
}

// RecordSuccessfulLogin resets the counter and stamps the login time.
func (r *Repository) RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error {
	tag, err := r.db.Exec(ctx, userSuccess, userID, at.UTC())
	if err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) scanUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Active,
		&u.FailedAttempts,
		&u.LastLoginAt,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &u, nil
}
