package repository

import (
	"context"
	"time"

	"github.com/FolkodeGroup/mediapp/internal/domain"
)

// UserRepository persists users and their login bookkeeping.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	// GetUserByLogin matches the identifier against username or email.
	GetUserByLogin(ctx context.Context, login string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	// RecordFailedLogin increments the failed-attempt counter and returns the new value.
	RecordFailedLogin(ctx context.Context, userID string) (int, error)
	RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error
}

// PatientRepository reads patient records.
type PatientRepository interface {
	ListPatients(ctx context.Context) ([]domain.Patient, error)
	GetPatient(ctx context.Context, id int64) (*domain.Patient, error)
}
