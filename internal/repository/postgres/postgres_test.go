package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
)

func newMockRepository(t *testing.T) (*Repository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockDB, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("new mock pool: %v", err)
	}
	t.Cleanup(mockDB.Close)
	return New(mockDB), mockDB
}

func expectationsMet(t *testing.T, mockDB pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mockDB.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var userRowColumns = []string{"id", "username", "name", "email", "password_hash", "role", "active", "failed_attempts", "last_login_at", "created_at"}

func TestGetUserByLogin(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	created := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	lastLogin := created.Add(time.Hour)

	mockDB.ExpectQuery("SELECT .+ FROM users WHERE username = \\$1 OR email = \\$1").
		WithArgs("usuario").
		WillReturnRows(pgxmock.NewRows(userRowColumns).
			AddRow("user-1", "usuario", "Usuario Demo", "usuario@example.com", []byte("hash"), "medico", true, 2, &lastLogin, created))

	user, err := repo.GetUserByLogin(context.Background(), "  usuario ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" || user.Role != "medico" || user.FailedAttempts != 2 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if user.LastLoginAt == nil || !user.LastLoginAt.Equal(lastLogin) {
		t.Fatalf("unexpected last login: %v", user.LastLoginAt)
	}
	expectationsMet(t, mockDB)
}

func TestGetUserByLoginNotFound(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	mockDB.ExpectQuery("SELECT .+ FROM users").
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetUserByLogin(context.Background(), "ghost"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mockDB)
}

func TestGetUserByLoginEmptySkipsQuery(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	if _, err := repo.GetUserByLogin(context.Background(), "   "); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mockDB)
}

func TestCreateUserConflict(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	user := &domain.User{ID: "user-2", Username: "ana", Email: "ana@example.com", PasswordHash: []byte("h"), Role: "medico", Active: true, CreatedAt: time.Now().UTC()}

	mockDB.ExpectExec("INSERT INTO users").
		WithArgs(user.ID, user.Username, user.Name, user.Email, user.PasswordHash, user.Role, user.Active, user.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	if err := repo.CreateUser(context.Background(), user); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	expectationsMet(t, mockDB)
}

func TestRecordFailedLogin(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	mockDB.ExpectQuery("UPDATE users SET failed_attempts = failed_attempts \\+ 1").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"failed_attempts"}).AddRow(3))

	attempts, err := repo.RecordFailedLogin(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
	expectationsMet(t, mockDB)
}

func TestRecordSuccessfulLoginMissingUser(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	at := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	mockDB.ExpectExec("UPDATE users SET failed_attempts = 0").
		WithArgs("user-9", at).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.RecordSuccessfulLogin(context.Background(), "user-9", at); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mockDB)
}

var patientRowColumns = []string{"id", "first_name", "last_name", "dni", "medical_record_id", "birth_date", "gender", "email", "created_at"}

func TestListPatients(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT .+ FROM patients ORDER BY last_name").
		WillReturnRows(pgxmock.NewRows(patientRowColumns).
			AddRow(int64(2), "Ana", "García", "87654321", "MR002", time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC), "F", "ana.garcia@example.com", created).
			AddRow(int64(1), "Juan", "Pérez", "12345678", "MR001", time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC), "M", "juan.perez@example.com", created))

	patients, err := repo.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patients) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(patients))
	}
	if patients[0].LastName != "García" || patients[1].MedicalRecordID != "MR001" {
		t.Fatalf("unexpected patients: %+v", patients)
	}
	expectationsMet(t, mockDB)
}

func TestListPatientsNormalizesGender(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	created := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	birth := time.Date(1990, time.May, 15, 0, 0, 0, 0, time.UTC)
	mockDB.ExpectQuery("SELECT .+ FROM patients ORDER BY last_name").
		WillReturnRows(pgxmock.NewRows(patientRowColumns).
			AddRow(int64(1), "Ana", "García", "1", "MR1", birth, " f ", "a@example.com", created).
			AddRow(int64(2), "Juan", "Pérez", "2", "MR2", birth, "M", "j@example.com", created).
			AddRow(int64(3), "Sol", "Ruiz", "3", "MR3", birth, "femenino", "s@example.com", created).
			AddRow(int64(4), "Leo", "Sosa", "4", "MR4", birth, "", "l@example.com", created))

	patients, err := repo.ListPatients(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{domain.GenderFemale, domain.GenderMale, domain.GenderOther, domain.GenderOther}
	for i, p := range patients {
		if p.Gender != want[i] {
			t.Fatalf("patient %d: expected gender %q, got %q", p.ID, want[i], p.Gender)
		}
	}
	expectationsMet(t, mockDB)
}

func TestGetPatientNotFound(t *testing.T) {
	repo, mockDB := newMockRepository(t)
	mockDB.ExpectQuery("SELECT .+ FROM patients WHERE id = \\$1").
		WithArgs(int64(42)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetPatient(context.Background(), 42); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mockDB)
}

func TestGetPatientRejectsInvalidID(t *testing.T) {
	repo, _ := newMockRepository(t)
	if _, err := repo.GetPatient(context.Background(), 0); !errors.Is(err, repository.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}
