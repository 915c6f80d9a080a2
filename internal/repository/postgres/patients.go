package postgres

import (
	"context"
	"strings"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
)

const (
	patientColumns = `id, first_name, last_name, dni, medical_record_id, birth_date, gender, email, created_at`
	patientList    = `SELECT ` + patientColumns + ` FROM patients ORDER BY last_name, first_name, id`
	patientByID    = `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// ListPatients returns every patient ordered by name.
func (r *Repository) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	rows, err := r.db.Query(ctx, patientList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	patients := make([]domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return patients, nil
}

// GetPatient returns a single patient by identifier.
func (r *Repository) GetPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	if id <= 0 {
		return nil, repository.ErrInvalidArgument
	}
	p, err := scanPatient(r.db.QueryRow(ctx, patientByID, id))
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func scanPatient(row rowScanner) (domain.Patient, error) {
	var p domain.Patient
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.DNI,
		&p.MedicalRecordID,
		&p.BirthDate,
		&p.Gender,
		&p.Email,
		&p.CreatedAt,
	)
	if err != nil {
		return p, err
	}
	p.Gender = normalizeGender(p.Gender)
	return p, nil
}

// normalizeGender maps legacy or free-text values onto the stored codes.
func normalizeGender(raw string) string {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if domain.ValidGender(code) {
		return code
	}
	return domain.GenderOther
}
