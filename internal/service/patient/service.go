package patient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"log/slog"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
)

var errInvalidPatientID = errors.New("patient id must be a positive integer")

// Service exposes read access to patient records.
type Service struct {
	patients repository.PatientRepository
	logger   *slog.Logger
}

// New returns a patient service.
func New(patients repository.PatientRepository, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{patients: patients, logger: logger}
}

// List returns every patient ordered by last name, then first name.
func (s Service) List(ctx context.Context) ([]domain.Patient, error) {
	patients, err := s.patients.ListPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	sort.SliceStable(patients, func(i, j int) bool {
		a, b := patients[i], patients[j]
		if c := strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName)); c != 0 {
			return c < 0
		}
		if c := strings.Compare(strings.ToLower(a.FirstName), strings.ToLower(b.FirstName)); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return patients, nil
}

// Get fetches one patient.
func (s Service) Get(ctx context.Context, id int64) (*domain.Patient, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: %s", repository.ErrInvalidArgument, errInvalidPatientID)
	}
	patient, err := s.patients.GetPatient(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("get patient", "error", err, "patient_id", id)
		}
		return nil, err
	}
	return patient, nil
}
