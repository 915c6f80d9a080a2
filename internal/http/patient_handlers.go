package httpx

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/FolkodeGroup/mediapp/internal/domain"
	"github.com/FolkodeGroup/mediapp/internal/repository"
)

const birthDateLayout = "2006-01-02"

type patientResponse struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DNI             string `json:"dni"`
	MedicalRecordID string `json:"medical_record_id"`
	BirthDate       string `json:"birth_date,omitempty"`
	Gender          string `json:"gender"`
	Email           string `json:"email,omitempty"`
}

func marshalPatient(p domain.Patient) patientResponse {
	out := patientResponse{
		ID:              p.ID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		DNI:             p.DNI,
		MedicalRecordID: p.MedicalRecordID,
		Gender:          p.Gender,
		Email:           p.Email,
	}
	if !p.BirthDate.IsZero() {
		out.BirthDate = p.BirthDate.Format(birthDateLayout)
	}
	return out
}

func (r *Router) handleListPatients(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	patients, err := r.patients.List(req.Context())
	if err != nil {
		r.logger.Error("list patients failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	items := make([]patientResponse, 0, len(patients))
	for _, p := range patients {
		items = append(items, marshalPatient(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"patients": items,
		"total":    len(items),
	})
}

func (r *Router) handleGetPatient(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	id, err := strconv.ParseInt(strings.TrimSpace(req.PathValue("id")), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid patient id")
		return
	}
	p, err := r.patients.Get(req.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"patient": marshalPatient(*p)})
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "patient not found")
	case errors.Is(err, repository.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid patient id")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
