package domain

import "time"

// Gender codes stored for patients.
const (
	GenderMale   = "M"
	GenderFemale = "F"
	GenderOther  = "O"
)

// Patient is a person under care.
type Patient struct {
	ID              int64
	FirstName       string
	LastName        string
	DNI             string
	MedicalRecordID string
	BirthDate       time.Time
	Gender          string
	Email           string
	CreatedAt       time.Time
}

// ValidGender reports whether code is one of the stored gender codes.
func ValidGender(code string) bool {
	switch code {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}
