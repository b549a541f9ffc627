package identity

import (
	"time"

	"github.com/google/uuid"
)

// Role is the portal role attached to a profile. The role recorded here is
// descriptive; route-level authorization always goes through capability
// grants, not this field.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RolePatient, RoleDoctor, RoleAdmin:
		return true
	}
	return false
}

// Profile maps to the profile table. One row per person, patient or doctor.
type Profile struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	FullName    string     `db:"full_name" json:"full_name"`
	DateOfBirth *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Email       *string    `db:"email" json:"email,omitempty"`
	Phone       *string    `db:"phone" json:"phone,omitempty"`
	Role        Role       `db:"role" json:"role"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// AgeAt returns the profile's age in whole years at the given time.
// Returns 0 when the date of birth is unknown.
func (p *Profile) AgeAt(at time.Time) int {
	if p.DateOfBirth == nil {
		return 0
	}
	dob := *p.DateOfBirth
	years := at.Year() - dob.Year()
	// Not yet had the birthday this year.
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// DoctorCredentials maps to the doctor_credentials table. One row per
// doctor profile; shown on verified prescription documents.
type DoctorCredentials struct {
	ProfileID      uuid.UUID `db:"profile_id" json:"profile_id"`
	Specialization string    `db:"specialization" json:"specialization"`
	LicenseNumber  string    `db:"license_number" json:"license_number"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}
