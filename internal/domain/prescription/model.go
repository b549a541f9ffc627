package prescription

import (
	"time"

	"github.com/google/uuid"
)

// Medicine is one line item on a prescription, stored as JSONB.
type Medicine struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// Prescription maps to the prescription table. Rows are immutable after
// insert: there is no update or delete anywhere in this package, and the
// table grants no UPDATE/DELETE to the application role.
//
// PatientName and PatientAge are snapshots taken from the patient profile
// at issue time, so later profile edits never change what an issued
// prescription says.
type Prescription struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName string     `db:"patient_name" json:"patient_name"`
	PatientAge  int        `db:"patient_age" json:"patient_age"`
	Diagnosis   string     `db:"diagnosis" json:"diagnosis"`
	Medicines   []Medicine `db:"medicines" json:"medicines"`
	Advice      *string    `db:"advice" json:"advice,omitempty"`
	IssuedAt    time.Time  `db:"issued_at" json:"issued_at"`
}
