package prescription

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden means the caller does not hold the doctor capability.
	ErrForbidden = errors.New("caller is not authorized to issue prescriptions")

	// ErrPatientNotFound means the target patient profile does not exist.
	ErrPatientNotFound = errors.New("patient not found")

	// ErrNoCareRelationship means the doctor has no non-cancelled
	// appointment with the patient.
	ErrNoCareRelationship = errors.New("no care relationship with this patient")

	// ErrPrescriptionNotFound means the prescription does not exist.
	ErrPrescriptionNotFound = errors.New("prescription not found")
)

// FieldError reports a validation failure on a single request field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
