package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. A cancelled appointment does not establish a care
// relationship between the doctor and the patient.
const (
	StatusBooked    = "booked"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Appointment maps to the appointment table.
type Appointment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ScheduledAt time.Time `db:"scheduled_at" json:"scheduled_at"`
	Reason      *string   `db:"reason" json:"reason,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// allowedTransitions maps a current status to the statuses it may move to.
// Completed and cancelled are terminal.
var allowedTransitions = map[string][]string{
	StatusBooked: {StatusCompleted, StatusCancelled},
}

// CanTransitionTo reports whether the appointment may move to newStatus.
func (a *Appointment) CanTransitionTo(newStatus string) bool {
	for _, s := range allowedTransitions[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}
