package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/domain/identity"
)

// ErrNotParticipant is returned when the caller is neither the doctor nor
// the patient on the appointment.
var ErrNotParticipant = errors.New("not a participant of this appointment")

// ProfileDirectory is the slice of the identity service the booking flow
// needs. Satisfied by *identity.Service.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*identity.Profile, error)
}

type Service struct {
	repo     Repository
	profiles ProfileDirectory
}

func NewService(repo Repository, profiles ProfileDirectory) *Service {
	return &Service{repo: repo, profiles: profiles}
}

// Book creates an appointment between a patient and a doctor. Both profiles
// must exist and carry the expected roles.
func (s *Service) Book(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if a.DoctorID == uuid.Nil {
		return fmt.Errorf("doctor_id is required")
	}
	if a.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled_at is required")
	}

	doctor, err := s.profiles.GetProfile(ctx, a.DoctorID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fmt.Errorf("doctor profile not found")
		}
		return err
	}
	if doctor.Role != identity.RoleDoctor {
		return fmt.Errorf("doctor_id does not refer to a doctor profile")
	}

	patient, err := s.profiles.GetProfile(ctx, a.PatientID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fmt.Errorf("patient profile not found")
		}
		return err
	}
	if patient.Role != identity.RolePatient {
		return fmt.Errorf("patient_id does not refer to a patient profile")
	}

	a.Status = StatusBooked
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// UpdateStatus moves an appointment through its lifecycle. Only the doctor
// or the patient on the appointment may change it, and only along allowed
// transitions: booked may become completed or cancelled, nothing else moves.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, actingID uuid.UUID, newStatus string) (*Appointment, error) {
	if newStatus != StatusCompleted && newStatus != StatusCancelled && newStatus != StatusBooked {
		return nil, fmt.Errorf("invalid status: %s", newStatus)
	}

	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actingID != a.DoctorID && actingID != a.PatientID {
		return nil, ErrNotParticipant
	}
	if !a.CanTransitionTo(newStatus) {
		return nil, fmt.Errorf("cannot move appointment from %s to %s", a.Status, newStatus)
	}

	a.Status = newStatus
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// HasCareRelationship reports whether the doctor has at least one
// non-cancelled appointment with the patient.
func (s *Service) HasCareRelationship(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	return s.repo.Exists(ctx, doctorID, patientID)
}
