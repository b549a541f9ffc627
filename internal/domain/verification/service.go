// Package verification implements the anonymous prescription check: anyone
// holding a prescription id can confirm the document is genuine without
// logging in. The response is a redacted projection, and a malformed id is
// indistinguishable from an unknown one so the endpoint leaks nothing about
// which identifiers exist.
package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/domain/identity"
	"github.com/carebridge/carebridge/internal/domain/prescription"
)

// ErrNotVerifiable is the only failure the anonymous path ever reports.
var ErrNotVerifiable = errors.New("prescription not verifiable")

// displayIDLen is how much of the identifier the printed document shows.
const displayIDLen = 16

// View is the redacted projection returned to anonymous verifiers. No
// doctor or patient ids, no patient contact details.
type View struct {
	DisplayID            string                  `json:"display_id"`
	IssuedAt             time.Time               `json:"issued_at"`
	DoctorName           string                  `json:"doctor_name"`
	DoctorSpecialization string                  `json:"doctor_specialization,omitempty"`
	DoctorLicenseNumber  string                  `json:"doctor_license_number,omitempty"`
	PatientName          string                  `json:"patient_name"`
	PatientAge           int                     `json:"patient_age"`
	Diagnosis            string                  `json:"diagnosis"`
	Medicines            []prescription.Medicine `json:"medicines"`
	Advice               *string                 `json:"advice,omitempty"`
}

// PrescriptionStore is the read-only slice of the prescription repository
// this package needs.
type PrescriptionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error)
}

// DoctorDirectory resolves the issuing doctor's display details. Satisfied
// by *identity.Service.
type DoctorDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*identity.Profile, error)
	GetCredentials(ctx context.Context, profileID uuid.UUID) (*identity.DoctorCredentials, error)
}

type Service struct {
	store   PrescriptionStore
	doctors DoctorDirectory
}

func NewService(store PrescriptionStore, doctors DoctorDirectory) *Service {
	return &Service{store: store, doctors: doctors}
}

// Verify resolves a raw prescription id into a redacted view. It performs
// no writes and is safe to call any number of times.
func (s *Service) Verify(ctx context.Context, rawID string) (*View, error) {
	// A malformed id maps to the same error as an unknown one.
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, ErrNotVerifiable
	}

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, prescription.ErrPrescriptionNotFound) {
			return nil, ErrNotVerifiable
		}
		return nil, fmt.Errorf("load prescription: %w", err)
	}

	doctor, err := s.doctors.GetProfile(ctx, p.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("resolve doctor: %w", err)
	}

	view := &View{
		DisplayID:   truncateID(p.ID.String()),
		IssuedAt:    p.IssuedAt,
		DoctorName:  doctor.FullName,
		PatientName: p.PatientName,
		PatientAge:  p.PatientAge,
		Diagnosis:   p.Diagnosis,
		Medicines:   p.Medicines,
		Advice:      p.Advice,
	}

	// Credentials are optional; a doctor without a recorded license still
	// verifies, the fields just stay empty.
	cred, err := s.doctors.GetCredentials(ctx, p.DoctorID)
	if err == nil {
		view.DoctorSpecialization = cred.Specialization
		view.DoctorLicenseNumber = cred.LicenseNumber
	} else if !errors.Is(err, identity.ErrNotFound) {
		return nil, fmt.Errorf("resolve credentials: %w", err)
	}

	return view, nil
}

func truncateID(id string) string {
	if len(id) <= displayIDLen {
		return id
	}
	return id[:displayIDLen]
}
