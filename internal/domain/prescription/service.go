package prescription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/domain/identity"
	"github.com/carebridge/carebridge/internal/platform/auth"
)

const (
	diagnosisMinLen  = 5
	diagnosisMaxLen  = 500
	medicineFieldMax = 200
	adviceMaxLen     = 1000
)

// ProfileDirectory is the slice of the identity service the issuance flow
// needs. Satisfied by *identity.Service.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*identity.Profile, error)
}

// RelationshipChecker reports whether a doctor has ever seen a patient.
// Satisfied by *appointment.Service.
type RelationshipChecker interface {
	HasCareRelationship(ctx context.Context, doctorID, patientID uuid.UUID) (bool, error)
}

type Service struct {
	repo          Repository
	authority     auth.Authority
	profiles      ProfileDirectory
	relationships RelationshipChecker
	now           func() time.Time
}

func NewService(repo Repository, authority auth.Authority, profiles ProfileDirectory, relationships RelationshipChecker) *Service {
	return &Service{
		repo:          repo,
		authority:     authority,
		profiles:      profiles,
		relationships: relationships,
		now:           time.Now,
	}
}

// IssueRequest carries the client-supplied fields of a new prescription.
// Patient name and age are never taken from the client; they are resolved
// from the patient profile at issue time.
type IssueRequest struct {
	PatientID uuid.UUID
	Diagnosis string
	Medicines []Medicine
	Advice    string
}

// Issue creates a prescription on behalf of actingID. Checks run in a fixed
// order so a caller failing an earlier gate learns nothing about later ones:
// capability, patient existence, care relationship, then field validation.
// Nothing is persisted unless every check passes.
func (s *Service) Issue(ctx context.Context, actingID uuid.UUID, req IssueRequest) (*Prescription, error) {
	// The capability is re-read from the database on every call. Token
	// claims may be stale; a revoked doctor must fail here immediately.
	isDoctor, err := s.authority.HasCapability(ctx, actingID, auth.CapabilityDoctor)
	if err != nil {
		return nil, fmt.Errorf("capability check: %w", err)
	}
	if !isDoctor {
		return nil, ErrForbidden
	}

	patient, err := s.profiles.GetProfile(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("resolve patient: %w", err)
	}
	if patient.Role != identity.RolePatient {
		return nil, ErrPatientNotFound
	}

	related, err := s.relationships.HasCareRelationship(ctx, actingID, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("relationship check: %w", err)
	}
	if !related {
		return nil, ErrNoCareRelationship
	}

	diagnosis := strings.TrimSpace(req.Diagnosis)
	if len(diagnosis) < diagnosisMinLen || len(diagnosis) > diagnosisMaxLen {
		return nil, &FieldError{Field: "diagnosis", Reason: fmt.Sprintf("must be %d to %d characters", diagnosisMinLen, diagnosisMaxLen)}
	}

	medicines, err := normalizeMedicines(req.Medicines)
	if err != nil {
		return nil, err
	}

	advice := strings.TrimSpace(req.Advice)
	if len(advice) > adviceMaxLen {
		return nil, &FieldError{Field: "advice", Reason: fmt.Sprintf("must be at most %d characters", adviceMaxLen)}
	}

	issuedAt := s.now().UTC()
	p := &Prescription{
		DoctorID:    actingID,
		PatientID:   req.PatientID,
		PatientName: patient.FullName,
		PatientAge:  patient.AgeAt(issuedAt),
		Diagnosis:   diagnosis,
		Medicines:   medicines,
		IssuedAt:    issuedAt,
	}
	if advice != "" {
		p.Advice = &advice
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("persist prescription: %w", err)
	}
	return p, nil
}

// normalizeMedicines trims each entry, drops entries that are entirely
// blank, and validates the rest. At least one entry must survive.
func normalizeMedicines(in []Medicine) ([]Medicine, error) {
	var out []Medicine
	for _, m := range in {
		name := strings.TrimSpace(m.Name)
		dosage := strings.TrimSpace(m.Dosage)
		if name == "" && dosage == "" {
			continue
		}
		if name == "" || len(name) > medicineFieldMax {
			return nil, &FieldError{Field: "medicines", Reason: fmt.Sprintf("each medicine name must be 1 to %d characters", medicineFieldMax)}
		}
		if dosage == "" || len(dosage) > medicineFieldMax {
			return nil, &FieldError{Field: "medicines", Reason: fmt.Sprintf("each dosage must be 1 to %d characters", medicineFieldMax)}
		}
		out = append(out, Medicine{Name: name, Dosage: dosage})
	}
	if len(out) == 0 {
		return nil, &FieldError{Field: "medicines", Reason: "at least one medicine is required"}
	}
	return out, nil
}

// GetOwned returns the prescription only when the caller is its doctor or
// its patient. Anonymous access goes through the verification service, not
// here.
func (s *Service) GetOwned(ctx context.Context, actingID, id uuid.UUID) (*Prescription, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actingID != p.DoctorID && actingID != p.PatientID {
		return nil, ErrForbidden
	}
	return p, nil
}

// ListForDoctor returns prescriptions issued by the caller.
func (s *Service) ListForDoctor(ctx context.Context, actingID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByDoctor(ctx, actingID, limit, offset)
}

// ListForPatient returns prescriptions issued to the caller.
func (s *Service) ListForPatient(ctx context.Context, actingID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return s.repo.ListByPatient(ctx, actingID, limit, offset)
}
