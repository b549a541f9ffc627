package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/internal/domain/identity"
)

type mockRepo struct {
	appts map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appts: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return ErrNotFound
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) Exists(_ context.Context, doctorID, patientID uuid.UUID) (bool, error) {
	for _, a := range m.appts {
		if a.DoctorID == doctorID && a.PatientID == patientID && a.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

type mockProfiles struct {
	profiles map[uuid.UUID]*identity.Profile
}

func newMockProfiles() *mockProfiles {
	return &mockProfiles{profiles: make(map[uuid.UUID]*identity.Profile)}
}

func (m *mockProfiles) GetProfile(_ context.Context, id uuid.UUID) (*identity.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return p, nil
}

func (m *mockProfiles) add(role identity.Role, name string) uuid.UUID {
	id := uuid.New()
	m.profiles[id] = &identity.Profile{ID: id, FullName: name, Role: role, Active: true}
	return id
}

func setupService() (*Service, *mockRepo, *mockProfiles) {
	repo := newMockRepo()
	profiles := newMockProfiles()
	return NewService(repo, profiles), repo, profiles
}

func TestBook(t *testing.T) {
	svc, _, profiles := setupService()
	doctorID := profiles.add(identity.RoleDoctor, "Dr. Mehta")
	patientID := profiles.add(identity.RolePatient, "Asha Rao")

	a := &Appointment{
		PatientID:   patientID,
		DoctorID:    doctorID,
		ScheduledAt: time.Now().Add(24 * time.Hour),
	}
	if err := svc.Book(context.Background(), a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == uuid.Nil {
		t.Error("expected appointment id assigned")
	}
	if a.Status != StatusBooked {
		t.Errorf("status = %q, want booked", a.Status)
	}
}

func TestBookValidation(t *testing.T) {
	svc, _, profiles := setupService()
	doctorID := profiles.add(identity.RoleDoctor, "Dr. Mehta")
	patientID := profiles.add(identity.RolePatient, "Asha Rao")
	when := time.Now().Add(time.Hour)

	cases := []struct {
		name string
		a    *Appointment
	}{
		{"missing patient", &Appointment{DoctorID: doctorID, ScheduledAt: when}},
		{"missing doctor", &Appointment{PatientID: patientID, ScheduledAt: when}},
		{"missing time", &Appointment{PatientID: patientID, DoctorID: doctorID}},
		{"unknown doctor", &Appointment{PatientID: patientID, DoctorID: uuid.New(), ScheduledAt: when}},
		{"unknown patient", &Appointment{PatientID: uuid.New(), DoctorID: doctorID, ScheduledAt: when}},
		{"doctor as patient", &Appointment{PatientID: doctorID, DoctorID: doctorID, ScheduledAt: when}},
		{"patient as doctor", &Appointment{PatientID: patientID, DoctorID: patientID, ScheduledAt: when}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.Book(context.Background(), tc.a); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, repo, profiles := setupService()
	doctorID := profiles.add(identity.RoleDoctor, "Dr. Mehta")
	patientID := profiles.add(identity.RolePatient, "Asha Rao")

	a := &Appointment{PatientID: patientID, DoctorID: doctorID, ScheduledAt: time.Now(), Status: StatusBooked}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed: %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), a.ID, doctorID, StatusCompleted)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("status = %q, want completed", updated.Status)
	}

	// Completed is terminal.
	if _, err := svc.UpdateStatus(context.Background(), a.ID, doctorID, StatusCancelled); err == nil {
		t.Error("expected error moving from completed to cancelled")
	}
}

func TestUpdateStatusNonParticipant(t *testing.T) {
	svc, repo, profiles := setupService()
	doctorID := profiles.add(identity.RoleDoctor, "Dr. Mehta")
	patientID := profiles.add(identity.RolePatient, "Asha Rao")

	a := &Appointment{PatientID: patientID, DoctorID: doctorID, ScheduledAt: time.Now(), Status: StatusBooked}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := svc.UpdateStatus(context.Background(), a.ID, uuid.New(), StatusCancelled)
	if !errors.Is(err, ErrNotParticipant) {
		t.Errorf("expected ErrNotParticipant, got %v", err)
	}
	if repo.appts[a.ID].Status != StatusBooked {
		t.Error("status should not have changed")
	}
}

func TestHasCareRelationship(t *testing.T) {
	svc, repo, profiles := setupService()
	doctorID := profiles.add(identity.RoleDoctor, "Dr. Mehta")
	patientID := profiles.add(identity.RolePatient, "Asha Rao")

	ok, err := svc.HasCareRelationship(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no relationship before any appointment")
	}

	a := &Appointment{PatientID: patientID, DoctorID: doctorID, ScheduledAt: time.Now(), Status: StatusCancelled}
	if err := repo.Create(context.Background(), a); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Cancelled appointments do not count.
	ok, err = svc.HasCareRelationship(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("cancelled appointment should not establish a relationship")
	}

	b := &Appointment{PatientID: patientID, DoctorID: doctorID, ScheduledAt: time.Now(), Status: StatusBooked}
	if err := repo.Create(context.Background(), b); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ok, err = svc.HasCareRelationship(context.Background(), doctorID, patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("booked appointment should establish a relationship")
	}
}
