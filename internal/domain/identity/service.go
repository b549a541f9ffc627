package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Service struct {
	profiles ProfileRepository
}

func NewService(profiles ProfileRepository) *Service {
	return &Service{profiles: profiles}
}

func (s *Service) CreateProfile(ctx context.Context, p *Profile) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("role must be patient, doctor or admin")
	}
	p.Active = true
	return s.profiles.Create(ctx, p)
}

func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

func (s *Service) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	return s.profiles.GetByEmail(ctx, email)
}

func (s *Service) UpdateProfile(ctx context.Context, p *Profile) error {
	p.FullName = strings.TrimSpace(p.FullName)
	if p.FullName == "" {
		return fmt.Errorf("full_name is required")
	}
	return s.profiles.Update(ctx, p)
}

func (s *Service) ListProfiles(ctx context.Context, role Role, limit, offset int) ([]*Profile, int, error) {
	if role != "" && !role.Valid() {
		return nil, 0, fmt.Errorf("unknown role %q", role)
	}
	return s.profiles.List(ctx, role, limit, offset)
}

// SetCredentials records or replaces a doctor's credentials. The target
// profile must exist and carry the doctor role.
func (s *Service) SetCredentials(ctx context.Context, c *DoctorCredentials) error {
	c.Specialization = strings.TrimSpace(c.Specialization)
	c.LicenseNumber = strings.TrimSpace(c.LicenseNumber)
	if c.Specialization == "" {
		return fmt.Errorf("specialization is required")
	}
	if c.LicenseNumber == "" {
		return fmt.Errorf("license_number is required")
	}

	p, err := s.profiles.GetByID(ctx, c.ProfileID)
	if err != nil {
		return err
	}
	if p.Role != RoleDoctor {
		return fmt.Errorf("credentials can only be set on a doctor profile")
	}
	return s.profiles.UpsertCredentials(ctx, c)
}

func (s *Service) GetCredentials(ctx context.Context, profileID uuid.UUID) (*DoctorCredentials, error) {
	return s.profiles.GetCredentials(ctx, profileID)
}
