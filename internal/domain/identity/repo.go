package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a profile or credentials row does not exist.
var ErrNotFound = errors.New("profile not found")

type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	List(ctx context.Context, role Role, limit, offset int) ([]*Profile, int, error)

	// Credentials
	UpsertCredentials(ctx context.Context, c *DoctorCredentials) error
	GetCredentials(ctx context.Context, profileID uuid.UUID) (*DoctorCredentials, error)
}
