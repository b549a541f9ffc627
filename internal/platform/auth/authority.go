package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/carebridge/internal/platform/db"
)

// Well-known capability names.
const (
	CapabilityDoctor = "doctor"
	CapabilityAdmin  = "admin"
)

// Authority resolves whether an identity currently holds a capability.
// Implementations must answer from the system of record on every call:
// capabilities are never cached in client-held session state, so a grant
// revoked a moment ago is not honored a moment later.
type Authority interface {
	HasCapability(ctx context.Context, identity uuid.UUID, capability string) (bool, error)
}

// CapabilityStore is the administrative surface over capability grants.
type CapabilityStore interface {
	Authority
	Grant(ctx context.Context, identity uuid.UUID, capability string) error
	Revoke(ctx context.Context, identity uuid.UUID, capability string) error
	ListCapabilities(ctx context.Context, identity uuid.UUID) ([]string, error)
}

type capabilityStorePG struct{ pool *pgxpool.Pool }

// NewCapabilityStorePG returns a CapabilityStore backed by the capability_grant table.
func NewCapabilityStorePG(pool *pgxpool.Pool) CapabilityStore {
	return &capabilityStorePG{pool: pool}
}

func (s *capabilityStorePG) HasCapability(ctx context.Context, identity uuid.UUID, capability string) (bool, error) {
	var exists bool
	var err error
	query := `SELECT EXISTS (SELECT 1 FROM capability_grant WHERE identity_id = $1 AND capability = $2)`
	if tx := db.TxFromContext(ctx); tx != nil {
		err = tx.QueryRow(ctx, query, identity, capability).Scan(&exists)
	} else {
		err = s.pool.QueryRow(ctx, query, identity, capability).Scan(&exists)
	}
	if err != nil {
		return false, err
	}
	// An unknown identity simply holds no capabilities.
	return exists, nil
}

func (s *capabilityStorePG) Grant(ctx context.Context, identity uuid.UUID, capability string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO capability_grant (identity_id, capability)
		VALUES ($1, $2)
		ON CONFLICT (identity_id, capability) DO NOTHING`,
		identity, capability)
	return err
}

func (s *capabilityStorePG) Revoke(ctx context.Context, identity uuid.UUID, capability string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM capability_grant WHERE identity_id = $1 AND capability = $2`,
		identity, capability)
	return err
}

func (s *capabilityStorePG) ListCapabilities(ctx context.Context, identity uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT capability FROM capability_grant WHERE identity_id = $1 ORDER BY capability`,
		identity)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var caps []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}
