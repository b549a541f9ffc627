package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/carebridge/internal/platform/db"
)

type profileRepoPG struct {
	pool *pgxpool.Pool
}

func NewProfileRepo(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `id, full_name, date_of_birth, email, phone, role, active, created_at, updated_at`

func (r *profileRepoPG) Create(ctx context.Context, p *Profile) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO profile (id, full_name, date_of_birth, email, phone, role, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		p.ID, p.FullName, p.DateOfBirth, p.Email, p.Phone, p.Role, p.Active,
	)
	return err
}

func (r *profileRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profile WHERE id = $1`, id))
}

func (r *profileRepoPG) GetByEmail(ctx context.Context, email string) (*Profile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profile WHERE email = $1`, email))
}

func (r *profileRepoPG) Update(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE profile SET
			full_name=$2, date_of_birth=$3, email=$4, phone=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FullName, p.DateOfBirth, p.Email, p.Phone, p.Active,
	)
	return err
}

func (r *profileRepoPG) List(ctx context.Context, role Role, limit, offset int) ([]*Profile, int, error) {
	where := ``
	args := []interface{}{}
	if role != "" {
		where = ` WHERE role = $1`
		args = append(args, role)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM profile`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + profileCols + ` FROM profile` + where + ` ORDER BY full_name`
	if role != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p, err := scanProfileRows(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, p)
	}
	return profiles, total, nil
}

func (r *profileRepoPG) UpsertCredentials(ctx context.Context, c *DoctorCredentials) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_credentials (profile_id, specialization, license_number)
		VALUES ($1,$2,$3)
		ON CONFLICT (profile_id) DO UPDATE SET
			specialization = EXCLUDED.specialization,
			license_number = EXCLUDED.license_number,
			updated_at = NOW()`,
		c.ProfileID, c.Specialization, c.LicenseNumber,
	)
	return err
}

func (r *profileRepoPG) GetCredentials(ctx context.Context, profileID uuid.UUID) (*DoctorCredentials, error) {
	var c DoctorCredentials
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT profile_id, specialization, license_number, updated_at
		FROM doctor_credentials WHERE profile_id = $1`, profileID,
	).Scan(&c.ProfileID, &c.Specialization, &c.LicenseNumber, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.ID, &p.FullName, &p.DateOfBirth, &p.Email, &p.Phone, &p.Role, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanProfileRows(rows pgx.Rows) (*Profile, error) {
	var p Profile
	if err := rows.Scan(&p.ID, &p.FullName, &p.DateOfBirth, &p.Email, &p.Phone, &p.Role, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
