package prescription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/carebridge/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const prescriptionCols = `id, doctor_id, patient_id, patient_name, patient_age, diagnosis, medicines, advice, issued_at`

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()

	medicines, err := json.Marshal(p.Medicines)
	if err != nil {
		return fmt.Errorf("marshal medicines: %w", err)
	}

	// Single INSERT; issued_at comes back from the database so the stored
	// value and the returned record always agree.
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescription (id, doctor_id, patient_id, patient_name, patient_age, diagnosis, medicines, advice)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING issued_at`,
		p.ID, p.DoctorID, p.PatientID, p.PatientName, p.PatientAge, p.Diagnosis, medicines, p.Advice,
	).Scan(&p.IssuedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx, `SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, `doctor_id`, doctorID, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, `patient_id`, patientID, limit, offset)
}

func (r *repoPG) list(ctx context.Context, column string, id uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescription WHERE `+column+` = $1`, id).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE `+column+` = $1 ORDER BY issued_at DESC LIMIT $2 OFFSET $3`,
		id, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Prescription
	for rows.Next() {
		p, err := scanPrescriptionRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, nil
}

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	var medicines []byte
	err := row.Scan(&p.ID, &p.DoctorID, &p.PatientID, &p.PatientName, &p.PatientAge, &p.Diagnosis, &medicines, &p.Advice, &p.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPrescriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(medicines, &p.Medicines); err != nil {
		return nil, fmt.Errorf("unmarshal medicines: %w", err)
	}
	return &p, nil
}

func scanPrescriptionRows(rows pgx.Rows) (*Prescription, error) {
	var p Prescription
	var medicines []byte
	if err := rows.Scan(&p.ID, &p.DoctorID, &p.PatientID, &p.PatientName, &p.PatientAge, &p.Diagnosis, &medicines, &p.Advice, &p.IssuedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(medicines, &p.Medicines); err != nil {
		return nil, fmt.Errorf("unmarshal medicines: %w", err)
	}
	return &p, nil
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}
