package visit

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const visitCols = `id, patient_id, provider_id, appointment_id, status, chief_complaint,
	disposition, notes, started_at, ended_at, created_at, updated_at`

func scanVisit(row pgx.Row) (*Visit, error) {
	var v Visit
	err := row.Scan(&v.ID, &v.PatientID, &v.ProviderID, &v.AppointmentID, &v.Status,
		&v.ChiefComplaint, &v.Disposition, &v.Notes, &v.StartedAt, &v.EndedAt,
		&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *repoPG) Create(ctx context.Context, v *Visit) error {
	v.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO visit (id, patient_id, provider_id, appointment_id, status,
			chief_complaint, disposition, notes, started_at, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		v.ID, v.PatientID, v.ProviderID, v.AppointmentID, v.Status,
		v.ChiefComplaint, v.Disposition, v.Notes, v.StartedAt, v.EndedAt,
	).Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create visit: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Visit, error) {
	v, err := scanVisit(r.conn(ctx).QueryRow(ctx,
		`SELECT `+visitCols+` FROM visit WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "visit not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get visit: %w", err)
	}
	return v, nil
}

func (r *repoPG) Update(ctx context.Context, v *Visit) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit
		SET provider_id=$2, chief_complaint=$3, disposition=$4, notes=$5, updated_at=NOW()
		WHERE id = $1`,
		v.ID, v.ProviderID, v.ChiefComplaint, v.Disposition, v.Notes)
	if err != nil {
		return fmt.Errorf("update visit: %w", err)
	}
	return nil
}

// UpdateStatus persists the new status along with the timestamps the
// transition set, guarded on the previously observed status.
func (r *repoPG) UpdateStatus(ctx context.Context, v *Visit, from Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE visit
		SET status=$3, started_at=$4, ended_at=$5, disposition=$6, updated_at=NOW()
		WHERE id = $1 AND status = $2`,
		v.ID, from, v.Status, v.StartedAt, v.EndedAt, v.Disposition)
	if err != nil {
		return false, fmt.Errorf("update visit status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Visit, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where += fmt.Sprintf(clause, len(args))
	}

	if f.PatientID != uuid.Nil {
		add(` AND patient_id = $%d`, f.PatientID)
	}
	if f.ProviderID != uuid.Nil {
		add(` AND provider_id = $%d`, f.ProviderID)
	}
	if f.Status != "" {
		add(` AND status = $%d`, f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM visit`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count visits: %w", err)
	}

	query := `SELECT ` + visitCols + ` FROM visit` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list visits: %w", err)
	}
	defer rows.Close()

	var items []*Visit
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan visit: %w", err)
		}
		items = append(items, v)
	}
	return items, total, rows.Err()
}
