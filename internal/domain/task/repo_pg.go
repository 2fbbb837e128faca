package task

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

const taskCols = `id, patient_id, assignee_id, creator_id, title, description, status,
	priority, due_at, completed_at, created_at, updated_at`

func scanTask(row pgx.Row) (*Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.PatientID, &t.AssigneeID, &t.CreatorID, &t.Title,
		&t.Description, &t.Status, &t.Priority, &t.DueAt, &t.CompletedAt,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *repoPG) Create(ctx context.Context, t *Task) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO task (id, patient_id, assignee_id, creator_id, title, description,
			status, priority, due_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		t.ID, t.PatientID, t.AssigneeID, t.CreatorID, t.Title, t.Description,
		t.Status, t.Priority, t.DueAt,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := scanTask(r.conn(ctx).QueryRow(ctx,
		`SELECT `+taskCols+` FROM task WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "task not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (r *repoPG) Update(ctx context.Context, t *Task) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE task
		SET assignee_id=$2, title=$3, description=$4, priority=$5, due_at=$6, updated_at=NOW()
		WHERE id = $1`,
		t.ID, t.AssigneeID, t.Title, t.Description, t.Priority, t.DueAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, t *Task, from Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE task SET status=$3, completed_at=$4, updated_at=NOW()
		WHERE id = $1 AND status = $2`,
		t.ID, from, t.Status, t.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("update task status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Task, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where += fmt.Sprintf(clause, len(args))
	}

	if f.PatientID != uuid.Nil {
		add(` AND patient_id = $%d`, f.PatientID)
	}
	if f.AssigneeID != uuid.Nil {
		add(` AND assignee_id = $%d`, f.AssigneeID)
	}
	if f.Status != "" {
		add(` AND status = $%d`, f.Status)
	}
	if f.Priority != "" {
		add(` AND priority = $%d`, f.Priority)
	}
	if !f.OverdueAsOf.IsZero() {
		add(` AND due_at < $%d AND status IN ('open','in_progress')`, f.OverdueAsOf)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM task`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	// Stat first, then urgent, then routine, earliest due time first.
	query := `SELECT ` + taskCols + ` FROM task` + where + fmt.Sprintf(`
		ORDER BY CASE priority WHEN 'stat' THEN 0 WHEN 'urgent' THEN 1 ELSE 2 END,
			due_at NULLS LAST, created_at
		LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var items []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}
