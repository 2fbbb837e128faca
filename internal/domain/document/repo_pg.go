package document

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

const docCols = `id, patient_id, visit_id, author_id, doc_type, title, status,
	storage_uri, content_type, finalized_at, amended_at, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.PatientID, &d.VisitID, &d.AuthorID, &d.Type, &d.Title,
		&d.Status, &d.StorageURI, &d.ContentType, &d.FinalizedAt, &d.AmendedAt,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	d.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO document (id, patient_id, visit_id, author_id, doc_type, title,
			status, storage_uri, content_type)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		d.ID, d.PatientID, d.VisitID, d.AuthorID, d.Type, d.Title,
		d.Status, d.StorageURI, d.ContentType,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx,
		`SELECT `+docCols+` FROM document WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "document not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *repoPG) Update(ctx context.Context, d *Document) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE document
		SET doc_type=$2, title=$3, storage_uri=$4, content_type=$5, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Type, d.Title, d.StorageURI, d.ContentType)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

// UpdateStatus persists a status transition together with the stamp it
// set, guarded on the previously observed status.
func (r *repoPG) UpdateStatus(ctx context.Context, d *Document, from Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE document
		SET status=$3, storage_uri=$4, finalized_at=$5, amended_at=$6, updated_at=NOW()
		WHERE id = $1 AND status = $2`,
		d.ID, from, d.Status, d.StorageURI, d.FinalizedAt, d.AmendedAt)
	if err != nil {
		return false, fmt.Errorf("update document status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM document WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Document, int, error) {
	where := ` WHERE 1=1`
	var args []interface{}
	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		where += fmt.Sprintf(clause, len(args))
	}

	if f.PatientID != uuid.Nil {
		add(` AND patient_id = $%d`, f.PatientID)
	}
	if f.VisitID != uuid.Nil {
		add(` AND visit_id = $%d`, f.VisitID)
	}
	if f.AuthorID != uuid.Nil {
		add(` AND author_id = $%d`, f.AuthorID)
	}
	if f.Type != "" {
		add(` AND doc_type = $%d`, f.Type)
	}
	if f.Status != "" {
		add(` AND status = $%d`, f.Status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM document`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	query := `SELECT ` + docCols + ` FROM document` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
