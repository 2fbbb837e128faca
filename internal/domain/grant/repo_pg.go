package grant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebase/carebase/internal/platform/apperr"
)

// repoPG stores grants in the shared.support_grant table. Grants are
// cross-tenant records, so the repo talks to the pool directly instead of
// the tenant-scoped connection.
type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const grantCols = `id, requester_id, requester_email, tenant_id, access_level,
	reason, duration_hours, status, requested_at, decided_at, decider_id,
	expires_at, revoked_at, revoker_id, created_at, updated_at`

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	err := row.Scan(&g.ID, &g.RequesterID, &g.RequesterEmail, &g.TenantID, &g.AccessLevel,
		&g.Reason, &g.DurationHours, &g.Status, &g.RequestedAt, &g.DecidedAt, &g.DeciderID,
		&g.ExpiresAt, &g.RevokedAt, &g.RevokerID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *repoPG) Create(ctx context.Context, g *Grant) error {
	g.ID = uuid.New()
	err := r.pool.QueryRow(ctx, `
		INSERT INTO shared.support_grant (
			id, requester_id, requester_email, tenant_id, access_level,
			reason, duration_hours, status, requested_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		g.ID, g.RequesterID, g.RequesterEmail, g.TenantID, g.AccessLevel,
		g.Reason, g.DurationHours, g.Status, g.RequestedAt,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create grant: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Grant, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx,
		`SELECT `+grantCols+` FROM shared.support_grant WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "grant not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get grant: %w", err)
	}
	return g, nil
}

func (r *repoPG) List(ctx context.Context, filter ListFilter) ([]*Grant, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	n := 0
	add := func(clause string, value any) {
		n++
		where += fmt.Sprintf(` AND %s$%d`, clause, n)
		args = append(args, value)
	}

	if filter.TenantID != "" {
		add("tenant_id = ", filter.TenantID)
	}
	if filter.RequesterID != uuid.Nil {
		add("requester_id = ", filter.RequesterID)
	}
	if filter.Status != "" {
		add("status = ", filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM shared.support_grant`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count grants: %w", err)
	}

	query := `SELECT ` + grantCols + ` FROM shared.support_grant` + where +
		fmt.Sprintf(` ORDER BY requested_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var items []*Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan grant: %w", err)
		}
		items = append(items, g)
	}
	return items, total, rows.Err()
}

func (r *repoPG) FindOpen(ctx context.Context, requesterID uuid.UUID, tenantID string) (*Grant, error) {
	g, err := scanGrant(r.pool.QueryRow(ctx, `
		SELECT `+grantCols+` FROM shared.support_grant
		WHERE requester_id = $1 AND tenant_id = $2 AND status IN ('pending','active')
		ORDER BY requested_at DESC LIMIT 1`,
		requesterID, tenantID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find open grant: %w", err)
	}
	return g, nil
}

// The transition statements carry the expected prior status in the WHERE
// clause, so two racing deciders cannot both succeed: the loser's UPDATE
// matches zero rows.

func (r *repoPG) Approve(ctx context.Context, id, deciderID uuid.UUID, decidedAt, expiresAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE shared.support_grant
		SET status = 'active', decider_id = $2, decided_at = $3, expires_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		id, deciderID, decidedAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("approve grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Deny(ctx context.Context, id, deciderID uuid.UUID, decidedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE shared.support_grant
		SET status = 'denied', decider_id = $2, decided_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`,
		id, deciderID, decidedAt)
	if err != nil {
		return false, fmt.Errorf("deny grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) Revoke(ctx context.Context, id, revokerID uuid.UUID, revokedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE shared.support_grant
		SET status = 'revoked', revoker_id = $2, revoked_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`,
		id, revokerID, revokedAt)
	if err != nil {
		return false, fmt.Errorf("revoke grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE shared.support_grant
		SET status = 'expired', updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND expires_at <= $2`,
		id, now)
	if err != nil {
		return false, fmt.Errorf("expire grant: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
