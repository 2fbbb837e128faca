package grant

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows a grant listing. Zero values mean no filtering on that
// field.
type ListFilter struct {
	TenantID    string
	RequesterID uuid.UUID
	Status      Status
	Limit       int
	Offset      int
}

// Repository persists grants. State transitions are compare-and-set: the
// transition methods report false when the row was not in the expected
// prior state, which callers surface as a conflict or invalid-state error.
type Repository interface {
	Create(ctx context.Context, g *Grant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Grant, error)
	List(ctx context.Context, filter ListFilter) ([]*Grant, int, error)

	// FindOpen returns the requester's pending or active grant for the
	// tenant, or nil when none exists. At most one such grant may exist
	// per (requester, tenant) pair.
	FindOpen(ctx context.Context, requesterID uuid.UUID, tenantID string) (*Grant, error)

	// Approve transitions pending -> active, recording the decider and
	// the expiry instant.
	Approve(ctx context.Context, id, deciderID uuid.UUID, decidedAt, expiresAt time.Time) (bool, error)

	// Deny transitions pending -> denied.
	Deny(ctx context.Context, id, deciderID uuid.UUID, decidedAt time.Time) (bool, error)

	// Revoke transitions active -> revoked.
	Revoke(ctx context.Context, id, revokerID uuid.UUID, revokedAt time.Time) (bool, error)

	// MarkExpired transitions active -> expired, guarded by expires_at so
	// a grant whose expiry has not yet passed is never flipped.
	MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}
