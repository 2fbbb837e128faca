package grant

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a support access grant.
//
//	pending -> active (approve) | denied (deny)
//	active  -> revoked (revoke) | expired (time passes)
//
// denied, revoked, and expired are terminal. There is no background timer:
// expiry is derived from expires_at whenever a grant is read, and the stored
// row is flipped to expired lazily.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
	StatusDenied  Status = "denied"
	StatusRevoked Status = "revoked"
	StatusExpired Status = "expired"
)

// AccessLevel is the scope of access a grant confers inside the tenant.
type AccessLevel string

const (
	AccessMetadata AccessLevel = "metadata"
	AccessFull     AccessLevel = "full"
)

func ValidAccessLevel(level AccessLevel) bool {
	return level == AccessMetadata || level == AccessFull
}

// Grant maps to the shared.support_grant table. A grant records one support
// agent's time-bounded, auditable permission to act inside one tenant.
type Grant struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	RequesterID    uuid.UUID   `db:"requester_id" json:"requester_id"`
	RequesterEmail string      `db:"requester_email" json:"requester_email"`
	TenantID       string      `db:"tenant_id" json:"tenant_id"`
	AccessLevel    AccessLevel `db:"access_level" json:"access_level"`
	Reason         string      `db:"reason" json:"reason"`
	DurationHours  int         `db:"duration_hours" json:"duration_hours"`
	Status         Status      `db:"status" json:"status"`
	RequestedAt    time.Time   `db:"requested_at" json:"requested_at"`
	DecidedAt      *time.Time  `db:"decided_at" json:"decided_at,omitempty"`
	DeciderID      *uuid.UUID  `db:"decider_id" json:"decider_id,omitempty"`
	ExpiresAt      *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	RevokedAt      *time.Time  `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokerID      *uuid.UUID  `db:"revoker_id" json:"revoker_id,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus returns the status as of now. A stored active grant whose
// expiry has passed reports expired even before the row is updated; the
// stored column is a cache of this derivation, never the other way around.
func (g *Grant) EffectiveStatus(now time.Time) Status {
	if g.Status == StatusActive && g.ExpiresAt != nil && !now.Before(*g.ExpiresAt) {
		return StatusExpired
	}
	return g.Status
}

// IsActive reports whether the grant confers access at the given instant.
// This is the single authority for access decisions on grants.
func (g *Grant) IsActive(now time.Time) bool {
	return g.EffectiveStatus(now) == StatusActive
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusDenied || s == StatusRevoked || s == StatusExpired
}
