package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/auth"
)

// ListFilter narrows a user listing. Zero values mean no filtering.
type ListFilter struct {
	TenantID string
	Role     auth.Role
	Limit    int
	Offset   int
}

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, filter ListFilter) ([]*User, int, error)
}
