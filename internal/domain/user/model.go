package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/auth"
)

// User maps to the shared.app_user table. Staff accounts are shared-schema
// records: a user belongs to one tenant (superadmins and support agents
// have none) and carries exactly one role.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         auth.Role  `db:"role" json:"role"`
	TenantID     string     `db:"tenant_id" json:"tenant_id"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Identity converts the stored account to the request-scoped principal.
func (u *User) Identity() *auth.Identity {
	return &auth.Identity{
		ID:       u.ID,
		Email:    u.Email,
		Role:     u.Role,
		TenantID: u.TenantID,
		Active:   u.Active,
	}
}

// TokenPair is the credential bundle returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}
