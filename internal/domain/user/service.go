package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/auth"
)

type Service struct {
	repo   Repository
	tokens *auth.TokenService
	audit  audit.Recorder
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, tokens *auth.TokenService, recorder audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		audit:  recorder,
		logger: logger,
		now:    time.Now,
	}
}

// ResolveIdentity loads the current account state for a token subject. This
// satisfies the authentication middleware's resolver contract.
func (s *Service) ResolveIdentity(ctx context.Context, id uuid.UUID) (*auth.Identity, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Identity(), nil
}

// Login verifies credentials and issues a token pair. Unknown email and
// wrong password produce the same error, so the endpoint does not reveal
// which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.recordLoginFailure(ctx, email, "unknown email")
			return nil, nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.recordLoginFailure(ctx, email, "wrong password")
		return nil, nil, apperr.New(apperr.KindUnauthorized, "invalid credentials")
	}
	if !u.Active {
		s.recordLoginFailure(ctx, email, "account deactivated")
		return nil, nil, apperr.New(apperr.KindForbidden, "account is deactivated")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record last login")
	}
	u.LastLoginAt = &now

	s.record(ctx, u, audit.ActionLogin, "")
	return pair, u, nil
}

// Refresh exchanges a valid refresh token for a new token pair. Access
// tokens are rejected here, the mirror image of the resource endpoints.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, apperr.New(apperr.KindUnauthorized, "refresh token required")
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid token subject")
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.New(apperr.KindUnauthorized, "unknown account")
		}
		return nil, err
	}
	if !u.Active {
		return nil, apperr.New(apperr.KindForbidden, "account is deactivated")
	}

	pair, err := s.issuePair(u)
	if err != nil {
		return nil, err
	}
	s.record(ctx, u, audit.ActionTokenRefreshed, "")
	return pair, nil
}

func (s *Service) issuePair(u *User) (*TokenPair, error) {
	identity := u.Identity()
	access, err := s.tokens.IssueAccessToken(identity, 0)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to issue access token", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to issue refresh token", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTTL() / time.Second),
	}, nil
}

// CreateInput is the payload for provisioning a staff account.
type CreateInput struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      auth.Role `json:"role"`
	TenantID  string    `json:"tenant_id"`
}

// Create provisions a staff account. Tenant admins may only create accounts
// in their own tenant and may not mint superadmins.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, input CreateInput) (*User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, apperr.New(apperr.KindValidation, "a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperr.New(apperr.KindValidation, "password must be at least 8 characters")
	}
	if !auth.ValidRole(input.Role) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown role %q", input.Role)
	}
	if err := s.authorizeAccountChange(actor, input.Role, input.TenantID); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}

	u := &User{
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         input.Role,
		TenantID:     input.TenantID,
		Active:       true,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.recordBy(ctx, actor, "user.created", u.ID.String(), u.TenantID)
	return u, nil
}

// UpdateInput carries the mutable account fields. Nil means unchanged.
type UpdateInput struct {
	FirstName *string    `json:"first_name"`
	LastName  *string    `json:"last_name"`
	Role      *auth.Role `json:"role"`
}

func (s *Service) Update(ctx context.Context, actor *auth.Identity, id uuid.UUID, input UpdateInput) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAccountChange(actor, u.Role, u.TenantID); err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		u.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		u.LastName = *input.LastName
	}
	if input.Role != nil {
		if !auth.ValidRole(*input.Role) {
			return nil, apperr.Newf(apperr.KindValidation, "unknown role %q", *input.Role)
		}
		if err := s.authorizeAccountChange(actor, *input.Role, u.TenantID); err != nil {
			return nil, err
		}
		u.Role = *input.Role
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.recordBy(ctx, actor, "user.updated", u.ID.String(), u.TenantID)
	return u, nil
}

// SetActive activates or deactivates an account. Deactivation takes effect
// on the next request: the authentication middleware re-reads the account
// on every call, so outstanding tokens stop working immediately.
func (s *Service) SetActive(ctx context.Context, actor *auth.Identity, id uuid.UUID, active bool) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeAccountChange(actor, u.Role, u.TenantID); err != nil {
		return nil, err
	}
	if actor.ID == id && !active {
		return nil, apperr.New(apperr.KindValidation, "cannot deactivate your own account")
	}

	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	u.Active = active

	action := "user.deactivated"
	if active {
		action = "user.activated"
	}
	s.recordBy(ctx, actor, action, u.ID.String(), u.TenantID)
	return u, nil
}

// ChangePassword lets a user rotate their own password after proving the
// current one.
func (s *Service) ChangePassword(ctx context.Context, actor *auth.Identity, current, next string) error {
	if len(next) < 8 {
		return apperr.New(apperr.KindValidation, "password must be at least 8 characters")
	}
	u, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return apperr.New(apperr.KindUnauthorized, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, u.ID, string(hash)); err != nil {
		return err
	}
	s.recordBy(ctx, actor, "user.password_changed", u.ID.String(), u.TenantID)
	return nil
}

func (s *Service) Get(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != id {
		if err := s.authorizeAccountChange(actor, u.Role, u.TenantID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, actor *auth.Identity, filter ListFilter) ([]*User, int, error) {
	if actor.Role != auth.RoleSuperAdmin {
		filter.TenantID = actor.TenantID
	}
	return s.repo.List(ctx, filter)
}

// authorizeAccountChange enforces the account management rules: the actor
// needs manage-users, may only touch their own tenant unless superadmin,
// and only superadmins may create or modify superadmin accounts.
func (s *Service) authorizeAccountChange(actor *auth.Identity, targetRole auth.Role, targetTenant string) error {
	if !auth.HasPermission(actor.Role, auth.PermManageUsers) {
		return apperr.New(apperr.KindForbidden, "user management rights required")
	}
	if actor.Role == auth.RoleSuperAdmin {
		return nil
	}
	if targetRole == auth.RoleSuperAdmin {
		return apperr.New(apperr.KindForbidden, "only superadmins may manage superadmin accounts")
	}
	if targetTenant != actor.TenantID {
		return apperr.New(apperr.KindForbidden, "account belongs to another tenant")
	}
	return nil
}

func (s *Service) record(ctx context.Context, u *User, action, detail string) {
	entry := &audit.Entry{
		ActorID:    &u.ID,
		ActorRole:  string(u.Role),
		Action:     action,
		TenantID:   u.TenantID,
		TargetType: "user",
		TargetID:   u.ID.String(),
		Detail:     detail,
		RecordedAt: s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

func (s *Service) recordBy(ctx context.Context, actor *auth.Identity, action, targetID, tenantID string) {
	entry := &audit.Entry{
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Action:     action,
		TenantID:   tenantID,
		TargetType: "user",
		TargetID:   targetID,
		RecordedAt: s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}

func (s *Service) recordLoginFailure(ctx context.Context, email, detail string) {
	entry := &audit.Entry{
		Action:     audit.ActionLoginFailed,
		TargetType: "user",
		TargetID:   email,
		Detail:     detail,
		RecordedAt: s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Msg("failed to write audit entry")
	}
}
