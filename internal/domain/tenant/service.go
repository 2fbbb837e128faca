package tenant

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/auth"
	"github.com/carebase/carebase/internal/platform/db"
)

// Provisioner creates the tenant's Postgres schema and applies the tenant
// migrations. Wired to db.CreateTenantSchema in main.
type Provisioner func(ctx context.Context, tenantID string) error

type Service struct {
	repo      Repository
	provision Provisioner
	audit     audit.Recorder
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, provision Provisioner, recorder audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		provision: provision,
		audit:     recorder,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateInput is the payload for onboarding a tenant.
type CreateInput struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Plan         Plan   `json:"plan"`
	ContactEmail string `json:"contact_email"`
}

// Create onboards a tenant: the shared-schema record first, then the
// tenant's own schema. Only superadmins onboard tenants.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, input CreateInput) (*Tenant, error) {
	if actor.Role != auth.RoleSuperAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only superadmins may create tenants")
	}
	if !db.ValidTenantID(input.ID) {
		return nil, apperr.New(apperr.KindValidation, "tenant id must be a lowercase slug (a-z, 0-9, _)")
	}
	if input.Name == "" {
		return nil, apperr.New(apperr.KindValidation, "name is required")
	}
	if input.Plan == "" {
		input.Plan = PlanTrial
	}
	if !ValidPlan(input.Plan) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown plan %q", input.Plan)
	}

	t := &Tenant{
		ID:                 input.ID,
		Name:               input.Name,
		Plan:               input.Plan,
		SubscriptionStatus: SubscriptionActive,
		ContactEmail:       input.ContactEmail,
		Active:             true,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	if err := s.provision(ctx, t.ID); err != nil {
		// The shared record exists but the schema does not; surface the
		// failure so the operator can rerun provisioning.
		return nil, apperr.Wrap(apperr.KindInternal, "tenant record created but schema provisioning failed", err)
	}

	s.record(ctx, actor, "tenant.created", t)
	return t, nil
}

func (s *Service) Get(ctx context.Context, actor *auth.Identity, id string) (*Tenant, error) {
	if err := s.authorize(actor, id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, actor *auth.Identity, limit, offset int) ([]*Tenant, int, error) {
	if actor.Role != auth.RoleSuperAdmin {
		// Tenant admins see exactly their own record.
		t, err := s.repo.GetByID(ctx, actor.TenantID)
		if err != nil {
			return nil, 0, err
		}
		return []*Tenant{t}, 1, nil
	}
	return s.repo.List(ctx, limit, offset)
}

// UpdateInput carries the mutable tenant fields. Nil means unchanged.
type UpdateInput struct {
	Name               *string             `json:"name"`
	Plan               *Plan               `json:"plan"`
	SubscriptionStatus *SubscriptionStatus `json:"subscription_status"`
	ContactEmail       *string             `json:"contact_email"`
}

// Update changes tenant settings. Plan and subscription changes are
// superadmin-only; tenant admins may edit their own name and contact.
func (s *Service) Update(ctx context.Context, actor *auth.Identity, id string, input UpdateInput) (*Tenant, error) {
	if err := s.authorize(actor, id); err != nil {
		return nil, err
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperr.New(apperr.KindValidation, "name must not be empty")
		}
		t.Name = *input.Name
	}
	if input.ContactEmail != nil {
		t.ContactEmail = *input.ContactEmail
	}
	if input.Plan != nil {
		if actor.Role != auth.RoleSuperAdmin {
			return nil, apperr.New(apperr.KindForbidden, "plan changes require a superadmin")
		}
		if !ValidPlan(*input.Plan) {
			return nil, apperr.Newf(apperr.KindValidation, "unknown plan %q", *input.Plan)
		}
		t.Plan = *input.Plan
	}
	if input.SubscriptionStatus != nil {
		if actor.Role != auth.RoleSuperAdmin {
			return nil, apperr.New(apperr.KindForbidden, "subscription changes require a superadmin")
		}
		if !ValidSubscriptionStatus(*input.SubscriptionStatus) {
			return nil, apperr.Newf(apperr.KindValidation, "unknown subscription status %q", *input.SubscriptionStatus)
		}
		t.SubscriptionStatus = *input.SubscriptionStatus
	}

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.record(ctx, actor, "tenant.updated", t)
	return t, nil
}

// SetActive suspends or restores a tenant. A suspended tenant's data stays
// in place; its schema is simply no longer reachable through the API.
func (s *Service) SetActive(ctx context.Context, actor *auth.Identity, id string, active bool) (*Tenant, error) {
	if actor.Role != auth.RoleSuperAdmin {
		return nil, apperr.New(apperr.KindForbidden, "only superadmins may suspend tenants")
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return nil, err
	}
	t.Active = active

	action := "tenant.suspended"
	if active {
		action = "tenant.restored"
	}
	s.record(ctx, actor, action, t)
	return t, nil
}

func (s *Service) authorize(actor *auth.Identity, tenantID string) error {
	if !auth.HasPermission(actor.Role, auth.PermManageTenant) {
		return apperr.New(apperr.KindForbidden, "tenant management rights required")
	}
	if actor.Role != auth.RoleSuperAdmin && actor.TenantID != tenantID {
		return apperr.New(apperr.KindForbidden, "tenant belongs to another organization")
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor *auth.Identity, action string, t *Tenant) {
	entry := &audit.Entry{
		ActorID:    &actor.ID,
		ActorRole:  string(actor.Role),
		Action:     action,
		TenantID:   t.ID,
		TargetType: "tenant",
		TargetID:   t.ID,
		RecordedAt: s.now(),
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("failed to write audit entry")
	}
}
