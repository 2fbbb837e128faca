package grant

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/auth"
)

// TenantChecker reports whether a tenant exists. The grant service holds a
// function rather than the tenant repository itself to keep the two domain
// packages decoupled.
type TenantChecker func(ctx context.Context, tenantID string) (bool, error)

// Service owns the grant lifecycle. Every transition is compare-and-set
// through the repository and every transition writes an audit entry, so two
// racing admins cannot both decide a request and no decision goes
// unrecorded.
type Service struct {
	repo        Repository
	tenants     TenantChecker
	audit       audit.Recorder
	logger      zerolog.Logger
	maxDuration time.Duration
	now         func() time.Time
}

func NewService(repo Repository, tenants TenantChecker, recorder audit.Recorder, logger zerolog.Logger, maxDuration time.Duration) *Service {
	return &Service{
		repo:        repo,
		tenants:     tenants,
		audit:       recorder,
		logger:      logger,
		maxDuration: maxDuration,
		now:         time.Now,
	}
}

// RequestInput is the payload for a new support access request.
type RequestInput struct {
	TenantID      string      `json:"tenant_id"`
	AccessLevel   AccessLevel `json:"access_level"`
	Reason        string      `json:"reason"`
	DurationHours int         `json:"duration_hours"`
}

// Request files a new grant request on behalf of the requester. The
// requested duration is validated here, at request time, so an over-limit
// request is rejected immediately rather than at approval.
func (s *Service) Request(ctx context.Context, requester *auth.Identity, input RequestInput) (*Grant, error) {
	if input.TenantID == "" {
		return nil, apperr.New(apperr.KindValidation, "tenant_id is required")
	}
	if input.Reason == "" {
		return nil, apperr.New(apperr.KindValidation, "reason is required")
	}
	if input.AccessLevel == "" {
		input.AccessLevel = AccessMetadata
	}
	if !ValidAccessLevel(input.AccessLevel) {
		return nil, apperr.Newf(apperr.KindValidation, "invalid access level %q", input.AccessLevel)
	}
	maxHours := int(s.maxDuration / time.Hour)
	if input.DurationHours <= 0 {
		return nil, apperr.New(apperr.KindValidation, "duration_hours must be positive")
	}
	if input.DurationHours > maxHours {
		return nil, apperr.Newf(apperr.KindValidation, "duration_hours must not exceed %d", maxHours)
	}

	exists, err := s.tenants(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperr.Newf(apperr.KindNotFound, "tenant %q not found", input.TenantID)
	}

	existing, err := s.repo.FindOpen(ctx, requester.ID, input.TenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		// A stale active row past its expiry does not block a new request.
		if existing.IsActive(s.now()) || existing.Status == StatusPending {
			return nil, apperr.New(apperr.KindConflict, "an open grant already exists for this tenant")
		}
		s.expireStale(ctx, existing)
	}

	g := &Grant{
		RequesterID:    requester.ID,
		RequesterEmail: requester.Email,
		TenantID:       input.TenantID,
		AccessLevel:    input.AccessLevel,
		Reason:         input.Reason,
		DurationHours:  input.DurationHours,
		Status:         StatusPending,
		RequestedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, err
	}

	s.record(ctx, requester, audit.ActionGrantRequested, g,
		fmt.Sprintf("requested %s access for %dh: %s", g.AccessLevel, g.DurationHours, g.Reason))
	return g, nil
}

// Approve activates a pending grant. The expiry window starts at approval
// time, not request time. The approver may shorten or extend the window
// with durationHours; zero keeps the duration the requester asked for.
func (s *Service) Approve(ctx context.Context, approver *auth.Identity, id uuid.UUID, durationHours int) (*Grant, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(approver, g); err != nil {
		return nil, err
	}
	if g.Status != StatusPending {
		return nil, apperr.Newf(apperr.KindInvalidState, "grant is already %s", g.EffectiveStatus(s.now()))
	}

	if durationHours == 0 {
		durationHours = g.DurationHours
	}
	maxHours := int(s.maxDuration / time.Hour)
	if durationHours < 1 {
		return nil, apperr.New(apperr.KindValidation, "duration_hours must be positive")
	}
	if durationHours > maxHours {
		return nil, apperr.Newf(apperr.KindValidation, "duration_hours must not exceed %d", maxHours)
	}

	now := s.now()
	expiresAt := now.Add(time.Duration(durationHours) * time.Hour)
	ok, err := s.repo.Approve(ctx, g.ID, approver.ID, now, expiresAt)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Another decider got there first.
		return nil, apperr.New(apperr.KindConflict, "grant was decided concurrently")
	}

	g.Status = StatusActive
	g.DeciderID = &approver.ID
	g.DecidedAt = &now
	g.ExpiresAt = &expiresAt

	s.record(ctx, approver, audit.ActionGrantApproved, g,
		fmt.Sprintf("approved until %s", expiresAt.UTC().Format(time.RFC3339)))
	return g, nil
}

// Deny rejects a pending grant. Denial is terminal; the requester must file
// a new request to try again.
func (s *Service) Deny(ctx context.Context, approver *auth.Identity, id uuid.UUID) (*Grant, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(approver, g); err != nil {
		return nil, err
	}
	if g.Status != StatusPending {
		return nil, apperr.Newf(apperr.KindInvalidState, "grant is already %s", g.EffectiveStatus(s.now()))
	}

	now := s.now()
	ok, err := s.repo.Deny(ctx, g.ID, approver.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "grant was decided concurrently")
	}

	g.Status = StatusDenied
	g.DeciderID = &approver.ID
	g.DecidedAt = &now

	s.record(ctx, approver, audit.ActionGrantDenied, g, "denied")
	return g, nil
}

// Revoke terminates an active grant before its expiry. Revoking a grant
// that has already lapsed is an invalid-state error, not a no-op, so the
// caller learns the access had already ended on its own.
func (s *Service) Revoke(ctx context.Context, actor *auth.Identity, id uuid.UUID) (*Grant, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeDecision(actor, g); err != nil {
		return nil, err
	}

	now := s.now()
	if g.Status == StatusActive && !g.IsActive(now) {
		s.expireStale(ctx, g)
		return nil, apperr.New(apperr.KindInvalidState, "grant has already expired")
	}
	if g.Status != StatusActive {
		return nil, apperr.Newf(apperr.KindInvalidState, "cannot revoke a %s grant", g.Status)
	}

	ok, err := s.repo.Revoke(ctx, g.ID, actor.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "grant state changed concurrently")
	}

	g.Status = StatusRevoked
	g.RevokerID = &actor.ID
	g.RevokedAt = &now

	s.record(ctx, actor, audit.ActionGrantRevoked, g, "revoked before expiry")
	return g, nil
}

// Get returns a grant. Requesters may read their own grants; anyone else
// needs grant management rights over the grant's tenant.
func (s *Service) Get(ctx context.Context, viewer *auth.Identity, id uuid.UUID) (*Grant, error) {
	g, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if viewer.ID != g.RequesterID {
		if err := s.authorizeDecision(viewer, g); err != nil {
			return nil, err
		}
	}
	s.expireStale(ctx, g)
	return g, nil
}

// List returns grants visible to the viewer. Support agents see only their
// own requests; tenant admins see their tenant; superadmins see everything.
func (s *Service) List(ctx context.Context, viewer *auth.Identity, filter ListFilter) ([]*Grant, int, error) {
	switch {
	case viewer.Role == auth.RoleSuperAdmin:
		// No pinning.
	case auth.HasPermission(viewer.Role, auth.PermManageGrants):
		filter.TenantID = viewer.TenantID
	default:
		filter.RequesterID = viewer.ID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	for _, g := range items {
		s.expireStale(ctx, g)
	}
	return items, total, nil
}

// CheckAccess reports whether the requester currently holds active support
// access to the tenant. Each positive answer is itself audited, so every
// use of granted access leaves a trace.
func (s *Service) CheckAccess(ctx context.Context, requester *auth.Identity, tenantID string) (*Grant, bool, error) {
	g, err := s.repo.FindOpen(ctx, requester.ID, tenantID)
	if err != nil {
		return nil, false, err
	}
	if g == nil {
		return nil, false, nil
	}
	if !g.IsActive(s.now()) {
		s.expireStale(ctx, g)
		return g, false, nil
	}

	s.record(ctx, requester, audit.ActionGrantExercised, g,
		fmt.Sprintf("%s access exercised", g.AccessLevel))
	return g, true, nil
}

// authorizeDecision checks that the actor may decide or inspect grants for
// the grant's tenant. Requesters never decide their own grants.
func (s *Service) authorizeDecision(actor *auth.Identity, g *Grant) error {
	if !auth.HasPermission(actor.Role, auth.PermManageGrants) {
		return apperr.New(apperr.KindForbidden, "grant management rights required")
	}
	if actor.Role != auth.RoleSuperAdmin && actor.TenantID != g.TenantID {
		return apperr.New(apperr.KindForbidden, "grant belongs to another tenant")
	}
	if actor.ID == g.RequesterID {
		return apperr.New(apperr.KindForbidden, "cannot decide your own grant request")
	}
	return nil
}

// expireStale flips a stored active row whose expiry has passed. The flip
// is best effort: the derived status is already authoritative, so a lost
// race or write failure only delays the column update.
func (s *Service) expireStale(ctx context.Context, g *Grant) {
	now := s.now()
	if g.Status != StatusActive || g.IsActive(now) {
		return
	}
	flipped, err := s.repo.MarkExpired(ctx, g.ID, now)
	if err != nil {
		s.logger.Warn().Err(err).Str("grant_id", g.ID.String()).Msg("failed to persist grant expiry")
	} else if flipped {
		s.record(ctx, nil, audit.ActionGrantExpired, g, "expiry detected on read")
	}
	g.Status = StatusExpired
}

func (s *Service) record(ctx context.Context, actor *auth.Identity, action string, g *Grant, detail string) {
	entry := &audit.Entry{
		Action:     action,
		TenantID:   g.TenantID,
		TargetType: "support_grant",
		TargetID:   g.ID.String(),
		Detail:     detail,
		RecordedAt: s.now(),
	}
	if actor != nil {
		entry.ActorID = &actor.ID
		entry.ActorRole = string(actor.Role)
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Str("grant_id", g.ID.String()).
			Msg("failed to write audit entry")
	}
}
