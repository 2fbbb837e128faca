package grant

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	grants map[uuid.UUID]*Grant

	// afterGet runs once after the next GetByID, to interleave a competing
	// write between a service's read and its compare-and-set update.
	afterGet func()
}

func newMockRepo() *mockRepo {
	return &mockRepo{grants: make(map[uuid.UUID]*Grant)}
}

func (m *mockRepo) Create(_ context.Context, g *Grant) error {
	g.ID = uuid.New()
	g.CreatedAt = g.RequestedAt
	g.UpdatedAt = g.RequestedAt
	copied := *g
	m.grants[g.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Grant, error) {
	g, ok := m.grants[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "grant not found")
	}
	copied := *g
	if m.afterGet != nil {
		hook := m.afterGet
		m.afterGet = nil
		hook()
	}
	return &copied, nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter) ([]*Grant, int, error) {
	var result []*Grant
	for _, g := range m.grants {
		if filter.TenantID != "" && g.TenantID != filter.TenantID {
			continue
		}
		if filter.RequesterID != uuid.Nil && g.RequesterID != filter.RequesterID {
			continue
		}
		if filter.Status != "" && g.Status != filter.Status {
			continue
		}
		copied := *g
		result = append(result, &copied)
	}
	return result, len(result), nil
}

func (m *mockRepo) FindOpen(_ context.Context, requesterID uuid.UUID, tenantID string) (*Grant, error) {
	for _, g := range m.grants {
		if g.RequesterID == requesterID && g.TenantID == tenantID &&
			(g.Status == StatusPending || g.Status == StatusActive) {
			copied := *g
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockRepo) Approve(_ context.Context, id, deciderID uuid.UUID, decidedAt, expiresAt time.Time) (bool, error) {
	g, ok := m.grants[id]
	if !ok || g.Status != StatusPending {
		return false, nil
	}
	g.Status = StatusActive
	g.DeciderID = &deciderID
	g.DecidedAt = &decidedAt
	g.ExpiresAt = &expiresAt
	return true, nil
}

func (m *mockRepo) Deny(_ context.Context, id, deciderID uuid.UUID, decidedAt time.Time) (bool, error) {
	g, ok := m.grants[id]
	if !ok || g.Status != StatusPending {
		return false, nil
	}
	g.Status = StatusDenied
	g.DeciderID = &deciderID
	g.DecidedAt = &decidedAt
	return true, nil
}

func (m *mockRepo) Revoke(_ context.Context, id, revokerID uuid.UUID, revokedAt time.Time) (bool, error) {
	g, ok := m.grants[id]
	if !ok || g.Status != StatusActive {
		return false, nil
	}
	g.Status = StatusRevoked
	g.RevokerID = &revokerID
	g.RevokedAt = &revokedAt
	return true, nil
}

func (m *mockRepo) MarkExpired(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	g, ok := m.grants[id]
	if !ok || g.Status != StatusActive || g.ExpiresAt == nil || g.ExpiresAt.After(now) {
		return false, nil
	}
	g.Status = StatusExpired
	return true, nil
}

// -- Fixtures --

var baseTime = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	repo    *mockRepo
	store   *audit.MemoryStore
	tenants map[string]bool
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMockRepo()
	store := audit.NewMemoryStore()
	tenants := map[string]bool{"mercy_west": true, "seaside": true}
	checker := func(_ context.Context, tenantID string) (bool, error) {
		return tenants[tenantID], nil
	}
	svc := NewService(repo, checker, store, zerolog.Nop(), 48*time.Hour)
	clock := baseTime
	f := &fixture{svc: svc, repo: repo, store: store, tenants: tenants, clock: &clock}
	svc.now = func() time.Time { return *f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func supportAgent() *auth.Identity {
	return &auth.Identity{ID: uuid.New(), Email: "agent@carebase.example", Role: auth.RoleSupportAgent, Active: true}
}

func tenantAdmin(tenant string) *auth.Identity {
	return &auth.Identity{ID: uuid.New(), Email: "admin@" + tenant, Role: auth.RoleTenantAdmin, TenantID: tenant, Active: true}
}

func superAdmin() *auth.Identity {
	return &auth.Identity{ID: uuid.New(), Email: "root@carebase.example", Role: auth.RoleSuperAdmin, Active: true}
}

func (f *fixture) request(t *testing.T, agent *auth.Identity, tenant string, hours int) *Grant {
	t.Helper()
	g, err := f.svc.Request(context.Background(), agent, RequestInput{
		TenantID:      tenant,
		AccessLevel:   AccessMetadata,
		Reason:        "ticket #4411",
		DurationHours: hours,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	return g
}

func (f *fixture) auditActions() []string {
	actions := []string{}
	for _, entry := range f.store.Entries() {
		actions = append(actions, entry.Action)
	}
	return actions
}

// -- Request --

func TestRequest_CreatesPendingGrant(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()

	g := f.request(t, agent, "mercy_west", 24)

	if g.Status != StatusPending {
		t.Errorf("status = %s, want pending", g.Status)
	}
	if g.ExpiresAt != nil {
		t.Error("expires_at must not be set before approval")
	}
	if !g.RequestedAt.Equal(baseTime) {
		t.Errorf("requested_at = %v, want %v", g.RequestedAt, baseTime)
	}
	if actions := f.auditActions(); len(actions) != 1 || actions[0] != audit.ActionGrantRequested {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestRequest_DurationValidation(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()

	// 48 hours exactly is the ceiling and is allowed.
	if _, err := f.svc.Request(context.Background(), agent, RequestInput{
		TenantID: "mercy_west", AccessLevel: AccessMetadata, Reason: "r", DurationHours: 48,
	}); err != nil {
		t.Errorf("48h request: %v", err)
	}

	for _, hours := range []int{49, 0, -1} {
		_, err := f.svc.Request(context.Background(), supportAgent(), RequestInput{
			TenantID: "mercy_west", AccessLevel: AccessMetadata, Reason: "r", DurationHours: hours,
		})
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("%dh request: got %v, want validation error", hours, err)
		}
	}
}

func TestRequest_RequiredFields(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()

	_, err := f.svc.Request(context.Background(), agent, RequestInput{
		AccessLevel: AccessMetadata, Reason: "r", DurationHours: 4,
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("missing tenant: got %v", err)
	}

	_, err = f.svc.Request(context.Background(), agent, RequestInput{
		TenantID: "mercy_west", AccessLevel: AccessMetadata, DurationHours: 4,
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("missing reason: got %v", err)
	}

	_, err = f.svc.Request(context.Background(), agent, RequestInput{
		TenantID: "mercy_west", AccessLevel: AccessLevel("root"), Reason: "r", DurationHours: 4,
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("bad access level: got %v", err)
	}
}

func TestRequest_UnknownTenantNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Request(context.Background(), supportAgent(), RequestInput{
		TenantID: "no_such_tenant", AccessLevel: AccessMetadata, Reason: "r", DurationHours: 4,
	})
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("unknown tenant: got %v, want not found", err)
	}
	if entries := f.store.Entries(); len(entries) != 0 {
		t.Errorf("no grant should be recorded, got %d audit entries", len(entries))
	}
}

func TestRequest_DuplicateOpenGrantConflicts(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	f.request(t, agent, "mercy_west", 24)

	_, err := f.svc.Request(context.Background(), agent, RequestInput{
		TenantID: "mercy_west", AccessLevel: AccessMetadata, Reason: "again", DurationHours: 4,
	})
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("duplicate pending: got %v, want conflict", err)
	}

	// A different tenant is fine.
	if _, err := f.svc.Request(context.Background(), agent, RequestInput{
		TenantID: "seaside", AccessLevel: AccessMetadata, Reason: "other", DurationHours: 4,
	}); err != nil {
		t.Errorf("different tenant: %v", err)
	}
}

func TestRequest_ExpiredGrantDoesNotBlockNewRequest(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// The stored row still says active, but the window has lapsed.
	f.advance(25 * time.Hour)
	if _, err := f.svc.Request(context.Background(), agent, RequestInput{
		TenantID: "mercy_west", AccessLevel: AccessMetadata, Reason: "new ticket", DurationHours: 4,
	}); err != nil {
		t.Errorf("request after expiry: %v", err)
	}
	if f.repo.grants[g.ID].Status != StatusExpired {
		t.Errorf("stale row not flipped, status = %s", f.repo.grants[g.ID].Status)
	}
}

// -- Approve / Deny --

func TestApprove_ActivatesWithExpiryFromApprovalTime(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)

	// The window starts when the admin approves, not when the agent asked.
	f.advance(2 * time.Hour)
	approved, err := f.svc.Approve(context.Background(), admin, g.ID, 0)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != StatusActive {
		t.Errorf("status = %s, want active", approved.Status)
	}
	wantExpiry := baseTime.Add(2 * time.Hour).Add(24 * time.Hour)
	if approved.ExpiresAt == nil || !approved.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", approved.ExpiresAt, wantExpiry)
	}
	if approved.DeciderID == nil || *approved.DeciderID != admin.ID {
		t.Error("decider not recorded")
	}
}

func TestApprove_DurationOverride(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)

	// The admin grants a shorter window than the agent asked for.
	approved, err := f.svc.Approve(context.Background(), admin, g.ID, 4)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	wantExpiry := baseTime.Add(4 * time.Hour)
	if approved.ExpiresAt == nil || !approved.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("expires_at = %v, want %v", approved.ExpiresAt, wantExpiry)
	}
}

func TestApprove_DurationOverrideBounds(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 49); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("over-limit override: got %v, want validation", err)
	}
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, -1); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("negative override: got %v, want validation", err)
	}

	// A rejected override leaves the grant pending.
	if f.repo.grants[g.ID].Status != StatusPending {
		t.Errorf("status = %s, want pending", f.repo.grants[g.ID].Status)
	}
}

func TestApprove_AlreadyDecidedIsInvalidState(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("first approve: %v", err)
	}

	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("second approve: got %v, want invalid state", err)
	}
	if _, err := f.svc.Deny(context.Background(), admin, g.ID); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("deny after approve: got %v, want invalid state", err)
	}
}

func TestApprove_LostRaceConflicts(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	adminA := tenantAdmin("mercy_west")
	adminB := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)

	// Admin B wins the update between admin A's read and write, so admin A
	// sees a pending grant but loses the compare-and-set.
	f.repo.afterGet = func() {
		if _, err := f.svc.Approve(context.Background(), adminB, g.ID, 0); err != nil {
			t.Fatalf("competing approve: %v", err)
		}
	}
	if _, err := f.svc.Approve(context.Background(), adminA, g.ID, 0); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("lost race: got %v, want conflict", err)
	}
}

func TestApprove_Authorization(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	g := f.request(t, agent, "mercy_west", 24)

	// A tenant admin of a different tenant cannot decide.
	if _, err := f.svc.Approve(context.Background(), tenantAdmin("seaside"), g.ID, 0); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("foreign tenant admin: got %v, want forbidden", err)
	}
	// Roles without manage-grants cannot decide.
	physician := &auth.Identity{ID: uuid.New(), Role: auth.RolePhysician, TenantID: "mercy_west", Active: true}
	if _, err := f.svc.Approve(context.Background(), physician, g.ID, 0); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("physician: got %v, want forbidden", err)
	}
	// Superadmins can decide for any tenant.
	if _, err := f.svc.Approve(context.Background(), superAdmin(), g.ID, 0); err != nil {
		t.Errorf("superadmin: %v", err)
	}
}

func TestApprove_SelfDecisionForbidden(t *testing.T) {
	f := newFixture(t)
	// A superadmin requesting support access still cannot approve themselves.
	requester := superAdmin()
	g, err := f.svc.Request(context.Background(), requester, RequestInput{
		TenantID: "mercy_west", AccessLevel: AccessFull, Reason: "migration", DurationHours: 8,
	})
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if _, err := f.svc.Approve(context.Background(), requester, g.ID, 0); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("self approve: got %v, want forbidden", err)
	}
}

func TestDeny_IsTerminal(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	denied, err := f.svc.Deny(context.Background(), admin, g.ID)
	if err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if denied.Status != StatusDenied {
		t.Errorf("status = %s, want denied", denied.Status)
	}

	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("approve after deny: got %v, want invalid state", err)
	}

	// A denied grant never confers access.
	_, active, err := f.svc.CheckAccess(context.Background(), agent, "mercy_west")
	if err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	if active {
		t.Error("denied grant reported active")
	}
}

// -- Expiry --

func TestExpiry_DerivedFromClock(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// One hour before expiry the grant confers access.
	f.advance(23 * time.Hour)
	_, active, err := f.svc.CheckAccess(context.Background(), agent, "mercy_west")
	if err != nil || !active {
		t.Fatalf("at 23h: active=%v err=%v, want active", active, err)
	}

	// Two hours later it does not, with no timer having fired.
	f.advance(2 * time.Hour)
	checked, active, err := f.svc.CheckAccess(context.Background(), agent, "mercy_west")
	if err != nil {
		t.Fatalf("at 25h: %v", err)
	}
	if active {
		t.Error("expired grant reported active")
	}
	if checked.Status != StatusExpired {
		t.Errorf("status = %s, want expired", checked.Status)
	}
	if f.repo.grants[g.ID].Status != StatusExpired {
		t.Errorf("stored status = %s, want expired", f.repo.grants[g.ID].Status)
	}
}

func TestExpiry_ExactBoundaryIsExpired(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	// now == expires_at: the window is half-open, access has ended.
	f.advance(24 * time.Hour)
	loaded, err := f.svc.Get(context.Background(), agent, g.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.Status != StatusExpired {
		t.Errorf("status at boundary = %s, want expired", loaded.Status)
	}
}

func TestExpiry_FlipRecordsAuditEntry(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 4)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	f.advance(5 * time.Hour)
	if _, err := f.svc.Get(context.Background(), agent, g.ID); err != nil {
		t.Fatalf("Get: %v", err)
	}

	found := false
	for _, entry := range f.store.Entries() {
		if entry.Action == audit.ActionGrantExpired && entry.TargetID == g.ID.String() {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %s entry, got %v", audit.ActionGrantExpired, f.auditActions())
	}
}

// -- Revoke --

func TestRevoke_ActiveGrant(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	revoked, err := f.svc.Revoke(context.Background(), admin, g.ID)
	if err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if revoked.Status != StatusRevoked {
		t.Errorf("status = %s, want revoked", revoked.Status)
	}

	_, active, err := f.svc.CheckAccess(context.Background(), agent, "mercy_west")
	if err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	if active {
		t.Error("revoked grant reported active")
	}
}

func TestRevoke_ExpiredGrantIsInvalidState(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 4)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	f.advance(5 * time.Hour)

	_, err := f.svc.Revoke(context.Background(), admin, g.ID)
	if apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("revoke expired: got %v, want invalid state", err)
	}
	if f.repo.grants[g.ID].Status != StatusExpired {
		t.Errorf("stored status = %s, want expired", f.repo.grants[g.ID].Status)
	}
}

func TestRevoke_PendingGrantIsInvalidState(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 4)
	if _, err := f.svc.Revoke(context.Background(), admin, g.ID); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("revoke pending: got %v, want invalid state", err)
	}
}

// -- Visibility --

func TestGet_RequesterSeesOwnGrantOnly(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	other := supportAgent()
	g := f.request(t, agent, "mercy_west", 24)

	if _, err := f.svc.Get(context.Background(), agent, g.ID); err != nil {
		t.Errorf("own grant: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), other, g.ID); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("other agent: got %v, want forbidden", err)
	}
	if _, err := f.svc.Get(context.Background(), tenantAdmin("mercy_west"), g.ID); err != nil {
		t.Errorf("tenant admin: %v", err)
	}
}

func TestList_ScopedByViewer(t *testing.T) {
	f := newFixture(t)
	agentA := supportAgent()
	agentB := supportAgent()
	f.request(t, agentA, "mercy_west", 4)
	f.request(t, agentB, "mercy_west", 4)
	f.request(t, agentB, "seaside", 4)

	items, _, err := f.svc.List(context.Background(), agentA, ListFilter{Limit: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].RequesterID != agentA.ID {
		t.Errorf("agent sees %d grants, want own 1", len(items))
	}

	items, _, err = f.svc.List(context.Background(), tenantAdmin("mercy_west"), ListFilter{Limit: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("tenant admin sees %d grants, want 2", len(items))
	}

	items, _, err = f.svc.List(context.Background(), superAdmin(), ListFilter{Limit: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 3 {
		t.Errorf("superadmin sees %d grants, want 3", len(items))
	}
}

// -- Audit trail --

func TestLifecycleWritesAuditTrail(t *testing.T) {
	f := newFixture(t)
	agent := supportAgent()
	admin := tenantAdmin("mercy_west")

	g := f.request(t, agent, "mercy_west", 24)
	if _, err := f.svc.Approve(context.Background(), admin, g.ID, 0); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if _, _, err := f.svc.CheckAccess(context.Background(), agent, "mercy_west"); err != nil {
		t.Fatalf("CheckAccess: %v", err)
	}
	if _, err := f.svc.Revoke(context.Background(), admin, g.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	want := []string{
		audit.ActionGrantRequested,
		audit.ActionGrantApproved,
		audit.ActionGrantExercised,
		audit.ActionGrantRevoked,
	}
	got := f.auditActions()
	if len(got) != len(want) {
		t.Fatalf("audit actions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("audit[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
