package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/audit"
	"github.com/carebase/carebase/internal/platform/auth"
)

// -- Mock Repository --

type mockRepo struct {
	users map[uuid.UUID]*User
}

func newMockRepo() *mockRepo {
	return &mockRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperr.New(apperr.KindConflict, "email is already registered")
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	copied := *u
	m.users[u.ID] = &copied
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "user not found")
	}
	copied := *u
	return &copied, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperr.New(apperr.KindNotFound, "user not found")
}

func (m *mockRepo) Update(_ context.Context, u *User) error {
	stored, ok := m.users[u.ID]
	if !ok {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.Role = u.Role
	stored.TenantID = u.TenantID
	return nil
}

func (m *mockRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = hash
	}
	return nil
}

func (m *mockRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	if u, ok := m.users[id]; ok {
		u.Active = active
	}
	return nil
}

func (m *mockRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := m.users[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter) ([]*User, int, error) {
	var result []*User
	for _, u := range m.users {
		if filter.TenantID != "" && u.TenantID != filter.TenantID {
			continue
		}
		if filter.Role != "" && u.Role != filter.Role {
			continue
		}
		copied := *u
		result = append(result, &copied)
	}
	return result, len(result), nil
}

// -- Fixtures --

type fixture struct {
	svc   *Service
	repo  *mockRepo
	store *audit.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"), "HS256", 30*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	repo := newMockRepo()
	store := audit.NewMemoryStore()
	return &fixture{
		svc:   NewService(repo, tokens, store, zerolog.Nop()),
		repo:  repo,
		store: store,
	}
}

func (f *fixture) seedUser(t *testing.T, email, password string, role auth.Role, tenant string) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	u := &User{
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		TenantID:     tenant,
		Active:       true,
	}
	if err := f.repo.Create(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// -- Login --

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "nurse@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")

	pair, u, err := f.svc.Login(context.Background(), "nurse@mercy.example", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("expected both tokens")
	}
	if pair.ExpiresIn != 1800 {
		t.Errorf("expires_in = %d, want 1800", pair.ExpiresIn)
	}
	if u.LastLoginAt == nil {
		t.Error("last_login_at not set")
	}
	if f.repo.users[u.ID].LastLoginAt == nil {
		t.Error("last login not persisted")
	}
}

func TestLogin_WrongPasswordAndUnknownEmailLookAlike(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "nurse@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")

	_, _, err1 := f.svc.Login(context.Background(), "nurse@mercy.example", "wrong")
	_, _, err2 := f.svc.Login(context.Background(), "nobody@mercy.example", "wrong")

	if apperr.KindOf(err1) != apperr.KindUnauthorized || apperr.KindOf(err2) != apperr.KindUnauthorized {
		t.Fatalf("got %v / %v, want unauthorized for both", err1, err2)
	}
	if err1.Error() != err2.Error() {
		t.Errorf("error messages differ: %q vs %q", err1, err2)
	}
}

func TestLogin_DeactivatedAccountForbidden(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "gone@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")
	f.repo.users[u.ID].Active = false

	_, _, err := f.svc.Login(context.Background(), "gone@mercy.example", "correct horse")
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("got %v, want forbidden", err)
	}
}

func TestLogin_FailureIsAudited(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "nurse@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")

	_, _, _ = f.svc.Login(context.Background(), "nurse@mercy.example", "wrong")

	entries := f.store.Entries()
	if len(entries) != 1 || entries[0].Action != audit.ActionLoginFailed {
		t.Errorf("audit entries = %+v, want one login_failed", entries)
	}
}

// -- Refresh --

func TestRefresh_IssuesNewPair(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "nurse@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")

	pair, _, err := f.svc.Login(context.Background(), "nurse@mercy.example", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	next, err := f.svc.Refresh(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.AccessToken == "" || next.RefreshToken == "" {
		t.Error("expected a fresh pair")
	}
}

func TestRefresh_AccessTokenRejected(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "nurse@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")

	pair, _, err := f.svc.Login(context.Background(), "nurse@mercy.example", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := f.svc.Refresh(context.Background(), pair.AccessToken); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("access token at refresh endpoint: got %v, want unauthorized", err)
	}
}

func TestRefresh_DeactivatedAccount(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "nurse@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")

	pair, _, err := f.svc.Login(context.Background(), "nurse@mercy.example", "correct horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	f.repo.users[u.ID].Active = false

	if _, err := f.svc.Refresh(context.Background(), pair.RefreshToken); apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("got %v, want forbidden", err)
	}
}

// -- Account management --

func admin(tenant string) *auth.Identity {
	return &auth.Identity{ID: uuid.New(), Role: auth.RoleTenantAdmin, TenantID: tenant, Active: true}
}

func root() *auth.Identity {
	return &auth.Identity{ID: uuid.New(), Role: auth.RoleSuperAdmin, Active: true}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	actor := admin("mercy_west")

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"bad email", CreateInput{Email: "nope", Password: "long enough", Role: auth.RoleNurse, TenantID: "mercy_west"}},
		{"short password", CreateInput{Email: "a@b.example", Password: "short", Role: auth.RoleNurse, TenantID: "mercy_west"}},
		{"unknown role", CreateInput{Email: "a@b.example", Password: "long enough", Role: "janitor", TenantID: "mercy_west"}},
	}
	for _, tc := range cases {
		if _, err := f.svc.Create(context.Background(), actor, tc.input); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("%s: got %v, want validation error", tc.name, err)
		}
	}
}

func TestCreate_TenantAdminScoping(t *testing.T) {
	f := newFixture(t)
	actor := admin("mercy_west")

	// Own tenant works.
	u, err := f.svc.Create(context.Background(), actor, CreateInput{
		Email: "new@mercy.example", Password: "long enough", FirstName: "New", LastName: "Nurse",
		Role: auth.RoleNurse, TenantID: "mercy_west",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !u.Active {
		t.Error("new account should start active")
	}

	// Another tenant is forbidden.
	_, err = f.svc.Create(context.Background(), actor, CreateInput{
		Email: "other@seaside.example", Password: "long enough", Role: auth.RoleNurse, TenantID: "seaside",
	})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("foreign tenant: got %v, want forbidden", err)
	}

	// Tenant admins cannot mint superadmins.
	_, err = f.svc.Create(context.Background(), actor, CreateInput{
		Email: "god@mercy.example", Password: "long enough", Role: auth.RoleSuperAdmin, TenantID: "mercy_west",
	})
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("mint superadmin: got %v, want forbidden", err)
	}

	// Superadmins can.
	if _, err := f.svc.Create(context.Background(), root(), CreateInput{
		Email: "god@carebase.example", Password: "long enough", Role: auth.RoleSuperAdmin,
	}); err != nil {
		t.Errorf("superadmin minting superadmin: %v", err)
	}
}

func TestCreate_DuplicateEmailConflicts(t *testing.T) {
	f := newFixture(t)
	actor := admin("mercy_west")
	input := CreateInput{
		Email: "dup@mercy.example", Password: "long enough", Role: auth.RoleNurse, TenantID: "mercy_west",
	}

	if _, err := f.svc.Create(context.Background(), actor, input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := f.svc.Create(context.Background(), actor, input); apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("second create: got %v, want conflict", err)
	}
}

func TestSetActive_SelfDeactivationRejected(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "admin@mercy.example", "correct horse", auth.RoleTenantAdmin, "mercy_west")
	actor := u.Identity()

	if _, err := f.svc.SetActive(context.Background(), actor, u.ID, false); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("self deactivate: got %v, want validation error", err)
	}
}

func TestSetActive_DeactivationStopsResolution(t *testing.T) {
	f := newFixture(t)
	nurse := f.seedUser(t, "nurse@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")

	if _, err := f.svc.SetActive(context.Background(), admin("mercy_west"), nurse.ID, false); err != nil {
		t.Fatalf("SetActive: %v", err)
	}

	identity, err := f.svc.ResolveIdentity(context.Background(), nurse.ID)
	if err != nil {
		t.Fatalf("ResolveIdentity: %v", err)
	}
	if identity.Active {
		t.Error("resolved identity still active after deactivation")
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	u := f.seedUser(t, "nurse@mercy.example", "old password", auth.RoleNurse, "mercy_west")
	actor := u.Identity()

	if err := f.svc.ChangePassword(context.Background(), actor, "wrong", "new password!"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("wrong current password: got %v, want unauthorized", err)
	}
	if err := f.svc.ChangePassword(context.Background(), actor, "old password", "short"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("short new password: got %v, want validation error", err)
	}
	if err := f.svc.ChangePassword(context.Background(), actor, "old password", "new password!"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, _, err := f.svc.Login(context.Background(), "nurse@mercy.example", "new password!"); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, _, err := f.svc.Login(context.Background(), "nurse@mercy.example", "old password"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("login with old password: got %v, want unauthorized", err)
	}
}

func TestList_PinnedToActorTenant(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, "a@mercy.example", "correct horse", auth.RoleNurse, "mercy_west")
	f.seedUser(t, "b@seaside.example", "correct horse", auth.RoleNurse, "seaside")

	items, _, err := f.svc.List(context.Background(), admin("mercy_west"), ListFilter{Limit: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].TenantID != "mercy_west" {
		t.Errorf("tenant admin sees %d users", len(items))
	}

	items, _, err = f.svc.List(context.Background(), root(), ListFilter{Limit: 50})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("superadmin sees %d users, want 2", len(items))
	}
}
