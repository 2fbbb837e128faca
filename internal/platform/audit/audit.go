package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one append-only audit record. Entries are written for every
// security-relevant action (logins, grant transitions, admin changes) and
// are never updated or deleted.
type Entry struct {
	ID         uuid.UUID  `json:"id"`
	ActorID    *uuid.UUID `json:"actor_id"`
	ActorRole  string     `json:"actor_role"`
	Action     string     `json:"action"`
	TenantID   string     `json:"tenant_id"`
	TargetType string     `json:"target_type"`
	TargetID   string     `json:"target_id"`
	Detail     string     `json:"detail"`
	RecordedAt time.Time  `json:"recorded_at"`
}

// Actions recorded by the platform. Domain packages add their own; these
// cover the security core.
const (
	ActionLogin          = "auth.login"
	ActionLoginFailed    = "auth.login_failed"
	ActionTokenRefreshed = "auth.token_refreshed"
	ActionGrantRequested = "grant.requested"
	ActionGrantApproved  = "grant.approved"
	ActionGrantDenied    = "grant.denied"
	ActionGrantRevoked   = "grant.revoked"
	ActionGrantExpired   = "grant.expired"
	ActionGrantExercised = "grant.exercised"
)

// Recorder persists audit entries. Record must not fail the caller's
// request path for transient reasons the caller cannot act on; callers log
// and continue when a write fails.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// SearchParams filters an audit log listing.
type SearchParams struct {
	ActorID    string     `query:"actor_id"`
	Action     string     `query:"action"`
	TenantID   string     `query:"tenant_id"`
	TargetType string     `query:"target_type"`
	TargetID   string     `query:"target_id"`
	From       *time.Time `query:"from"`
	To         *time.Time `query:"to"`
	Limit      int        `query:"limit"`
	Offset     int        `query:"offset"`
}

func (p *SearchParams) applyDefaults() {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}

// Store extends Recorder with read access for the audit log endpoint.
type Store interface {
	Recorder
	Search(ctx context.Context, params SearchParams) ([]*Entry, int, error)
}

// PGStore writes audit entries to the shared.audit_log table. The table
// lives in the shared schema, so the store uses the pool directly rather
// than the tenant-scoped connection.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Record(ctx context.Context, entry *Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO shared.audit_log (
			actor_id, actor_role, action, tenant_id,
			target_type, target_id, detail, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id`

	err := s.pool.QueryRow(ctx, query,
		entry.ActorID, entry.ActorRole, entry.Action, entry.TenantID,
		entry.TargetType, entry.TargetID, entry.Detail, entry.RecordedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("audit record: %w", err)
	}
	return nil
}

func (s *PGStore) Search(ctx context.Context, params SearchParams) ([]*Entry, int, error) {
	params.applyDefaults()

	where := " WHERE 1=1"
	args := []any{}
	n := 0
	add := func(clause string, value any) {
		n++
		where += fmt.Sprintf(" AND %s$%d", clause, n)
		args = append(args, value)
	}

	if params.ActorID != "" {
		add("actor_id = ", params.ActorID)
	}
	if params.Action != "" {
		add("action = ", params.Action)
	}
	if params.TenantID != "" {
		add("tenant_id = ", params.TenantID)
	}
	if params.TargetType != "" {
		add("target_type = ", params.TargetType)
	}
	if params.TargetID != "" {
		add("target_id = ", params.TargetID)
	}
	if params.From != nil {
		add("recorded_at >= ", *params.From)
	}
	if params.To != nil {
		add("recorded_at < ", *params.To)
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM shared.audit_log"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit count: %w", err)
	}

	query := `
		SELECT id, actor_id, actor_role, action, tenant_id,
		       target_type, target_id, detail, recorded_at
		FROM shared.audit_log` + where +
		fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT $%d OFFSET $%d", n+1, n+2)
	args = append(args, params.Limit, params.Offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit search: %w", err)
	}
	defer rows.Close()

	entries := make([]*Entry, 0, params.Limit)
	for rows.Next() {
		entry := &Entry{}
		if err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.ActorRole, &entry.Action, &entry.TenantID,
			&entry.TargetType, &entry.TargetID, &entry.Detail, &entry.RecordedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("audit scan: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []*Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make([]*Entry, 0)}
}

func (s *MemoryStore) Record(_ context.Context, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	copied := *entry
	s.entries = append(s.entries, &copied)
	return nil
}

func (s *MemoryStore) Search(_ context.Context, params SearchParams) ([]*Entry, int, error) {
	params.applyDefaults()
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*Entry, 0, len(s.entries))
	// Newest first, matching the SQL store's ordering.
	for i := len(s.entries) - 1; i >= 0; i-- {
		if matches(s.entries[i], params) {
			matched = append(matched, s.entries[i])
		}
	}

	total := len(matched)
	if params.Offset >= total {
		return []*Entry{}, total, nil
	}
	end := params.Offset + params.Limit
	if end > total {
		end = total
	}
	return matched[params.Offset:end], total, nil
}

// Entries returns every recorded entry in insertion order, for tests.
func (s *MemoryStore) Entries() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func matches(entry *Entry, params SearchParams) bool {
	if params.ActorID != "" && (entry.ActorID == nil || entry.ActorID.String() != params.ActorID) {
		return false
	}
	if params.Action != "" && entry.Action != params.Action {
		return false
	}
	if params.TenantID != "" && entry.TenantID != params.TenantID {
		return false
	}
	if params.TargetType != "" && entry.TargetType != params.TargetType {
		return false
	}
	if params.TargetID != "" && entry.TargetID != params.TargetID {
		return false
	}
	if params.From != nil && entry.RecordedAt.Before(*params.From) {
		return false
	}
	if params.To != nil && !entry.RecordedAt.Before(*params.To) {
		return false
	}
	return true
}
