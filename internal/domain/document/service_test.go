package document

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/auth"
)

type mockRepo struct {
	documents map[uuid.UUID]*Document
}

func newMockRepo() *mockRepo {
	return &mockRepo{documents: make(map[uuid.UUID]*Document)}
}

func (m *mockRepo) Create(_ context.Context, d *Document) error {
	d.ID = uuid.New()
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Document, error) {
	d, ok := m.documents[id]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "document not found")
	}
	cp := *d
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, d *Document) error {
	cp := *d
	m.documents[d.ID] = &cp
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, d *Document, from Status) (bool, error) {
	stored, ok := m.documents[d.ID]
	if !ok || stored.Status != from {
		return false, nil
	}
	cp := *d
	m.documents[d.ID] = &cp
	return true, nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.documents, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]*Document, int, error) {
	var items []*Document
	for _, d := range m.documents {
		if f.PatientID != uuid.Nil && d.PatientID != f.PatientID {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		cp := *d
		items = append(items, &cp)
	}
	return items, len(items), nil
}

var author = &auth.Identity{ID: uuid.New(), Role: auth.RolePhysician, TenantID: "mercy_west"}

func newFixture(t *testing.T) (*Service, *mockRepo) {
	t.Helper()
	repo := newMockRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 7, 15, 14, 0, 0, 0, time.UTC) }
	return svc, repo
}

func mustDraft(t *testing.T, svc *Service) *Document {
	t.Helper()
	d := &Document{
		PatientID:  uuid.New(),
		Type:       "progress_note",
		Title:      "Progress note",
		StorageURI: "s3://docs/note-1.pdf",
	}
	if err := svc.CreateDraft(context.Background(), author, d); err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	return d
}

func TestCreateDraft(t *testing.T) {
	svc, _ := newFixture(t)
	d := mustDraft(t, svc)

	if d.Status != StatusDraft {
		t.Errorf("status = %s, want draft", d.Status)
	}
	if d.AuthorID != author.ID {
		t.Error("author not taken from the caller identity")
	}
	if d.ContentType != "application/pdf" {
		t.Errorf("default content type = %s", d.ContentType)
	}
}

func TestCreateDraft_Validation(t *testing.T) {
	svc, _ := newFixture(t)

	cases := []struct {
		name   string
		mutate func(d *Document)
	}{
		{"missing patient", func(d *Document) { d.PatientID = uuid.Nil }},
		{"missing type", func(d *Document) { d.Type = "" }},
		{"missing title", func(d *Document) { d.Title = "" }},
		{"missing storage uri", func(d *Document) { d.StorageURI = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Document{
				PatientID:  uuid.New(),
				Type:       "progress_note",
				Title:      "Progress note",
				StorageURI: "s3://docs/note-1.pdf",
			}
			tc.mutate(d)
			if err := svc.CreateDraft(context.Background(), author, d); apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("got %v, want validation error", err)
			}
		})
	}
}

func TestFinalize(t *testing.T) {
	svc, _ := newFixture(t)
	d := mustDraft(t, svc)

	final, err := svc.Finalize(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if final.Status != StatusFinal || final.FinalizedAt == nil {
		t.Fatalf("status=%s finalized_at=%v", final.Status, final.FinalizedAt)
	}

	if _, err := svc.Finalize(context.Background(), d.ID); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("second finalize: got %v, want invalid state error", err)
	}
}

func TestAmend(t *testing.T) {
	svc, _ := newFixture(t)
	d := mustDraft(t, svc)

	if _, err := svc.Amend(context.Background(), d.ID, "s3://docs/note-1-v2.pdf"); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Fatalf("amending a draft: got %v, want invalid state error", err)
	}

	if _, err := svc.Finalize(context.Background(), d.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	amended, err := svc.Amend(context.Background(), d.ID, "s3://docs/note-1-v2.pdf")
	if err != nil {
		t.Fatalf("Amend: %v", err)
	}
	if amended.Status != StatusAmended || amended.AmendedAt == nil {
		t.Fatalf("status=%s amended_at=%v", amended.Status, amended.AmendedAt)
	}
	if amended.StorageURI != "s3://docs/note-1-v2.pdf" {
		t.Errorf("storage uri = %s", amended.StorageURI)
	}

	// A correction to the correction is still allowed.
	again, err := svc.Amend(context.Background(), d.ID, "s3://docs/note-1-v3.pdf")
	if err != nil {
		t.Fatalf("second Amend: %v", err)
	}
	if again.StorageURI != "s3://docs/note-1-v3.pdf" {
		t.Errorf("storage uri = %s", again.StorageURI)
	}

	if _, err := svc.Amend(context.Background(), d.ID, ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("empty uri: got %v, want validation error", err)
	}
}

func TestUpdate_LockedAfterFinalize(t *testing.T) {
	svc, _ := newFixture(t)
	d := mustDraft(t, svc)

	updated, err := svc.Update(context.Background(), &Document{ID: d.ID, Title: "Amended title"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "Amended title" {
		t.Errorf("title = %s", updated.Title)
	}

	if _, err := svc.Finalize(context.Background(), d.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := svc.Update(context.Background(), &Document{ID: d.ID, Title: "Too late"}); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("got %v, want invalid state error", err)
	}
}

func TestDelete_DraftOnly(t *testing.T) {
	svc, repo := newFixture(t)

	draft := mustDraft(t, svc)
	if err := svc.Delete(context.Background(), draft.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := repo.documents[draft.ID]; ok {
		t.Error("draft not deleted")
	}

	final := mustDraft(t, svc)
	if _, err := svc.Finalize(context.Background(), final.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := svc.Delete(context.Background(), final.ID); apperr.KindOf(err) != apperr.KindInvalidState {
		t.Errorf("got %v, want invalid state error", err)
	}
}

func TestList_Filters(t *testing.T) {
	svc, _ := newFixture(t)

	d1 := mustDraft(t, svc)
	mustDraft(t, svc)
	if _, err := svc.Finalize(context.Background(), d1.ID); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	_, total, err := svc.List(context.Background(), ListFilter{Status: StatusFinal, Limit: 20})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 {
		t.Errorf("final total = %d, want 1", total)
	}

	if _, _, err := svc.List(context.Background(), ListFilter{Status: "signed"}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("got %v, want validation error", err)
	}
}
