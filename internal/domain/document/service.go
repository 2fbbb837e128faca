package document

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/apperr"
	"github.com/carebase/carebase/internal/platform/auth"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// CreateDraft registers document metadata in the draft status. The
// author is always the authenticated caller.
func (s *Service) CreateDraft(ctx context.Context, actor *auth.Identity, d *Document) error {
	if d.PatientID == uuid.Nil {
		return apperr.New(apperr.KindValidation, "patient_id is required")
	}
	if d.Type == "" || d.Title == "" {
		return apperr.New(apperr.KindValidation, "type and title are required")
	}
	if d.StorageURI == "" {
		return apperr.New(apperr.KindValidation, "storage_uri is required")
	}
	if d.ContentType == "" {
		d.ContentType = "application/pdf"
	}
	d.AuthorID = actor.ID
	d.Status = StatusDraft
	return s.repo.Create(ctx, d)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// Update edits draft metadata. Final and amended documents are locked;
// corrections go through Amend.
func (s *Service) Update(ctx context.Context, d *Document) (*Document, error) {
	current, err := s.repo.GetByID(ctx, d.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusDraft {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot edit a %s document", current.Status))
	}
	if d.Type != "" {
		current.Type = d.Type
	}
	if d.Title != "" {
		current.Title = d.Title
	}
	if d.StorageURI != "" {
		current.StorageURI = d.StorageURI
	}
	if d.ContentType != "" {
		current.ContentType = d.ContentType
	}
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Finalize locks a draft.
func (s *Service) Finalize(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusDraft {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot finalize a %s document", d.Status))
	}
	from := d.Status
	now := s.now().UTC()
	d.Status = StatusFinal
	d.FinalizedAt = &now
	ok, err := s.repo.UpdateStatus(ctx, d, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "document status changed concurrently")
	}
	return d, nil
}

// Amend supersedes the content of a final document with a corrected
// version. Repeated amendments are allowed; each updates amended_at.
func (s *Service) Amend(ctx context.Context, id uuid.UUID, storageURI string) (*Document, error) {
	if storageURI == "" {
		return nil, apperr.New(apperr.KindValidation, "storage_uri of the corrected content is required")
	}
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusFinal && d.Status != StatusAmended {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot amend a %s document", d.Status))
	}
	from := d.Status
	now := s.now().UTC()
	d.Status = StatusAmended
	d.StorageURI = storageURI
	d.AmendedAt = &now
	ok, err := s.repo.UpdateStatus(ctx, d, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "document status changed concurrently")
	}
	return d, nil
}

// Delete removes a draft. Finalized records are part of the chart and
// stay forever.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Status != StatusDraft {
		return apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot delete a %s document", d.Status))
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Document, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown status %q", f.Status))
	}
	return s.repo.List(ctx, f)
}
