package visit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/apperr"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Plan opens a visit in the planned status. Walk-ins have no linked
// appointment.
func (s *Service) Plan(ctx context.Context, v *Visit) error {
	if v.PatientID == uuid.Nil {
		return apperr.New(apperr.KindValidation, "patient_id is required")
	}
	if v.ProviderID == uuid.Nil {
		return apperr.New(apperr.KindValidation, "provider_id is required")
	}
	v.Status = StatusPlanned
	v.StartedAt = nil
	v.EndedAt = nil
	return s.repo.Create(ctx, v)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.repo.GetByID(ctx, id)
}

// Start moves a planned visit into progress and stamps started_at.
func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.transition(ctx, id, StatusInProgress, func(v *Visit, now time.Time) error {
		v.StartedAt = &now
		return nil
	})
}

// Complete closes a visit in progress. A disposition is required so the
// chart records how the encounter ended.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, disposition string) (*Visit, error) {
	if disposition == "" {
		return nil, apperr.New(apperr.KindValidation, "disposition is required to complete a visit")
	}
	return s.transition(ctx, id, StatusCompleted, func(v *Visit, now time.Time) error {
		v.Disposition = &disposition
		v.EndedAt = &now
		return nil
	})
}

// Cancel abandons a visit that has not completed.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Visit, error) {
	return s.transition(ctx, id, StatusCancelled, func(v *Visit, now time.Time) error {
		if v.StartedAt != nil {
			v.EndedAt = &now
		}
		return nil
	})
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to Status, apply func(*Visit, time.Time) error) (*Visit, error) {
	v, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := v.Status
	if !CanTransition(from, to) {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot move a %s visit to %s", from, to))
	}
	v.Status = to
	if err := apply(v, s.now().UTC()); err != nil {
		return nil, err
	}
	ok, err := s.repo.UpdateStatus(ctx, v, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "visit status changed concurrently")
	}
	return v, nil
}

// Update edits the clinical narrative of a visit that is still open.
func (s *Service) Update(ctx context.Context, v *Visit) (*Visit, error) {
	current, err := s.repo.GetByID(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCompleted || current.Status == StatusCancelled {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot modify a %s visit", current.Status))
	}
	current.ProviderID = v.ProviderID
	current.ChiefComplaint = v.ChiefComplaint
	current.Disposition = v.Disposition
	current.Notes = v.Notes
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Visit, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown status %q", f.Status))
	}
	return s.repo.List(ctx, f)
}
