package task

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

// Create opens a task. Priority defaults to routine; the creator is the
// authenticated caller.
func (s *Service) Create(ctx context.Context, actor *auth.Identity, t *Task) error {
	if t.Title == "" {
		return apperr.New(apperr.KindValidation, "title is required")
	}
	if t.Priority == "" {
		t.Priority = PriorityRoutine
	}
	if !ValidPriority(t.Priority) {
		return apperr.New(apperr.KindValidation, fmt.Sprintf("unknown priority %q", t.Priority))
	}
	t.CreatorID = actor.ID
	t.Status = StatusOpen
	t.CompletedAt = nil
	return s.repo.Create(ctx, t)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Task, error) {
	return s.repo.GetByID(ctx, id)
}

// Update edits the details of a task that is not yet closed.
func (s *Service) Update(ctx context.Context, t *Task) (*Task, error) {
	current, err := s.repo.GetByID(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	if current.Status == StatusCompleted || current.Status == StatusCancelled {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot modify a %s task", current.Status))
	}
	if t.Title == "" {
		return nil, apperr.New(apperr.KindValidation, "title is required")
	}
	if t.Priority != "" && !ValidPriority(t.Priority) {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown priority %q", t.Priority))
	}
	current.AssigneeID = t.AssigneeID
	current.Title = t.Title
	current.Description = t.Description
	if t.Priority != "" {
		current.Priority = t.Priority
	}
	current.DueAt = t.DueAt
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Transition moves the task into the given status. Completion stamps
// completed_at.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (*Task, error) {
	if !ValidStatus(to) {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown status %q", to))
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	from := t.Status
	if !CanTransition(from, to) {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot move a %s task to %s", from, to))
	}
	t.Status = to
	if to == StatusCompleted {
		now := s.now().UTC()
		t.CompletedAt = &now
	}
	ok, err := s.repo.UpdateStatus(ctx, t, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "task status changed concurrently")
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Task, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown status %q", f.Status))
	}
	if f.Priority != "" && !ValidPriority(f.Priority) {
		return nil, 0, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown priority %q", f.Priority))
	}
	return s.repo.List(ctx, f)
}

// ListOverdue returns open tasks whose due time has passed.
func (s *Service) ListOverdue(ctx context.Context, f ListFilter) ([]*Task, int, error) {
	f.OverdueAsOf = s.now().UTC()
	return s.List(ctx, f)
}
