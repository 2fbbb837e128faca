package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/carebase/carebase/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Schedule books a new appointment in the scheduled status.
func (s *Service) Schedule(ctx context.Context, a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return apperr.New(apperr.KindValidation, "patient_id is required")
	}
	if a.ProviderID == uuid.Nil {
		return apperr.New(apperr.KindValidation, "provider_id is required")
	}
	if a.StartTime.IsZero() || a.EndTime.IsZero() {
		return apperr.New(apperr.KindValidation, "start_time and end_time are required")
	}
	if !a.EndTime.After(a.StartTime) {
		return apperr.New(apperr.KindValidation, "end_time must be after start_time")
	}
	a.Status = StatusScheduled
	return s.repo.Create(ctx, a)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Reschedule updates the slot and details of a non-terminal appointment.
func (s *Service) Reschedule(ctx context.Context, a *Appointment) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusScheduled && current.Status != StatusCheckedIn {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot modify a %s appointment", current.Status))
	}
	if !a.EndTime.After(a.StartTime) {
		return nil, apperr.New(apperr.KindValidation, "end_time must be after start_time")
	}
	current.ProviderID = a.ProviderID
	current.StartTime = a.StartTime
	current.EndTime = a.EndTime
	current.Reason = a.Reason
	current.Location = a.Location
	current.Notes = a.Notes
	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Transition moves the appointment into the given status, rejecting
// moves the status vocabulary does not allow.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status) (*Appointment, error) {
	if !ValidStatus(to) {
		return nil, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown status %q", to))
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(a.Status, to) {
		return nil, apperr.New(apperr.KindInvalidState,
			fmt.Sprintf("cannot move a %s appointment to %s", a.Status, to))
	}
	ok, err := s.repo.UpdateStatus(ctx, id, a.Status, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindConflict, "appointment status changed concurrently")
	}
	a.Status = to
	return a, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]*Appointment, int, error) {
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.New(apperr.KindValidation, fmt.Sprintf("unknown status %q", f.Status))
	}
	return s.repo.List(ctx, f)
}
