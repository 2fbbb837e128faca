package task

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows task listings. OverdueAsOf, when set, restricts
// the result to open tasks whose due time has passed.
type ListFilter struct {
	PatientID   uuid.UUID
	AssigneeID  uuid.UUID
	Status      Status
	Priority    Priority
	OverdueAsOf time.Time
	Limit       int
	Offset      int
}

type Repository interface {
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	Update(ctx context.Context, t *Task) error
	UpdateStatus(ctx context.Context, t *Task, from Status) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*Task, int, error)
}
