package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows appointment listings. Zero values are ignored.
type ListFilter struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Status     Status
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*Appointment, int, error)
}
