package visit

import (
	"context"

	"github.com/google/uuid"
)

type ListFilter struct {
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	Status     Status
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, v *Visit) error
	GetByID(ctx context.Context, id uuid.UUID) (*Visit, error)
	Update(ctx context.Context, v *Visit) error
	UpdateStatus(ctx context.Context, v *Visit, from Status) (bool, error)
	List(ctx context.Context, f ListFilter) ([]*Visit, int, error)
}
