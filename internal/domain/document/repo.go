package document

import (
	"context"

	"github.com/google/uuid"
)

type ListFilter struct {
	PatientID uuid.UUID
	VisitID   uuid.UUID
	AuthorID  uuid.UUID
	Type      string
	Status    Status
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Update(ctx context.Context, d *Document) error
	UpdateStatus(ctx context.Context, d *Document, from Status) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ListFilter) ([]*Document, int, error)
}
