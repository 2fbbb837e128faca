package document

import (
	"time"

	"github.com/google/uuid"
)

// Status of a clinical document. Drafts are freely editable; finalizing
// locks the content, and later corrections move the document to amended.
type Status string

const (
	StatusDraft   Status = "draft"
	StatusFinal   Status = "final"
	StatusAmended Status = "amended"
)

func ValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusFinal, StatusAmended:
		return true
	}
	return false
}

// Document holds clinical document metadata. The content itself lives
// in external storage addressed by StorageURI.
type Document struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisitID     *uuid.UUID `db:"visit_id" json:"visit_id,omitempty"`
	AuthorID    uuid.UUID  `db:"author_id" json:"author_id"`
	Type        string     `db:"doc_type" json:"type"`
	Title       string     `db:"title" json:"title"`
	Status      Status     `db:"status" json:"status"`
	StorageURI  string     `db:"storage_uri" json:"storage_uri"`
	ContentType string     `db:"content_type" json:"content_type"`
	FinalizedAt *time.Time `db:"finalized_at" json:"finalized_at,omitempty"`
	AmendedAt   *time.Time `db:"amended_at" json:"amended_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}
