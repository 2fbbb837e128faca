package visit

import (
	"time"

	"github.com/google/uuid"
)

// Status lifecycle for a visit:
//
//	planned -> in_progress | cancelled
//	in_progress -> completed | cancelled
//
// completed and cancelled are terminal.
type Status string

const (
	StatusPlanned    Status = "planned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

var transitions = map[Status]map[Status]bool{
	StatusPlanned:    {StatusInProgress: true, StatusCancelled: true},
	StatusInProgress: {StatusCompleted: true, StatusCancelled: true},
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Visit maps to the visit table in the tenant schema. AppointmentID is
// set when the visit originated from a booked appointment; walk-ins
// leave it empty.
type Visit struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID     uuid.UUID  `db:"provider_id" json:"provider_id"`
	AppointmentID  *uuid.UUID `db:"appointment_id" json:"appointment_id,omitempty"`
	Status         Status     `db:"status" json:"status"`
	ChiefComplaint *string    `db:"chief_complaint" json:"chief_complaint,omitempty"`
	Disposition    *string    `db:"disposition" json:"disposition,omitempty"`
	Notes          *string    `db:"notes" json:"notes,omitempty"`
	StartedAt      *time.Time `db:"started_at" json:"started_at,omitempty"`
	EndedAt        *time.Time `db:"ended_at" json:"ended_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
