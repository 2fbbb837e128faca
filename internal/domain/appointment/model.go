package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status vocabulary for an appointment. Transitions:
//
//	scheduled  -> checked_in | cancelled | no_show
//	checked_in -> completed | cancelled
//
// completed, cancelled and no_show are terminal.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var transitions = map[Status]map[Status]bool{
	StatusScheduled: {StatusCheckedIn: true, StatusCancelled: true, StatusNoShow: true},
	StatusCheckedIn: {StatusCompleted: true, StatusCancelled: true},
}

func ValidStatus(s Status) bool {
	switch s {
	case StatusScheduled, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// CanTransition reports whether an appointment in status from may move
// to status to.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Appointment maps to the appointment table in the tenant schema.
type Appointment struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProviderID uuid.UUID  `db:"provider_id" json:"provider_id"`
	Status     Status     `db:"status" json:"status"`
	StartTime  time.Time  `db:"start_time" json:"start_time"`
	EndTime    time.Time  `db:"end_time" json:"end_time"`
	Reason     *string    `db:"reason" json:"reason,omitempty"`
	Location   *string    `db:"location" json:"location,omitempty"`
	Notes      *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
