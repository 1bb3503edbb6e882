package models

import "time"

// EventType names a domain event on the change stream.
type EventType string

const (
	EventReceiptSubmitted   EventType = "receipt.submitted"
	EventReceiptDecided     EventType = "receipt.decided"
	EventUnitCleared        EventType = "unit.cleared"
	EventUnitRejected       EventType = "unit.rejected"
	EventSemesterRolledOver EventType = "semester.rolled_over"
)

// DomainEvent is a refresh hint published after a committed change.
type DomainEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	StudentID  string         `json:"student_id,omitempty"`
	UnitID     UnitID         `json:"unit_id,omitempty"`
	ReceiptID  string         `json:"receipt_id,omitempty"`
	SemesterID string         `json:"semester_id,omitempty"`
	State      ClearanceState `json:"state,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventFilter selects which events a subscriber receives. Zero values match
// everything.
type EventFilter struct {
	StudentID string
	UnitID    UnitID
}

// Matches reports whether e passes the filter. Rollover events are broadcast.
func (f EventFilter) Matches(e DomainEvent) bool {
	if e.Type == EventSemesterRolledOver {
		return true
	}
	if f.StudentID != "" && e.StudentID != f.StudentID {
		return false
	}
	if f.UnitID != "" && e.UnitID != f.UnitID {
		return false
	}
	return true
}
