package models

import "time"

// SemesterLabel names a semester within a session.
type SemesterLabel string

const (
	SemesterFirst  SemesterLabel = "First"
	SemesterSecond SemesterLabel = "Second"
)

// Semester is an academic period. Exactly one row is current.
type Semester struct {
	ID        string        `db:"id" json:"id"`
	Session   string        `db:"session" json:"session"`
	Semester  SemesterLabel `db:"semester" json:"semester"`
	IsCurrent bool          `db:"is_current" json:"is_current"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// RolloverResult summarises a completed semester rollover.
type RolloverResult struct {
	Semester     *Semester `json:"semester"`
	PreviousID   *string   `json:"previous_semester_id,omitempty"`
	ArchivedRows int64     `json:"archived_rows"`
	ResetRows    int64     `json:"reset_rows"`
	RolledOverAt time.Time `json:"rolled_over_at"`
}

// RolloverRequest opens a new semester and resets the ledger.
type RolloverRequest struct {
	Session  string        `json:"session" validate:"required"`
	Semester SemesterLabel `json:"semester" validate:"required,oneof=First Second"`
	Confirm  bool          `json:"confirm"`
}
