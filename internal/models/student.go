package models

import "time"

// Student is the clearance subject linked to a user account.
type Student struct {
	ID         string    `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Name       string    `db:"name" json:"name"`
	TrackNo    string    `db:"track_no" json:"track_no"`
	Email      string    `db:"email" json:"email"`
	Department *string   `db:"department" json:"department,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// StudentFilter narrows student listings for unit dashboards.
type StudentFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
}
