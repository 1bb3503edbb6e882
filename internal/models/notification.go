package models

import "time"

// NotificationType classifies student notifications.
type NotificationType string

const (
	NotificationRejection NotificationType = "rejection"
	NotificationClearance NotificationType = "clearance"
	NotificationInfo      NotificationType = "info"
)

// Notification is a message addressed to a student.
type Notification struct {
	ID            string           `db:"id" json:"id"`
	StudentID     string           `db:"student_id" json:"student_id"`
	Message       string           `db:"message" json:"message"`
	Type          NotificationType `db:"type" json:"type"`
	IsDismissable bool             `db:"is_dismissable" json:"is_dismissable"`
	ReadAt        *time.Time       `db:"read_at" json:"read_at,omitempty"`
	CreatedAt     time.Time        `db:"created_at" json:"created_at"`
}
