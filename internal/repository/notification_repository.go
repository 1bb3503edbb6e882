package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

// NotificationRepository stores messages addressed to students.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs a NotificationRepository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, student_id, message, type, is_dismissable, created_at)
	VALUES (:id, :student_id, :message, :type, :is_dismissable, :created_at)`
	if _, err := conn(ctx, r.db).NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByStudent returns a student's notifications, newest first.
func (r *NotificationRepository) ListByStudent(ctx context.Context, studentID string, unreadOnly bool) ([]models.Notification, error) {
	query := `SELECT id, student_id, message, type, is_dismissable, read_at, created_at FROM notifications WHERE student_id = $1`
	if unreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC`
	var items []models.Notification
	if err := conn(ctx, r.db).SelectContext(ctx, &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// FindByID returns a notification owned by studentID.
func (r *NotificationRepository) FindByID(ctx context.Context, id, studentID string) (*models.Notification, error) {
	const query = `SELECT id, student_id, message, type, is_dismissable, read_at, created_at FROM notifications WHERE id = $1 AND student_id = $2`
	var n models.Notification
	if err := conn(ctx, r.db).GetContext(ctx, &n, query, id, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return &n, nil
}

// MarkRead stamps read_at on an unread notification owned by studentID.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, studentID string, at time.Time) error {
	const query = `UPDATE notifications SET read_at = $3 WHERE id = $1 AND student_id = $2 AND read_at IS NULL`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, studentID, at)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return requireAffected(result, "mark notification read")
}

// Dismiss deletes a dismissable notification owned by studentID.
func (r *NotificationRepository) Dismiss(ctx context.Context, id, studentID string) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND student_id = $2 AND is_dismissable = TRUE`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, studentID)
	if err != nil {
		return fmt.Errorf("dismiss notification: %w", err)
	}
	return requireAffected(result, "dismiss notification")
}
