package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type notificationRepository interface {
	ListByStudent(ctx context.Context, studentID string, unreadOnly bool) ([]models.Notification, error)
	FindByID(ctx context.Context, id, studentID string) (*models.Notification, error)
	MarkRead(ctx context.Context, id, studentID string, at time.Time) error
	Dismiss(ctx context.Context, id, studentID string) error
}

// NotificationService serves a student's own notifications.
type NotificationService struct {
	repo     notificationRepository
	students studentLookup
	logger   *zap.Logger
	now      func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, students studentLookup, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, students: students, logger: logger, now: time.Now}
}

// List returns the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	student, err := s.student(ctx, userID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListByStudent(ctx, student.ID, unreadOnly)
	if err != nil {
		return nil, appErrors.Backend(err, "failed to list notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

// MarkRead marks a notification as read. Marking twice is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	student, err := s.student(ctx, userID)
	if err != nil {
		return err
	}
	n, err := s.find(ctx, id, student.ID)
	if err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	if err := s.repo.MarkRead(ctx, id, student.ID, s.now().UTC()); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Backend(err, "failed to mark notification read")
	}
	return nil
}

// Dismiss removes a dismissable notification. Rejection notices stay until
// the unit is resubmitted.
func (s *NotificationService) Dismiss(ctx context.Context, userID, id string) error {
	student, err := s.student(ctx, userID)
	if err != nil {
		return err
	}
	n, err := s.find(ctx, id, student.ID)
	if err != nil {
		return err
	}
	if !n.IsDismissable {
		return appErrors.Clone(appErrors.ErrValidation, "this notification cannot be dismissed")
	}
	if err := s.repo.Dismiss(ctx, id, student.ID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Backend(err, "failed to dismiss notification")
	}
	return nil
}

func (s *NotificationService) find(ctx context.Context, id, studentID string) (*models.Notification, error) {
	n, err := s.repo.FindByID(ctx, id, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.Backend(err, "failed to load notification")
	}
	return n, nil
}

func (s *NotificationService) student(ctx context.Context, userID string) (*models.Student, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Backend(err, "failed to load student")
	}
	return student, nil
}
