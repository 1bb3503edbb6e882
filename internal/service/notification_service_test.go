package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type notificationStore struct {
	items map[string]*models.Notification
}

func (n *notificationStore) ListByStudent(ctx context.Context, studentID string, unreadOnly bool) ([]models.Notification, error) {
	var out []models.Notification
	for _, item := range n.items {
		if item.StudentID == studentID && (!unreadOnly || item.ReadAt == nil) {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (n *notificationStore) FindByID(ctx context.Context, id, studentID string) (*models.Notification, error) {
	item, ok := n.items[id]
	if !ok || item.StudentID != studentID {
		return nil, sql.ErrNoRows
	}
	clone := *item
	return &clone, nil
}

func (n *notificationStore) MarkRead(ctx context.Context, id, studentID string, at time.Time) error {
	n.items[id].ReadAt = &at
	return nil
}

func (n *notificationStore) Dismiss(ctx context.Context, id, studentID string) error {
	delete(n.items, id)
	return nil
}

func newNotificationFixture() (*NotificationService, *notificationStore) {
	store := &notificationStore{items: map[string]*models.Notification{
		"n1": {ID: "n1", StudentID: "s1", Message: "rejected", Type: models.NotificationRejection},
		"n2": {ID: "n2", StudentID: "s1", Message: "welcome", Type: models.NotificationInfo, IsDismissable: true},
		"n3": {ID: "n3", StudentID: "s2", Message: "other", Type: models.NotificationInfo, IsDismissable: true},
	}}
	students := newMemoryStudents(&models.Student{ID: "s1", UserID: "u1"}, &models.Student{ID: "s2", UserID: "u2"})
	return NewNotificationService(store, students, nil), store
}

func TestNotificationServiceList(t *testing.T) {
	svc, _ := newNotificationFixture()

	items, err := svc.List(context.Background(), "u1", false)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = svc.List(context.Background(), "nobody", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestNotificationServiceDismiss(t *testing.T) {
	svc, store := newNotificationFixture()

	err := svc.Dismiss(context.Background(), "u1", "n1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Contains(t, store.items, "n1")

	err = svc.Dismiss(context.Background(), "u1", "n3")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.Dismiss(context.Background(), "u1", "n2"))
	assert.NotContains(t, store.items, "n2")
}

func TestNotificationServiceMarkRead(t *testing.T) {
	svc, store := newNotificationFixture()

	require.NoError(t, svc.MarkRead(context.Background(), "u1", "n1"))
	require.NotNil(t, store.items["n1"].ReadAt)
	first := *store.items["n1"].ReadAt
	require.NoError(t, svc.MarkRead(context.Background(), "u1", "n1"))
	assert.Equal(t, first, *store.items["n1"].ReadAt)

	unread, err := svc.List(context.Background(), "u1", true)
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}
