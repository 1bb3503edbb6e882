package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	Dismiss(ctx context.Context, userID, id string) error
}

// NotificationHandler serves a student's notifications.
type NotificationHandler struct {
	notifications notificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications notificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary Own notifications, newest first
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	items, err := h.notifications.List(c.Request.Context(), claims.UserID, c.Query("unread") == "true")
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// MarkRead godoc
// @Summary Mark a notification read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Dismiss godoc
// @Summary Dismiss a notification
// @Description Rejection notices are not dismissable
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 400 {object} response.Envelope
// @Router /notifications/{id}/dismiss [post]
func (h *NotificationHandler) Dismiss(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	if err := h.notifications.Dismiss(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
