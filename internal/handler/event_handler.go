package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	"github.com/noah-isme/aju-clearance-api/internal/service"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
	"github.com/noah-isme/aju-clearance-api/pkg/response"
)

const keepAliveInterval = 25 * time.Second

type eventSubscriber interface {
	Subscribe(ctx context.Context, filter models.EventFilter) (<-chan models.DomainEvent, error)
}

type studentByUser interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

// EventHandler streams domain events to dashboards as server-sent events.
type EventHandler struct {
	events   eventSubscriber
	students studentByUser
	policy   service.ReviewPolicy
}

// NewEventHandler constructs EventHandler.
func NewEventHandler(events eventSubscriber, students studentByUser, policy service.ReviewPolicy) *EventHandler {
	return &EventHandler{events: events, students: students, policy: policy}
}

// Stream godoc
// @Summary Change stream
// @Description Server-sent events; students receive their own events, unit staff their unit's, admins all
// @Tags Events
// @Produce text/event-stream
// @Param access_token query string false "Bearer token for EventSource clients"
// @Success 200 {string} string "event stream"
// @Router /events/stream [get]
func (h *EventHandler) Stream(c *gin.Context) {
	claims, ok := requireClaims(c, response.Error)
	if !ok {
		return
	}
	reviewer := claims.Reviewer()

	var studentID string
	if reviewer.Role == models.RoleStudent {
		student, err := h.students.FindByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "student record not found"))
				return
			}
			response.Error(c, appErrors.Backend(err, "failed to load student"))
			return
		}
		studentID = student.ID
	}

	events, err := h.events.Subscribe(c.Request.Context(), service.FilterFor(reviewer, studentID, h.policy))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
