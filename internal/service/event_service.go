package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
	appErrors "github.com/noah-isme/aju-clearance-api/pkg/errors"
)

type eventBus interface {
	Publish(ctx context.Context, event models.DomainEvent) error
	Subscribe(ctx context.Context) (<-chan models.DomainEvent, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, event models.DomainEvent)
}

// EventService publishes domain events after commits and serves filtered
// subscriptions to the change stream. Events are refresh hints; delivery
// failures are logged and never fail the originating operation.
type EventService struct {
	bus     eventBus
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEventService constructs an EventService.
func NewEventService(bus eventBus, metrics *MetricsService, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{bus: bus, metrics: metrics, logger: logger}
}

// Emit stamps and publishes event.
func (s *EventService) Emit(ctx context.Context, event models.DomainEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := s.bus.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish domain event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

// FilterFor returns the subscription filter for claims: students see their
// own events, unit staff their unit, admins and super reviewers everything.
func FilterFor(reviewer models.Reviewer, studentID string, policy ReviewPolicy) models.EventFilter {
	switch {
	case reviewer.Role == models.RoleStudent:
		return models.EventFilter{StudentID: studentID}
	case policy.IsSuperReviewer(reviewer):
		return models.EventFilter{}
	default:
		return models.EventFilter{UnitID: reviewer.Unit}
	}
}

// Subscribe returns events matching filter until ctx ends.
func (s *EventService) Subscribe(ctx context.Context, filter models.EventFilter) (<-chan models.DomainEvent, error) {
	source, err := s.bus.Subscribe(ctx)
	if err != nil {
		return nil, appErrors.Backend(err, "change stream unavailable")
	}
	s.metrics.TrackSubscriber(1)

	out := make(chan models.DomainEvent)
	go func() {
		defer close(out)
		defer s.metrics.TrackSubscriber(-1)
		for event := range source {
			if !filter.Matches(event) {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
