package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/internal/models"
)

// ErrEventBusUnavailable is returned by Subscribe when Redis is not configured.
var ErrEventBusUnavailable = errors.New("event bus unavailable")

// EventRepository fans domain events out over a Redis pub/sub channel.
type EventRepository struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewEventRepository constructs an EventRepository publishing on channel.
func NewEventRepository(client *redis.Client, channel string, logger *zap.Logger) *EventRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if channel == "" {
		channel = "clearance.events"
	}
	return &EventRepository{client: client, channel: channel, logger: logger}
}

// Publish sends event to every subscriber. Without a client it is a no-op.
func (r *EventRepository) Publish(ctx context.Context, event models.DomainEvent) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

// Subscribe streams events until ctx is cancelled. The returned channel is
// closed when the subscription ends.
func (r *EventRepository) Subscribe(ctx context.Context) (<-chan models.DomainEvent, error) {
	if r.client == nil {
		return nil, ErrEventBusUnavailable
	}
	sub := r.client.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe events: %w", err)
	}

	out := make(chan models.DomainEvent, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event models.DomainEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					r.logger.Warn("dropping malformed event", zap.Error(err))
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
