package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
)

// AlertChannel is the Pub/Sub channel alerts are published on.
const AlertChannel = "slotwatch:alerts"

// PublisherImpl provides a Notifier implementation that publishes alerts on a Redis channel.
type PublisherImpl struct {
	client  *redis.Client
	channel string
}

// NewPublisher creates a new instance of PublisherImpl.
func NewPublisher(client *redis.Client) *PublisherImpl {
	return &PublisherImpl{client: client, channel: AlertChannel}
}

func (p *PublisherImpl) Name() string { return "redis" }

// Notify publishes the alert as JSON. Having no subscribers is not an error.
func (p *PublisherImpl) Notify(ctx context.Context, alert entity.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("%w: encode alert: %v", repository.ErrNotificationDelivery, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrNotificationDelivery, err)
	}
	return nil
}

// Ping checks connectivity.
func (p *PublisherImpl) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
