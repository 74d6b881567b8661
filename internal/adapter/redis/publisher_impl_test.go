package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
)

func TestPublisher_UnreachableServer(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	p := NewPublisher(client)
	assert.Equal(t, "redis", p.Name())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := p.Notify(ctx, entity.Alert{ID: "a1", Message: "Now monitoring 1 URL(s).", Priority: entity.PriorityBoot})
	assert.ErrorIs(t, err, repository.ErrNotificationDelivery)
	assert.Error(t, p.Ping(ctx))
}
