package repository

import (
	"context"

	"github.com/user/slot-watcher/internal/entity"
)

// Notifier delivers a single alert to one outbound channel.
type Notifier interface {
	// Name is used in logs, metrics and de-duplication keys.
	Name() string
	// Notify makes exactly one delivery attempt.
	Notify(ctx context.Context, alert entity.Alert) error
}
