package repository

import (
	"context"

	"github.com/user/slot-watcher/internal/entity"
)

// ObservationRecorder stores a history of poll attempts. It is write-only from the watcher's side.
type ObservationRecorder interface {
	Record(ctx context.Context, obs *entity.Observation) error
}
