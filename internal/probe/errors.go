package probe

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/user/slot-watcher/internal/repository"
)

// classifyError maps an arbitrary failure onto the probe error taxonomy.
// Errors that already carry a taxonomy sentinel are returned untouched.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrProbeTimeout),
		errors.Is(err, repository.ErrRateLimited),
		errors.Is(err, repository.ErrProbeTransport),
		errors.Is(err, repository.ErrUnclassifiedSource):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", repository.ErrProbeTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", repository.ErrProbeTimeout, err)
	}
	return fmt.Errorf("%w: %v", repository.ErrProbeTransport, err)
}
