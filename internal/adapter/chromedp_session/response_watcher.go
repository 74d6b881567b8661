package chromedp_session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/user/slot-watcher/internal/repository"
)

// responseWatcher waits for a network response whose URL contains fragment.
// Matches seen before arm are ignored, so responses from page load never
// satisfy a wait that belongs to a later click.
type responseWatcher struct {
	fragment string
	seen     chan struct{}

	mu    sync.Mutex
	armed bool
}

func newResponseWatcher(fragment string) *responseWatcher {
	return &responseWatcher{fragment: fragment, seen: make(chan struct{}, 1)}
}

// observe is called from the target listener and must not block.
func (w *responseWatcher) observe(url string) {
	if w.fragment == "" || !strings.Contains(url, w.fragment) {
		return
	}
	w.mu.Lock()
	armed := w.armed
	w.mu.Unlock()
	if !armed {
		return
	}
	select {
	case w.seen <- struct{}{}:
	default:
	}
}

// arm discards anything seen so far and starts accepting matches.
func (w *responseWatcher) arm() {
	w.mu.Lock()
	w.armed = true
	w.mu.Unlock()
	select {
	case <-w.seen:
	default:
	}
}

// wait blocks until a match is seen after arm, timeout elapses on clk, or ctx ends.
func (w *responseWatcher) wait(ctx context.Context, clk clock.Clock, timeout time.Duration) error {
	select {
	case <-w.seen:
		return nil
	case <-clk.After(timeout):
		return fmt.Errorf("%w: waiting for response matching %q", repository.ErrProbeTimeout, w.fragment)
	case <-ctx.Done():
		return fmt.Errorf("%w: tab closed while waiting for response: %v", repository.ErrProbeTransport, ctx.Err())
	}
}
