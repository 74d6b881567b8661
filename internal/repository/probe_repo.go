package repository

import (
	"context"
	"time"

	"github.com/user/slot-watcher/internal/entity"
)

// RenderRequest describes one interaction with a rendered source page.
type RenderRequest struct {
	URL string
	// ReadySelector must become visible before the page is considered loaded.
	ReadySelector string
	// ClickSelector is clicked to start the search. Empty means no click.
	ClickSelector string
	// ResponseURLFragment identifies the network response that completes the search.
	ResponseURLFragment string
	// BlockURLFragment, if set, identifies an in-page sub-request that is answered
	// locally with an empty success instead of reaching the network.
	BlockURLFragment string
	ReadyTimeout     time.Duration
	ResponseTimeout  time.Duration
	SettleDelay      time.Duration
}

// BrowserSession renders pages. It is owned by a SessionManager, probes only borrow it.
type BrowserSession interface {
	// Render performs the request and returns the final document HTML.
	Render(ctx context.Context, req RenderRequest) (string, error)
}

// SessionManager owns the shared browser session.
type SessionManager interface {
	// Current returns the live session. It may be nil before Start.
	Current() BrowserSession
	// Restart tears the session down and creates a fresh one.
	Restart(ctx context.Context) error
	Close()
}

// SourceProbe retrieves the current availability of one source.
type SourceProbe interface {
	Probe(ctx context.Context, src entity.Source, session BrowserSession) (*entity.Payload, error)
}
