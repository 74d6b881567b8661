package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/fingerprint"
	"github.com/user/slot-watcher/internal/repository"
)

const (
	defaultSearchButtonSelector = ".ets-corona-search-overlay-inner .btn-magenta"
	defaultSlotSelector         = ".ets-slot-button"
	defaultDangerSelector       = ".alert-danger"
	defaultSearchResponse       = "ersttermin"
)

// RenderedOptions tunes the interaction with a rendered search page.
type RenderedOptions struct {
	SearchButtonSelector string
	SlotSelector         string
	DangerSelector       string
	// SearchResponseFragment identifies the XHR that completes a search.
	SearchResponseFragment string
	// BlockRequestFragment is answered locally with an empty success. Empty disables interception.
	BlockRequestFragment string
	ReadyTimeout         time.Duration
	ResponseTimeout      time.Duration
	SettleDelay          time.Duration
}

// DefaultRenderedOptions returns the selectors and timeouts of the booking portal.
func DefaultRenderedOptions() RenderedOptions {
	return RenderedOptions{
		SearchButtonSelector:   defaultSearchButtonSelector,
		SlotSelector:           defaultSlotSelector,
		DangerSelector:         defaultDangerSelector,
		SearchResponseFragment: defaultSearchResponse,
		ReadyTimeout:           2 * time.Minute,
		ResponseTimeout:        10 * time.Second,
		SettleDelay:            2 * time.Second,
	}
}

// RenderedPageProbe counts bookable slots on a browser-rendered search page.
type RenderedPageProbe struct {
	opts RenderedOptions
}

// NewRenderedPageProbe creates a probe for KindRendered sources.
func NewRenderedPageProbe(opts RenderedOptions) *RenderedPageProbe {
	return &RenderedPageProbe{opts: opts}
}

// Probe renders the source page in the given session and inspects the result.
// An error banner on the page is reported as ErrRateLimited, never as zero slots.
func (p *RenderedPageProbe) Probe(ctx context.Context, src entity.Source, session repository.BrowserSession) (*entity.Payload, error) {
	if src.Kind != entity.KindRendered {
		return nil, fmt.Errorf("%w: %s is %s, not rendered", repository.ErrUnclassifiedSource, src.ID, src.Kind)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no browser session available", repository.ErrProbeTransport)
	}

	html, err := session.Render(ctx, repository.RenderRequest{
		URL:                 src.Locator,
		ReadySelector:       p.opts.SearchButtonSelector,
		ClickSelector:       p.opts.SearchButtonSelector,
		ResponseURLFragment: p.opts.SearchResponseFragment,
		BlockURLFragment:    p.opts.BlockRequestFragment,
		ReadyTimeout:        p.opts.ReadyTimeout,
		ResponseTimeout:     p.opts.ResponseTimeout,
		SettleDelay:         p.opts.SettleDelay,
	})
	if err != nil {
		return nil, classifyError(err)
	}

	summary, err := ExtractPageSummary(html, p.opts.SlotSelector, p.opts.DangerSelector)
	if err != nil {
		return nil, err
	}
	if summary.Blocked {
		return nil, fmt.Errorf("%w: danger alert found on page for %s, likely HTTP 429", repository.ErrRateLimited, src.ID)
	}

	return &entity.Payload{
		AvailableCount: summary.Slots,
		RawContent:     html,
		Fingerprint:    fingerprint.HTML(html),
	}, nil
}
