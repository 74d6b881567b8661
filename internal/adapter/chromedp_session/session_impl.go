package chromedp_session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/juju/clock"

	"github.com/user/slot-watcher/internal/repository"
)

// Options configures the browser process.
type Options struct {
	ExecPath   string
	Headless   bool
	NoSandbox  bool
	UserAgents []string
	// Clock times the post-click response wait. Nil means the wall clock.
	Clock clock.Clock
}

// SessionManager owns one browser process at a time and replaces it wholesale on Restart.
type SessionManager struct {
	opts   Options
	agents *UserAgentRotator
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewSessionManager creates a manager. No browser is launched until Start.
func NewSessionManager(opts Options, logger *slog.Logger) *SessionManager {
	if opts.Clock == nil {
		opts.Clock = clock.WallClock
	}
	return &SessionManager{
		opts:   opts,
		agents: NewUserAgentRotator(opts.UserAgents),
		logger: logger,
	}
}

// Start launches the first browser.
func (m *SessionManager) Start(ctx context.Context) error {
	return m.Restart(ctx)
}

// Current returns the live session or nil.
func (m *SessionManager) Current() repository.BrowserSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil
	}
	return m.current
}

// Restart closes the running browser, if any, and launches a fresh one.
func (m *SessionManager) Restart(ctx context.Context) error {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	session, err := m.launch()
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}

	m.mu.Lock()
	m.current = session
	m.mu.Unlock()
	m.logger.Info("Browser session started")
	return nil
}

// Close shuts the browser down.
func (m *SessionManager) Close() {
	m.mu.Lock()
	old := m.current
	m.current = nil
	m.mu.Unlock()

	if old != nil {
		old.close()
	}
}

func (m *SessionManager) launch() (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", m.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(m.agents.Next()),
	)
	if m.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.opts.ExecPath))
	}
	if m.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox, chromedp.Flag("disable-setuid-sandbox", true))
	}

	// The browser outlives any single probe, so it hangs off the background context.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...any) {
		m.logger.Debug(fmt.Sprintf(format, args...))
	}))

	// An empty Run starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	return &Session{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		clock:         m.opts.Clock,
		logger:        m.logger,
	}, nil
}

// Session is one running browser. Each Render uses its own tab.
type Session struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	clock         clock.Clock
	logger        *slog.Logger
}

func (s *Session) close() {
	s.browserCancel()
	s.allocCancel()
}

// Render opens a tab, performs the search interaction described by req and
// returns the document HTML. The tab is closed afterwards.
func (s *Session) Render(ctx context.Context, req repository.RenderRequest) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	defer cancelTab()
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	search := newResponseWatcher(req.ResponseURLFragment)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			search.observe(e.Response.URL)
		case *fetch.EventRequestPaused:
			// listeners must not block, the reply goes out from its own goroutine
			go s.answerPaused(tabCtx, e, req.BlockURLFragment)
		}
	})

	setup := []chromedp.Action{network.Enable()}
	if req.BlockURLFragment != "" {
		setup = append(setup, fetch.Enable().WithPatterns([]*fetch.RequestPattern{
			{URLPattern: "*" + req.BlockURLFragment + "*"},
		}))
	}
	if err := chromedp.Run(tabCtx, setup...); err != nil {
		return "", fmt.Errorf("%w: open tab: %v", repository.ErrProbeTransport, err)
	}

	if err := chromedp.Run(tabCtx, chromedp.Navigate(req.URL)); err != nil {
		return "", fmt.Errorf("%w: navigate: %v", repository.ErrProbeTransport, err)
	}

	if req.ReadySelector != "" {
		readyCtx, cancel := context.WithTimeout(tabCtx, req.ReadyTimeout)
		err := chromedp.Run(readyCtx, chromedp.WaitVisible(req.ReadySelector, chromedp.ByQuery))
		cancel()
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: waiting for %q", repository.ErrProbeTimeout, req.ReadySelector)
		}
		if err != nil {
			return "", fmt.Errorf("%w: wait for %q: %v", repository.ErrProbeTransport, req.ReadySelector, err)
		}
	}

	if req.ClickSelector != "" {
		if err := chromedp.Run(tabCtx, chromedp.Sleep(req.SettleDelay)); err != nil {
			return "", fmt.Errorf("%w: settle: %v", repository.ErrProbeTransport, err)
		}

		// only the response to this click counts
		search.arm()
		if err := chromedp.Run(tabCtx, chromedp.Click(req.ClickSelector, chromedp.ByQuery)); err != nil {
			return "", fmt.Errorf("%w: click %q: %v", repository.ErrProbeTransport, req.ClickSelector, err)
		}

		if req.ResponseURLFragment != "" {
			if err := search.wait(tabCtx, s.clock, req.ResponseTimeout); err != nil {
				return "", err
			}
		}
	}

	var html string
	if err := chromedp.Run(tabCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("%w: read document: %v", repository.ErrProbeTransport, err)
	}
	return html, nil
}

// answerPaused short-circuits a blocked sub-request with an empty JSON success
// and lets anything else through.
func (s *Session) answerPaused(tabCtx context.Context, e *fetch.EventRequestPaused, blockFragment string) {
	c := chromedp.FromContext(tabCtx)
	if c == nil || c.Target == nil {
		return
	}
	execCtx := cdp.WithExecutor(tabCtx, c.Target)

	var err error
	if blockFragment != "" && strings.Contains(e.Request.URL, blockFragment) {
		err = fetch.FulfillRequest(e.RequestID, http.StatusOK).
			WithResponseHeaders([]*fetch.HeaderEntry{{Name: "Content-Type", Value: "application/json"}}).
			WithBody(base64.StdEncoding.EncodeToString([]byte("{}"))).
			Do(execCtx)
		s.logger.Debug("Short-circuited blocked request", "url", e.Request.URL)
	} else {
		err = fetch.ContinueRequest(e.RequestID).Do(execCtx)
	}
	if err != nil && tabCtx.Err() == nil {
		s.logger.Warn("Failed to answer paused request", "url", e.Request.URL, "error", err)
	}
}
