package usecase

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
	"github.com/user/slot-watcher/pkg/metrics"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

type sentAlert struct {
	Message  string
	Priority int
}

type recordingAlerts struct {
	mu   sync.Mutex
	sent []sentAlert
}

func (r *recordingAlerts) Dispatch(message string, priority int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentAlert{Message: message, Priority: priority})
}

func (r *recordingAlerts) Sent() []sentAlert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentAlert(nil), r.sent...)
}

func (r *recordingAlerts) WithPriority(priority int) []sentAlert {
	var out []sentAlert
	for _, a := range r.Sent() {
		if a.Priority == priority {
			out = append(out, a)
		}
	}
	return out
}

type probeResult struct {
	payload *entity.Payload
	err     error
}

// scriptedProbe replays results per source id, repeating the last one when exhausted.
type scriptedProbe struct {
	mu      sync.Mutex
	results map[string][]probeResult
	calls   []string
	called  chan string
}

func newScriptedProbe() *scriptedProbe {
	return &scriptedProbe{
		results: make(map[string][]probeResult),
		called:  make(chan string, 100),
	}
}

func (p *scriptedProbe) Then(sourceID string, payload *entity.Payload, err error) *scriptedProbe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results[sourceID] = append(p.results[sourceID], probeResult{payload: payload, err: err})
	return p
}

func (p *scriptedProbe) Probe(_ context.Context, src entity.Source, _ repository.BrowserSession) (*entity.Payload, error) {
	p.mu.Lock()
	p.calls = append(p.calls, src.ID)
	script := p.results[src.ID]
	var res probeResult
	switch len(script) {
	case 0:
		res = probeResult{err: repository.ErrProbeTransport}
	case 1:
		res = script[0]
	default:
		res = script[0]
		p.results[src.ID] = script[1:]
	}
	p.mu.Unlock()

	p.called <- src.ID
	return res.payload, res.err
}

func (p *scriptedProbe) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

type fakeSessions struct {
	mu       sync.Mutex
	restarts int
	err      error
}

func (f *fakeSessions) Current() repository.BrowserSession { return nil }

func (f *fakeSessions) Restart(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	return f.err
}

func (f *fakeSessions) Close() {}

func (f *fakeSessions) Restarts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restarts
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) Record(ctx context.Context, obs *entity.Observation) error {
	args := m.Called(ctx, obs)
	return args.Error(0)
}

// fakeNotifier fails the first failures attempts and then succeeds.
type fakeNotifier struct {
	name     string
	failures int
	block    chan struct{}

	mu       sync.Mutex
	attempts int
	attempt  chan entity.Alert
}

func newFakeNotifier(name string, failures int) *fakeNotifier {
	return &fakeNotifier{name: name, failures: failures, attempt: make(chan entity.Alert, 100)}
}

func (f *fakeNotifier) Name() string { return f.name }

func (f *fakeNotifier) Notify(ctx context.Context, alert entity.Alert) error {
	f.mu.Lock()
	f.attempts++
	n := f.attempts
	f.mu.Unlock()
	f.attempt <- alert

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n <= f.failures {
		return repository.ErrNotificationDelivery
	}
	return nil
}

func (f *fakeNotifier) Attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}
