package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/fingerprint"
	"github.com/user/slot-watcher/internal/repository"
	"github.com/user/slot-watcher/pkg/metrics"
)

// State is the poll loop state.
type State int

const (
	StateIdle State = iota
	StateProbing
	StateCooldownBeforeNext
	StateErrorBackoff
	StateDegraded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateProbing:
		return "probing"
	case StateCooldownBeforeNext:
		return "cooldown"
	case StateErrorBackoff:
		return "error_backoff"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// SchedulerConfig holds the poll loop timings.
type SchedulerConfig struct {
	RegularDelay     time.Duration
	ErrorDelay       time.Duration
	DegradedInterval time.Duration
	FailureThreshold int
	// ProbeTimeout bounds one whole probe, including every wait inside it.
	ProbeTimeout time.Duration
	// LogContentOnChange logs the raw payload whenever a fingerprint changes.
	LogContentOnChange bool
}

// DefaultSchedulerConfig returns five minute delays, an hourly degraded log and a threshold of ten.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		RegularDelay:     300 * time.Second,
		ErrorDelay:       300 * time.Second,
		DegradedInterval: time.Hour,
		FailureThreshold: 10,
		ProbeTimeout:     5 * time.Minute,
	}
}

// SchedulerDeps groups the collaborators of a Scheduler.
type SchedulerDeps struct {
	Probes    map[entity.Kind]repository.SourceProbe
	Sessions  repository.SessionManager
	Detector  *ChangeDetector
	Errors    *ErrorState
	Alerts    AlertDispatcher
	Recorders []repository.ObservationRecorder
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// Snapshot is a point in time view of the scheduler.
type Snapshot struct {
	State               State
	ConsecutiveFailures int
	Queue               []string
	LastPollAt          time.Time
	LastSourceID        string
	LastError           string
}

// Scheduler polls one source at a time in round-robin order.
type Scheduler struct {
	cfg   SchedulerConfig
	queue *PollQueue
	deps  SchedulerDeps

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewScheduler creates a scheduler over sources. A nil Detector or Errors is replaced by a fresh one.
func NewScheduler(sources []entity.Source, cfg SchedulerConfig, deps SchedulerDeps) *Scheduler {
	if deps.Detector == nil {
		deps.Detector = NewChangeDetector(nil)
	}
	if deps.Errors == nil {
		deps.Errors = &ErrorState{}
	}
	queue := NewPollQueue(sources)
	deps.Metrics.SourcesInQueue.Set(float64(queue.Len()))
	return &Scheduler{
		cfg:      cfg,
		queue:    queue,
		deps:     deps,
		snapshot: Snapshot{State: StateIdle, Queue: queue.IDs()},
	}
}

// Snapshot returns a copy of the current scheduler view.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshot
	snap.Queue = append([]string(nil), s.snapshot.Queue...)
	return snap
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.State
}

// Run announces the sources and polls until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.deps.Logger.Info("Scheduler started", "sources", s.queue.Len())
	s.deps.Alerts.Dispatch(fmt.Sprintf("Now monitoring %d URL(s).", s.queue.Len()), entity.PriorityBoot)

	for {
		delay := s.Step(ctx)
		if ctx.Err() != nil {
			s.deps.Logger.Info("Scheduler stopped")
			return ctx.Err()
		}

		select {
		case <-ctx.Done():
			s.deps.Logger.Info("Scheduler stopped")
			return ctx.Err()
		case <-s.deps.Clock.After(delay):
		}

		if s.State() != StateDegraded {
			s.setState(StateIdle)
		}
	}
}

// Step performs one poll attempt, or one degraded heartbeat, and returns the
// delay before the next step. A poll cut short by ctx is neither a success nor
// a failure.
func (s *Scheduler) Step(ctx context.Context) time.Duration {
	if s.State() == StateDegraded {
		s.deps.Logger.Error("Too many errors, not polling any more", "consecutive_failures", s.deps.Errors.ConsecutiveFailures())
		return s.cfg.DegradedInterval
	}

	src, ok := s.queue.Dequeue()
	if !ok {
		s.deps.Logger.Warn("Poll queue is empty")
		s.setState(StateCooldownBeforeNext)
		return s.cfg.RegularDelay
	}
	s.setState(StateProbing)
	// every attempt ends with the source back at the tail
	defer s.requeue(src)

	start := s.deps.Clock.Now()
	payload, err := s.probe(ctx, src)
	if ctx.Err() != nil {
		// shutting down, the outcome says nothing about the source
		s.deps.Logger.Info("Poll interrupted", "source", src.ID)
		return 0
	}
	duration := s.deps.Clock.Now().Sub(start)
	s.deps.Metrics.ProbeDuration.WithLabelValues(src.Kind.String()).Observe(duration.Seconds())

	if err != nil {
		return s.handleFailure(ctx, src, err, start, duration)
	}
	return s.handleSuccess(ctx, src, payload, start, duration)
}

func (s *Scheduler) probe(ctx context.Context, src entity.Source) (*entity.Payload, error) {
	p, ok := s.deps.Probes[src.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no probe for %s source %s", repository.ErrUnclassifiedSource, src.Kind, src.ID)
	}

	var session repository.BrowserSession
	if s.deps.Sessions != nil {
		session = s.deps.Sessions.Current()
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.ProbeTimeout)
	defer cancel()
	return p.Probe(probeCtx, src, session)
}

func (s *Scheduler) handleSuccess(ctx context.Context, src entity.Source, payload *entity.Payload, start time.Time, duration time.Duration) time.Duration {
	s.deps.Metrics.ProbesTotal.WithLabelValues(src.Kind.String(), "success", "").Inc()
	s.deps.Errors.RecordSuccess()
	s.deps.Metrics.ConsecutiveFailures.Set(0)

	result := s.deps.Detector.Classify(src.ID, payload)
	s.deps.Metrics.TransitionsTotal.WithLabelValues(result.Transition.String()).Inc()

	s.deps.Logger.Info("Polled source",
		"source", src.ID,
		"fingerprint", fingerprint.Short(payload.Fingerprint),
		"available", payload.AvailableCount,
		"changed", result.Changed,
		"transition", result.Transition.String(),
	)
	if result.Changed && s.cfg.LogContentOnChange {
		s.deps.Logger.Info("Source content", "source", src.ID, "content", stripNewlines(payload.RawContent))
	}

	if result.Transition.Alerting() {
		s.deps.Alerts.Dispatch(transitionAlert(src, payload, result.Transition))
	}

	s.record(ctx, &entity.Observation{
		SourceID:       src.ID,
		Kind:           src.Kind.String(),
		Fingerprint:    payload.Fingerprint,
		AvailableCount: payload.AvailableCount,
		Changed:        result.Changed,
		Transition:     result.Transition.String(),
		ObservedAt:     start,
		DurationMS:     int(duration.Milliseconds()),
	})

	s.update(func(snap *Snapshot) {
		snap.State = StateCooldownBeforeNext
		snap.ConsecutiveFailures = 0
		snap.LastPollAt = start
		snap.LastSourceID = src.ID
		snap.LastError = ""
	})
	return s.cfg.RegularDelay
}

func (s *Scheduler) handleFailure(ctx context.Context, src entity.Source, probeErr error, start time.Time, duration time.Duration) time.Duration {
	failures := s.deps.Errors.RecordFailure()
	errType := errorType(probeErr)
	s.deps.Metrics.ProbesTotal.WithLabelValues(src.Kind.String(), "failure", errType).Inc()
	s.deps.Metrics.ConsecutiveFailures.Set(float64(failures))

	s.deps.Logger.Error("Error when polling source",
		"source", src.ID,
		"error_type", errType,
		"consecutive_failures", failures,
		"error", probeErr,
	)

	if s.deps.Sessions != nil {
		if err := s.deps.Sessions.Restart(ctx); err != nil {
			s.deps.Logger.Warn("Failed to restart browser session", "error", err)
		}
	}

	s.record(ctx, &entity.Observation{
		SourceID:      src.ID,
		Kind:          src.Kind.String(),
		FailureReason: probeErr.Error(),
		ObservedAt:    start,
		DurationMS:    int(duration.Milliseconds()),
	})

	degraded := failures >= s.cfg.FailureThreshold
	s.update(func(snap *Snapshot) {
		snap.State = StateErrorBackoff
		if degraded {
			snap.State = StateDegraded
		}
		snap.ConsecutiveFailures = failures
		snap.LastPollAt = start
		snap.LastSourceID = src.ID
		snap.LastError = probeErr.Error()
	})

	if degraded {
		s.deps.Logger.Error("Too many errors, bailing out", "consecutive_failures", failures)
		s.deps.Alerts.Dispatch("Too many errors, bailing out.", entity.PriorityBailOut)
		return s.cfg.DegradedInterval
	}
	return s.cfg.ErrorDelay
}

func (s *Scheduler) record(ctx context.Context, obs *entity.Observation) {
	for _, rec := range s.deps.Recorders {
		if err := rec.Record(ctx, obs); err != nil {
			s.deps.Logger.Warn("Failed to record observation", "source", obs.SourceID, "error", err)
		}
	}
}

func (s *Scheduler) requeue(src entity.Source) {
	s.queue.Enqueue(src)
	ids := s.queue.IDs()
	s.update(func(snap *Snapshot) { snap.Queue = ids })
}

func (s *Scheduler) setState(state State) {
	s.update(func(snap *Snapshot) { snap.State = state })
}

func (s *Scheduler) update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	state := s.snapshot.State
	s.mu.Unlock()
	s.deps.Metrics.SchedulerState.Set(float64(state))
}

func transitionAlert(src entity.Source, payload *entity.Payload, t entity.Transition) (string, int) {
	if t == entity.TransitionBecameAvailable {
		return fmt.Sprintf("There are %d available appointment(s) for %s!", payload.AvailableCount, src.ID), entity.PriorityBecameAvailable
	}
	return fmt.Sprintf("There are no more available appointments for %s.", src.ID), entity.PriorityBecameUnavailable
}

func errorType(err error) string {
	switch {
	case errors.Is(err, repository.ErrProbeTimeout):
		return "timeout"
	case errors.Is(err, repository.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, repository.ErrUnclassifiedSource):
		return "unclassified"
	case errors.Is(err, repository.ErrProbeTransport):
		return "transport"
	default:
		return "unknown"
	}
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}
