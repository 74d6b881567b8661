package usecase

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/juju/retry"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
	"github.com/user/slot-watcher/pkg/metrics"
	"github.com/user/slot-watcher/pkg/utils"
)

// AlertDispatcher accepts notifications without blocking the caller.
type AlertDispatcher interface {
	Dispatch(message string, priority int)
}

// DispatcherConfig bounds the background delivery machinery of each sink.
type DispatcherConfig struct {
	Workers        int
	QueueSize      int
	RetryDelay     time.Duration
	AttemptTimeout time.Duration
}

// DefaultDispatcherConfig returns a small pool retrying every ten seconds.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:        4,
		QueueSize:      64,
		RetryDelay:     10 * time.Second,
		AttemptTimeout: 15 * time.Second,
	}
}

type delivery struct {
	key   string
	sink  repository.Notifier
	alert entity.Alert
}

// sinkQueue is the bounded queue and worker set of one sink. A sink that keeps
// failing only ties up its own workers.
type sinkQueue struct {
	sink repository.Notifier
	jobs chan delivery
}

// Dispatcher delivers every alert to every sink, retrying each delivery at a
// fixed delay until it succeeds or the dispatcher stops. Only one delivery per
// sink and message may be outstanding at a time.
type Dispatcher struct {
	queues  []*sinkQueue
	cfg     DispatcherConfig
	clock   clock.Clock
	metrics *metrics.Metrics
	logger  *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup

	mu          sync.Mutex
	outstanding map[string]struct{}

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewDispatcher creates a dispatcher. Workers and QueueSize apply per sink.
// With no sinks every Dispatch is a no-op.
func NewDispatcher(sinks []repository.Notifier, cfg DispatcherConfig, clk clock.Clock, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	queues := make([]*sinkQueue, 0, len(sinks))
	for _, sink := range sinks {
		queues = append(queues, &sinkQueue{sink: sink, jobs: make(chan delivery, cfg.QueueSize)})
	}
	return &Dispatcher{
		queues:      queues,
		cfg:         cfg,
		clock:       clk,
		metrics:     m,
		logger:      logger,
		stop:        make(chan struct{}),
		outstanding: make(map[string]struct{}),
	}
}

// Start launches the workers. Alerts dispatched before Start wait in the queues.
func (d *Dispatcher) Start() {
	d.startOnce.Do(func() {
		for _, q := range d.queues {
			for i := 0; i < d.cfg.Workers; i++ {
				d.wg.Add(1)
				go d.worker(q)
			}
		}
	})
}

// Stop abandons pending retries and waits for the workers to exit.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stop) })
	d.wg.Wait()
}

// Dispatch queues message for every sink and returns immediately.
func (d *Dispatcher) Dispatch(message string, priority int) {
	if len(d.queues) == 0 {
		d.logger.Debug("No alert sink configured, skipping alert", "message", message)
		return
	}

	alert := entity.Alert{
		ID:        uuid.NewString(),
		Message:   message,
		Priority:  priority,
		CreatedAt: d.clock.Now(),
	}
	for _, q := range d.queues {
		name := q.sink.Name()
		key := name + "|" + strconv.Itoa(priority) + "|" + utils.HashString(message)
		if !d.claim(key) {
			d.logger.Warn("Identical alert still pending, dropping duplicate", "sink", name, "message", message)
			d.metrics.AlertsTotal.WithLabelValues(name, "dropped").Inc()
			continue
		}

		select {
		case q.jobs <- delivery{key: key, sink: q.sink, alert: alert}:
		default:
			d.release(key)
			d.logger.Error("Alert queue full, dropping alert", "sink", name, "message", message)
			d.metrics.AlertsTotal.WithLabelValues(name, "dropped").Inc()
		}
	}
}

// Pending returns the number of deliveries queued or in flight.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.outstanding)
}

func (d *Dispatcher) claim(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, busy := d.outstanding[key]; busy {
		return false
	}
	d.outstanding[key] = struct{}{}
	return true
}

func (d *Dispatcher) release(key string) {
	d.mu.Lock()
	delete(d.outstanding, key)
	d.mu.Unlock()
}

func (d *Dispatcher) worker(q *sinkQueue) {
	defer d.wg.Done()
	for {
		select {
		case <-d.stop:
			return
		case job := <-q.jobs:
			d.deliver(job)
		}
	}
}

func (d *Dispatcher) deliver(job delivery) {
	defer d.release(job.key)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-d.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	sink := job.sink.Name()
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			attemptCtx, cancelAttempt := context.WithTimeout(ctx, d.cfg.AttemptTimeout)
			defer cancelAttempt()
			return job.sink.Notify(attemptCtx, job.alert)
		},
		NotifyFunc: func(err error, attempt int) {
			d.logger.Error("Error when pushing alert, will retry", "sink", sink, "attempt", attempt, "retry_in", d.cfg.RetryDelay.String(), "error", err)
			d.metrics.AlertsTotal.WithLabelValues(sink, "retry").Inc()
		},
		Attempts: -1, // until delivered
		Delay:    d.cfg.RetryDelay,
		Clock:    d.clock,
		Stop:     d.stop,
	})
	if err != nil {
		d.logger.Warn("Alert abandoned on shutdown", "sink", sink, "message", job.alert.Message, "error", err)
		d.metrics.AlertsTotal.WithLabelValues(sink, "abandoned").Inc()
		return
	}

	d.logger.Info("Alert delivered", "sink", sink, "alert_id", job.alert.ID, "priority", job.alert.Priority)
	d.metrics.AlertsTotal.WithLabelValues(sink, "delivered").Inc()
}
