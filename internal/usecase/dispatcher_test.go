package usecase

import (
	"fmt"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/slot-watcher/internal/entity"
	"github.com/user/slot-watcher/internal/repository"
)

const retryDelay = 10 * time.Second

func newTestDispatcher(t *testing.T, sinks ...repository.Notifier) (*Dispatcher, *testclock.Clock) {
	t.Helper()
	clk := testclock.NewClock(time.Date(2021, 5, 1, 12, 0, 0, 0, time.UTC))
	cfg := DefaultDispatcherConfig()
	cfg.RetryDelay = retryDelay
	d := NewDispatcher(sinks, cfg, clk, testMetrics(), discardLogger())
	d.Start()
	t.Cleanup(d.Stop)
	return d, clk
}

func waitAttempt(t *testing.T, n *fakeNotifier) entity.Alert {
	t.Helper()
	select {
	case alert := <-n.attempt:
		return alert
	case <-time.After(time.Second):
		t.Fatalf("no delivery attempt on %s", n.name)
		return entity.Alert{}
	}
}

func TestDispatcher_DeliversToEverySink(t *testing.T) {
	a := newFakeNotifier("a", 0)
	b := newFakeNotifier("b", 0)
	d, _ := newTestDispatcher(t, a, b)

	d.Dispatch("There are 2 available appointment(s) for 10115!", entity.PriorityBecameAvailable)

	gotA := waitAttempt(t, a)
	gotB := waitAttempt(t, b)
	assert.Equal(t, "There are 2 available appointment(s) for 10115!", gotA.Message)
	assert.Equal(t, entity.PriorityBecameAvailable, gotA.Priority)
	assert.Equal(t, gotA.ID, gotB.ID)
	assert.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_RetriesAtFixedDelayUntilDelivered(t *testing.T) {
	flaky := newFakeNotifier("flaky", 2)
	d, clk := newTestDispatcher(t, flaky)

	d.Dispatch("Too many errors, bailing out.", entity.PriorityBailOut)

	waitAttempt(t, flaky)
	require.NoError(t, clk.WaitAdvance(retryDelay-time.Second, time.Second, 1))
	select {
	case <-flaky.attempt:
		t.Fatal("retried before the delay elapsed")
	case <-time.After(50 * time.Millisecond):
	}
	clk.Advance(time.Second)
	waitAttempt(t, flaky)

	require.NoError(t, clk.WaitAdvance(retryDelay, time.Second, 1))
	waitAttempt(t, flaky)

	assert.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, flaky.Attempts())
}

func TestDispatcher_SinkFailureDoesNotDuplicateOtherSinks(t *testing.T) {
	good := newFakeNotifier("good", 0)
	bad := newFakeNotifier("bad", 1)
	d, clk := newTestDispatcher(t, good, bad)

	d.Dispatch("Now monitoring 1 URL(s).", entity.PriorityBoot)
	waitAttempt(t, good)
	waitAttempt(t, bad)

	require.NoError(t, clk.WaitAdvance(retryDelay, time.Second, 1))
	waitAttempt(t, bad)

	assert.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, good.Attempts())
	assert.Equal(t, 2, bad.Attempts())
}

func TestDispatcher_OneOutstandingDeliveryPerIdentity(t *testing.T) {
	slow := newFakeNotifier("slow", 0)
	slow.block = make(chan struct{})
	d, _ := newTestDispatcher(t, slow)

	d.Dispatch("There are no more available appointments for 10115.", entity.PriorityBecameUnavailable)
	waitAttempt(t, slow)
	d.Dispatch("There are no more available appointments for 10115.", entity.PriorityBecameUnavailable)
	// a different priority is a different identity
	d.Dispatch("There are no more available appointments for 10115.", entity.PriorityBailOut)
	waitAttempt(t, slow)
	assert.Equal(t, 2, d.Pending())

	close(slow.block)
	assert.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, slow.Attempts())

	d.Dispatch("There are no more available appointments for 10115.", entity.PriorityBecameUnavailable)
	waitAttempt(t, slow)
	assert.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_StopAbandonsRetries(t *testing.T) {
	broken := newFakeNotifier("broken", 1000)
	clk := testclock.NewClock(time.Now())
	cfg := DefaultDispatcherConfig()
	cfg.RetryDelay = retryDelay
	d := NewDispatcher([]repository.Notifier{broken}, cfg, clk, testMetrics(), discardLogger())
	d.Start()

	d.Dispatch("x", entity.PriorityBoot)
	waitAttempt(t, broken)

	stopped := make(chan struct{})
	go func() {
		d.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while a delivery was retrying")
	}
	assert.Zero(t, d.Pending())
	assert.Equal(t, 1, broken.Attempts())
}

func TestDispatcher_NoSinks(t *testing.T) {
	d, _ := newTestDispatcher(t)
	d.Dispatch("nobody listens", entity.PriorityBoot)
	assert.Zero(t, d.Pending())
}

func TestDispatcher_FailingSinkDoesNotStarveOthers(t *testing.T) {
	down := newFakeNotifier("pushover", 1000)
	healthy := newFakeNotifier("redis", 0)
	d, _ := newTestDispatcher(t, down, healthy)

	alerts := DefaultDispatcherConfig().Workers + 2
	for i := 0; i < alerts; i++ {
		d.Dispatch(fmt.Sprintf("There are %d available appointment(s) for 10115!", i+1), entity.PriorityBecameAvailable)
	}

	assert.Eventually(t, func() bool { return healthy.Attempts() == alerts }, time.Second, 5*time.Millisecond)
	// the failing sink keeps its deliveries outstanding, the healthy one has none left
	assert.Eventually(t, func() bool { return d.Pending() == alerts }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return down.Attempts() == DefaultDispatcherConfig().Workers }, time.Second, 5*time.Millisecond)
}

func TestDispatcher_FullQueueDropsWithoutBlocking(t *testing.T) {
	slow := newFakeNotifier("slow", 0)
	slow.block = make(chan struct{})
	m := testMetrics()
	d := NewDispatcher([]repository.Notifier{slow}, DispatcherConfig{
		Workers:        1,
		QueueSize:      1,
		RetryDelay:     retryDelay,
		AttemptTimeout: time.Minute,
	}, testclock.NewClock(time.Now()), m, discardLogger())
	d.Start()
	t.Cleanup(d.Stop)

	d.Dispatch("first", entity.PriorityBoot)
	waitAttempt(t, slow)

	start := time.Now()
	d.Dispatch("second", entity.PriorityBoot) // fills the queue
	d.Dispatch("third", entity.PriorityBoot)  // no room left
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("slow", "dropped")))
	assert.Equal(t, 2, d.Pending())

	close(slow.block)
	assert.Eventually(t, func() bool { return d.Pending() == 0 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, slow.Attempts())
}
