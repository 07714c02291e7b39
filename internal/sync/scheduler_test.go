package sync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

// countingTarget counts ticks and tracks how many run at once.
type countingTarget struct {
	ticks     atomic.Int32
	inFlight  atomic.Int32
	maxFlight atomic.Int32
	block     chan struct{}
}

func (c *countingTarget) Tick(ctx context.Context) {
	n := c.inFlight.Add(1)
	for {
		m := c.maxFlight.Load()
		if n <= m || c.maxFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if c.block != nil {
		select {
		case <-c.block:
		case <-ctx.Done():
		}
	}
	c.inFlight.Add(-1)
	c.ticks.Add(1)
}

func newTestScheduler(t *testing.T, target Ticker) (*Scheduler, *clocktesting.FakeClock, *countingMetrics) {
	t.Helper()
	clk := clocktesting.NewFakeClock(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))
	metrics := &countingMetrics{}
	s := NewScheduler(target, SchedulerOptions{
		Config:  DefaultScheduleConfig(),
		Clock:   clk,
		Metrics: metrics,
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })
	return s, clk, metrics
}

// waitForTicker blocks until the scheduler's loop has a ticker registered
// with the fake clock.
func waitForTicker(t *testing.T, clk *clocktesting.FakeClock) {
	t.Helper()
	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
}

func TestSchedulerLifecycleErrors(t *testing.T) {
	s := NewScheduler(&countingTarget{}, SchedulerOptions{Clock: clocktesting.NewFakeClock(time.Now())})

	assert.ErrorIs(t, s.Stop(), ErrSchedulerStopped)
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.IsRunning())
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerRunning)
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerStopped)
}

func TestSchedulerTicksAtActiveInterval(t *testing.T) {
	target := &countingTarget{}
	s, clk, _ := newTestScheduler(t, target)
	assert.Equal(t, ModeActiveFast, s.Mode())
	assert.Equal(t, 3*time.Second, s.Interval())

	waitForTicker(t, clk)
	clk.Step(3 * time.Second)
	require.Eventually(t, func() bool { return target.ticks.Load() == 1 }, time.Second, time.Millisecond)

	clk.Step(3 * time.Second)
	require.Eventually(t, func() bool { return target.ticks.Load() == 2 }, time.Second, time.Millisecond)
}

func TestHiddenTabMovesToBackgroundWithoutOverlap(t *testing.T) {
	target := &countingTarget{}
	s, clk, metrics := newTestScheduler(t, target)
	waitForTicker(t, clk)

	s.SetVisible(false)
	assert.Equal(t, ModeBackground, s.Mode())
	assert.Equal(t, 15*time.Second, s.Interval())
	assert.Equal(t, []time.Duration{3 * time.Second, 15 * time.Second}, metrics.intervalLog())

	// The 3 s ticker is gone: nothing fires at the old cadence.
	clk.Step(3 * time.Second)
	assert.Never(t, func() bool { return target.ticks.Load() > 0 }, 50*time.Millisecond, 5*time.Millisecond)

	clk.Step(12 * time.Second)
	require.Eventually(t, func() bool { return target.ticks.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), target.maxFlight.Load())
}

func TestRescheduleOnlyWhenIntervalDiffers(t *testing.T) {
	target := &countingTarget{}
	s, _, metrics := newTestScheduler(t, target)

	s.SetVisible(true)
	s.SetFocused(true)
	s.NotifyActivity()
	assert.Len(t, metrics.intervalLog(), 1, "no change of interval, no reschedule")

	s.SetFocused(false)
	s.SetVisible(false)
	assert.Len(t, metrics.intervalLog(), 2)

	s.SetFocused(true)
	assert.Len(t, metrics.intervalLog(), 2, "still hidden")
	s.SetVisible(true)
	assert.Equal(t, ModeActiveFast, s.Mode())
	assert.Len(t, metrics.intervalLog(), 3)
}

func TestIdleDetectedOnTickSkipsWork(t *testing.T) {
	target := &countingTarget{}
	s, clk, _ := newTestScheduler(t, target)
	waitForTicker(t, clk)

	// Jumping past the idle threshold fires the 3 s ticker once; that tick
	// notices the idle state, reschedules and does no work.
	clk.Step(2*time.Minute + time.Second)
	require.Eventually(t, func() bool { return s.Mode() == ModeIdle }, time.Second, time.Millisecond)
	assert.Equal(t, 30*time.Second, s.Interval())
	assert.Equal(t, int32(0), target.ticks.Load())

	require.Eventually(t, clk.HasWaiters, time.Second, time.Millisecond)
	clk.Step(30 * time.Second)
	require.Eventually(t, func() bool { return target.ticks.Load() == 1 }, time.Second, time.Millisecond)

	s.NotifyActivity()
	assert.Equal(t, ModeActiveFast, s.Mode())
	assert.Equal(t, 3*time.Second, s.Interval())
}

func TestTicksNeverOverlap(t *testing.T) {
	target := &countingTarget{block: make(chan struct{})}
	_, clk, _ := newTestScheduler(t, target)
	waitForTicker(t, clk)

	clk.Step(3 * time.Second)
	require.Eventually(t, func() bool { return target.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	// While the first tick is blocked, more intervals elapse.
	for i := 0; i < 5; i++ {
		clk.Step(3 * time.Second)
	}
	assert.Never(t, func() bool { return target.inFlight.Load() > 1 }, 50*time.Millisecond, 5*time.Millisecond)

	close(target.block)
	require.Eventually(t, func() bool { return target.ticks.Load() >= 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), target.maxFlight.Load())
}

func TestStopWaitsForRunningTick(t *testing.T) {
	target := &countingTarget{block: make(chan struct{})}
	clk := clocktesting.NewFakeClock(time.Now())
	s := NewScheduler(target, SchedulerOptions{Clock: clk})
	require.NoError(t, s.Start(context.Background()))
	waitForTicker(t, clk)

	clk.Step(3 * time.Second)
	require.Eventually(t, func() bool { return target.inFlight.Load() == 1 }, time.Second, time.Millisecond)

	// Stop cancels the tick's context, which unblocks it.
	require.NoError(t, s.Stop())
	assert.Equal(t, int32(0), target.inFlight.Load())
}

func TestEngineStateReflectsScheduler(t *testing.T) {
	te := newTestEngine(t)
	te.SetFocused(false)

	st := te.State()
	assert.Equal(t, ModeBackground, st.Mode)
	assert.Equal(t, 15*time.Second, st.Interval)
	assert.False(t, st.Focused)
	assert.True(t, st.Visible)
}
