package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"
	"k8s.io/utils/clock"

	"github.com/nhle/clinic-chat/internal/logging"
)

// ScheduleConfig holds the polling intervals per mode.
type ScheduleConfig struct {
	// ActiveInterval is used while the client is visible, focused and in use.
	// Default: 3s
	ActiveInterval time.Duration

	// BackgroundInterval is used while the client is hidden or unfocused.
	// Default: 15s
	BackgroundInterval time.Duration

	// IdleInterval is used while the client is visible but unattended.
	// Default: 30s
	IdleInterval time.Duration

	// IdleThreshold is how long without input before going idle.
	// Default: 2m
	IdleThreshold time.Duration
}

// DefaultScheduleConfig returns the standard cadence.
func DefaultScheduleConfig() ScheduleConfig {
	return ScheduleConfig{
		ActiveInterval:     3 * time.Second,
		BackgroundInterval: 15 * time.Second,
		IdleInterval:       30 * time.Second,
		IdleThreshold:      2 * time.Minute,
	}
}

func (c ScheduleConfig) withDefaults() ScheduleConfig {
	d := DefaultScheduleConfig()
	if c.ActiveInterval <= 0 {
		c.ActiveInterval = d.ActiveInterval
	}
	if c.BackgroundInterval <= 0 {
		c.BackgroundInterval = d.BackgroundInterval
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = d.IdleInterval
	}
	if c.IdleThreshold <= 0 {
		c.IdleThreshold = d.IdleThreshold
	}
	return c
}

func (c ScheduleConfig) interval(m Mode) time.Duration {
	switch m {
	case ModeBackground:
		return c.BackgroundInterval
	case ModeIdle:
		return c.IdleInterval
	default:
		return c.ActiveInterval
	}
}

// Ticker is the work a scheduler drives on every tick.
type Ticker interface {
	Tick(ctx context.Context)
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Config  ScheduleConfig
	Clock   clock.WithTicker
	Metrics Metrics
}

// Scheduler runs Ticker.Tick on an adaptive interval chosen from activity,
// visibility and focus signals. Ticks run one at a time on the scheduler
// goroutine, so they never overlap.
type Scheduler struct {
	target  Ticker
	config  ScheduleConfig
	clock   clock.WithTicker
	metrics Metrics
	logger  zerolog.Logger

	mu           gosync.Mutex
	running      bool
	cancel       context.CancelFunc
	wg           gosync.WaitGroup
	ticker       clock.Ticker
	resetCh      chan struct{}
	mode         Mode
	interval     time.Duration
	lastActivity time.Time
	visible      bool
	focused      bool
}

// NewScheduler creates a Scheduler for target. The client starts visible,
// focused and freshly active.
func NewScheduler(target Ticker, opts SchedulerOptions) *Scheduler {
	s := &Scheduler{
		target:  target,
		config:  opts.Config.withDefaults(),
		clock:   opts.Clock,
		metrics: opts.Metrics,
		logger:  logging.Component("scheduler"),
		resetCh: make(chan struct{}, 1),
		visible: true,
		focused: true,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	s.lastActivity = s.clock.Now()
	s.mode = ModeActiveFast
	s.interval = s.config.ActiveInterval
	return s
}

// Start begins the polling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrSchedulerRunning
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.mode = s.targetModeLocked()
	s.interval = s.config.interval(s.mode)
	s.ticker = s.clock.NewTicker(s.interval)

	s.logger.Info().
		Str("mode", s.mode.String()).
		Dur("interval", s.interval).
		Msg("scheduler starting")
	s.metrics.ObserveInterval(s.mode, s.interval)

	s.wg.Add(1)
	go s.run(ctx)
	return nil
}

// Stop halts the polling loop and waits for a running tick to return.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrSchedulerStopped
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.mu.Unlock()

	s.logger.Info().Msg("scheduler stopped")
	return nil
}

// IsRunning reports whether the loop is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Interval returns the current polling interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Mode returns the current polling mode.
func (s *Scheduler) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// NotifyActivity records user input.
func (s *Scheduler) NotifyActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = s.clock.Now()
	s.rescheduleLocked(s.targetModeLocked())
}

// SetVisible records whether the client is visible. A visibility change
// counts as activity.
func (s *Scheduler) SetVisible(visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = visible
	s.lastActivity = s.clock.Now()
	s.rescheduleLocked(s.targetModeLocked())
}

// SetFocused records whether the client has input focus. Gaining focus
// counts as activity.
func (s *Scheduler) SetFocused(focused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.focused = focused
	if focused {
		s.lastActivity = s.clock.Now()
	}
	s.rescheduleLocked(s.targetModeLocked())
}

func (s *Scheduler) targetModeLocked() Mode {
	switch {
	case !s.visible || !s.focused:
		return ModeBackground
	case s.clock.Since(s.lastActivity) > s.config.IdleThreshold:
		return ModeIdle
	default:
		return ModeActiveFast
	}
}

// rescheduleLocked replaces the ticker when the target interval differs
// from the current one. It reports whether it did.
func (s *Scheduler) rescheduleLocked(mode Mode) bool {
	interval := s.config.interval(mode)
	s.mode = mode
	if interval == s.interval {
		return false
	}

	prev := s.interval
	s.interval = interval
	s.metrics.ObserveInterval(mode, interval)
	s.logger.Debug().
		Str("mode", mode.String()).
		Dur("from", prev).
		Dur("to", interval).
		Msg("polling interval changed")

	if !s.running {
		return true
	}
	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.ticker = s.clock.NewTicker(interval)
	select {
	case s.resetCh <- struct{}{}:
	default:
	}
	return true
}

func (s *Scheduler) currentTicker() clock.Ticker {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticker
}

// run is the polling loop.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()

	for {
		ticker := s.currentTicker()
		select {
		case <-ctx.Done():
			return
		case <-s.resetCh:
			continue
		case <-ticker.C():
			s.tick(ctx)
		}
	}
}

// tick re-evaluates the mode first. A changed mode reschedules and skips
// this tick's work.
func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	changed := s.rescheduleLocked(s.targetModeLocked())
	s.mu.Unlock()
	if changed {
		return
	}

	start := s.clock.Now()
	s.target.Tick(ctx)
	if elapsed := s.clock.Since(start); elapsed > s.Interval() {
		s.logger.Debug().Dur("elapsed", elapsed).Msg("tick outlasted polling interval")
	}
}

type schedulerSnapshot struct {
	mode         Mode
	interval     time.Duration
	lastActivity time.Time
	visible      bool
	focused      bool
}

func (s *Scheduler) snapshot() schedulerSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return schedulerSnapshot{
		mode:         s.mode,
		interval:     s.interval,
		lastActivity: s.lastActivity,
		visible:      s.visible,
		focused:      s.focused,
	}
}
