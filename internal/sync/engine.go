package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"k8s.io/utils/clock"

	"github.com/nhle/clinic-chat/internal/backend"
	"github.com/nhle/clinic-chat/internal/logging"
	"github.com/nhle/clinic-chat/internal/model"
)

// defaultRequestTimeout bounds a single fetch or submit.
const defaultRequestTimeout = 20 * time.Second

// Options configures an Engine. Backend is required; every other field has
// a usable zero value.
type Options struct {
	Backend  backend.Backend
	Renderer Renderer
	Status   StatusReporter
	Metrics  Metrics
	Clock    clock.WithTicker

	// User is the identity used for read receipts and unread summaries.
	User model.User

	// RequestTimeout bounds every fetch and submit.
	RequestTimeout time.Duration

	// Schedule holds the polling intervals.
	Schedule ScheduleConfig
}

// channelState is the engine's record of one channel.
type channelState struct {
	channel  model.Channel
	messages []model.Message

	// fetched is set once a fetch succeeded since the channel was last
	// activated. Read receipts wait for it.
	fetched bool

	// needsFull forces the next load to fetch the complete list.
	needsFull bool
}

// Engine composes the channel registry, delta fetcher, unread tracker,
// active-channel controller, outbound submitter and scheduler. All state
// lives behind mu; network calls never hold it.
type Engine struct {
	backend  backend.Backend
	renderer Renderer
	status   StatusReporter
	metrics  Metrics
	clock    clock.WithTicker
	timeout  time.Duration
	logger   zerolog.Logger

	scheduler *Scheduler

	mu            gosync.Mutex
	user          model.User
	channels      map[string]*channelState
	order         []string
	active        string
	epoch         uint64
	pendingUnread map[string]int
	locks         map[string]*semaphore.Weighted
	degraded      bool
	readGen       uint64

	summary singleflight.Group
}

// NewEngine creates an Engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		backend:       opts.Backend,
		renderer:      opts.Renderer,
		status:        opts.Status,
		metrics:       opts.Metrics,
		clock:         opts.Clock,
		timeout:       opts.RequestTimeout,
		logger:        logging.Component("sync-engine"),
		user:          opts.User,
		channels:      make(map[string]*channelState),
		pendingUnread: make(map[string]int),
		locks:         make(map[string]*semaphore.Weighted),
	}
	if e.renderer == nil {
		e.renderer = nopRenderer{}
	}
	if e.status == nil {
		e.status = nopReporter{}
	}
	if e.metrics == nil {
		e.metrics = nopMetrics{}
	}
	if e.clock == nil {
		e.clock = clock.RealClock{}
	}
	if e.timeout <= 0 {
		e.timeout = defaultRequestTimeout
	}
	e.scheduler = NewScheduler(e, SchedulerOptions{
		Config:  opts.Schedule,
		Clock:   e.clock,
		Metrics: e.metrics,
	})
	return e
}

// Scheduler returns the engine's polling scheduler.
func (e *Engine) Scheduler() *Scheduler {
	return e.scheduler
}

// Start begins adaptive polling.
func (e *Engine) Start(ctx context.Context) error {
	return e.scheduler.Start(ctx)
}

// Stop halts polling and waits for an in-progress tick to finish.
func (e *Engine) Stop() error {
	return e.scheduler.Stop()
}

// NotifyActivity records user input.
func (e *Engine) NotifyActivity() {
	e.scheduler.NotifyActivity()
}

// SetVisible records whether the client is visible.
func (e *Engine) SetVisible(visible bool) {
	e.scheduler.SetVisible(visible)
}

// SetFocused records whether the client has input focus.
func (e *Engine) SetFocused(focused bool) {
	e.scheduler.SetFocused(focused)
}

// User returns the current chat identity.
func (e *Engine) User() model.User {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.user
}

// SetUser changes the chat identity. Unread counts belong to the previous
// user, so callers normally follow it with RefreshSummary.
func (e *Engine) SetUser(u model.User) {
	e.mu.Lock()
	e.user = u
	e.mu.Unlock()
	e.logger.Info().Str("user_id", u.ID).Msg("chat user changed")
}

// State returns a snapshot of the whole session.
func (e *Engine) State() State {
	e.mu.Lock()
	st := State{
		Channels:        e.channelsLocked(),
		ActiveChannelID: e.active,
		Epoch:           e.epoch,
	}
	e.mu.Unlock()

	sched := e.scheduler.snapshot()
	st.Mode = sched.mode
	st.Interval = sched.interval
	st.LastActivity = sched.lastActivity
	st.Visible = sched.visible
	st.Focused = sched.focused
	return st
}

// Messages returns the ordered render state of a channel.
func (e *Engine) Messages(id string) []model.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, ok := e.channels[id]
	if !ok {
		return nil
	}
	out := make([]model.Message, len(cs.messages))
	copy(out, cs.messages)
	return out
}

// channelLock returns the per-channel semaphore serializing fetches and
// submits.
func (e *Engine) channelLock(id string) *semaphore.Weighted {
	e.mu.Lock()
	defer e.mu.Unlock()
	sem, ok := e.locks[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		e.locks[id] = sem
	}
	return sem
}

// acquire takes the channel's semaphore. Scheduled work never waits; a
// busy channel yields errChannelBusy.
func (e *Engine) acquire(ctx context.Context, id string, background bool) (func(), error) {
	sem := e.channelLock(id)
	if background {
		if !sem.TryAcquire(1) {
			return nil, errChannelBusy
		}
	} else if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { sem.Release(1) }, nil
}

// report forwards a failure to the status collaborator with a severity
// that depends on who triggered it.
func (e *Engine) report(op, channelID string, err error, background bool) {
	sev := SeverityError
	if background {
		sev = SeverityWarn
		e.mu.Lock()
		e.degraded = true
		e.mu.Unlock()
	}
	e.status.Report(Status{Severity: sev, Op: op, ChannelID: channelID, Err: err})
}

// recovered clears a background warning after a successful operation.
func (e *Engine) recovered(op, channelID string) {
	e.mu.Lock()
	was := e.degraded
	e.degraded = false
	e.mu.Unlock()
	if was {
		e.status.Report(Status{Severity: SeverityOK, Op: op, ChannelID: channelID})
	}
}

func snapshotChannel(cs *channelState) model.Channel {
	ch := cs.channel
	if ch.LastSyncedTimestamp != nil {
		v := *ch.LastSyncedTimestamp
		ch.LastSyncedTimestamp = &v
	}
	return ch
}

func (e *Engine) renderBatchLocked(cs *channelState, reason RenderReason) RenderBatch {
	msgs := make([]model.Message, len(cs.messages))
	copy(msgs, cs.messages)
	return RenderBatch{
		ChannelID: cs.channel.ID,
		Channel:   snapshotChannel(cs),
		Messages:  msgs,
		Empty:     len(msgs) == 0,
		Reason:    reason,
	}
}

// notifyChannels pushes the channel list to a renderer that shows it.
func (e *Engine) notifyChannels() {
	cr, ok := e.renderer.(ChannelListRenderer)
	if !ok {
		return
	}
	e.mu.Lock()
	channels := e.channelsLocked()
	e.mu.Unlock()
	cr.RenderChannels(channels)
}
