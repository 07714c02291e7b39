// Package sync keeps chat channels in step with the backend: it polls on an
// adaptive schedule, merges incremental deltas into an ordered render state,
// tracks server-side unread counts, discards responses made stale by a
// channel switch, and submits outbound messages.
package sync

import (
	"errors"
	"fmt"
	"time"

	"github.com/nhle/clinic-chat/internal/model"
)

var (
	// ErrSchedulerRunning is returned by Start when the scheduler is already running.
	ErrSchedulerRunning = errors.New("scheduler already running")

	// ErrSchedulerStopped is returned by Stop when the scheduler is not running.
	ErrSchedulerStopped = errors.New("scheduler not running")

	// ErrStaleResponse marks a response that arrived after the channel it
	// belongs to was switched away from. It never leaves the package.
	ErrStaleResponse = errors.New("stale response discarded")

	// ErrNoActiveChannel is returned by operations that need an active channel.
	ErrNoActiveChannel = errors.New("no active channel")

	errEmptyChannelID = errors.New("empty channel id")

	// errChannelBusy means a scheduled tick found a fetch already in flight.
	errChannelBusy = errors.New("channel busy")
)

// Mode is the polling cadence selected by the scheduler.
type Mode int

const (
	ModeActiveFast Mode = iota
	ModeBackground
	ModeIdle
)

func (m Mode) String() string {
	switch m {
	case ModeActiveFast:
		return "active"
	case ModeBackground:
		return "background"
	case ModeIdle:
		return "idle"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// FetchKind distinguishes full from incremental loads.
type FetchKind string

const (
	FetchFull        FetchKind = "full"
	FetchIncremental FetchKind = "incremental"
)

// RenderReason says what produced a render batch.
type RenderReason string

const (
	RenderFull   RenderReason = "full"
	RenderAppend RenderReason = "append"
	RenderSubmit RenderReason = "submit"
)

// RenderBatch is the ordered message list of one channel, handed to the
// renderer after every accepted change.
type RenderBatch struct {
	ChannelID string
	Channel   model.Channel
	Messages  []model.Message
	// Empty is set when the channel has no messages and an explicit empty
	// state should be shown.
	Empty  bool
	Reason RenderReason
}

// Renderer receives render batches for the active channel.
type Renderer interface {
	Render(batch RenderBatch)
}

// ChannelListRenderer is optionally implemented by a Renderer that also
// displays the channel list (titles, unread badges, active marker).
type ChannelListRenderer interface {
	RenderChannels(channels []model.Channel)
}

// Severity grades a status report.
type Severity int

const (
	// SeverityOK clears a previously reported background problem.
	SeverityOK Severity = iota
	// SeverityWarn is a background, non-blocking problem.
	SeverityWarn
	// SeverityError is a failure of a user-triggered operation.
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityOK:
		return "ok"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Status is a problem (or recovery) worth showing to the user.
type Status struct {
	Severity  Severity
	Op        string
	ChannelID string
	Err       error
}

// Message returns a one-line description suitable for a status bar.
func (s Status) Message() string {
	if s.Err == nil {
		return s.Op + " ok"
	}
	return fmt.Sprintf("%s: %v", s.Op, s.Err)
}

// StatusReporter receives status reports.
type StatusReporter interface {
	Report(status Status)
}

// Metrics observes engine activity.
type Metrics interface {
	ObserveFetch(kind FetchKind, elapsed time.Duration, err error)
	ObserveSubmit(elapsed time.Duration, err error)
	ObserveStale(op string)
	ObserveInterval(mode Mode, interval time.Duration)
	ObserveUnread(total int)
}

// State is a point-in-time view of the sync session.
type State struct {
	Channels        []model.Channel
	ActiveChannelID string
	Epoch           uint64
	Mode            Mode
	Interval        time.Duration
	LastActivity    time.Time
	Visible         bool
	Focused         bool
}

type nopRenderer struct{}

func (nopRenderer) Render(RenderBatch) {}

type nopReporter struct{}

func (nopReporter) Report(Status) {}

type nopMetrics struct{}

func (nopMetrics) ObserveFetch(FetchKind, time.Duration, error) {}
func (nopMetrics) ObserveSubmit(time.Duration, error)           {}
func (nopMetrics) ObserveStale(string)                          {}
func (nopMetrics) ObserveInterval(Mode, time.Duration)          {}
func (nopMetrics) ObserveUnread(int)                            {}
