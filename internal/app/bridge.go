package app

import (
	gosync "sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/clinic-chat/internal/logging"
	"github.com/nhle/clinic-chat/internal/model"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
)

// maxQueuedStatuses bounds the status reports kept between two UI reads.
const maxQueuedStatuses = 16

// UpdateMsg is a tea.Msg carrying everything the engine produced since the
// UI last listened. Renders are coalesced per channel, keeping the newest.
type UpdateMsg struct {
	Renders     []chatsync.RenderBatch
	Channels    []model.Channel
	HasChannels bool
	Statuses    []chatsync.Status
}

// Bridge hands engine output to the Bubble Tea runtime. It implements
// chatsync.Renderer, chatsync.ChannelListRenderer and
// chatsync.StatusReporter without ever blocking the caller.
type Bridge struct {
	mu          gosync.Mutex
	renders     []chatsync.RenderBatch
	channels    []model.Channel
	hasChannels bool
	statuses    []chatsync.Status
	dropped     int

	notifyCh chan struct{}
	logger   zerolog.Logger
}

// NewBridge creates an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		notifyCh: make(chan struct{}, 1),
		logger:   logging.Component("tui-bridge"),
	}
}

// Render queues a render batch, replacing an unread batch of the same
// channel.
func (b *Bridge) Render(batch chatsync.RenderBatch) {
	b.mu.Lock()
	replaced := false
	for i := range b.renders {
		if b.renders[i].ChannelID == batch.ChannelID {
			b.renders[i] = batch
			replaced = true
			break
		}
	}
	if !replaced {
		b.renders = append(b.renders, batch)
	}
	b.mu.Unlock()
	b.notify()
}

// RenderChannels queues the latest channel list.
func (b *Bridge) RenderChannels(channels []model.Channel) {
	b.mu.Lock()
	b.channels = channels
	b.hasChannels = true
	b.mu.Unlock()
	b.notify()
}

// Report queues a status report. The oldest report is dropped when the
// queue is full.
func (b *Bridge) Report(status chatsync.Status) {
	b.mu.Lock()
	if len(b.statuses) == maxQueuedStatuses {
		b.statuses = b.statuses[1:]
		b.dropped++
		b.logger.Warn().Int("dropped", b.dropped).Msg("status queue full, dropping oldest report")
	}
	b.statuses = append(b.statuses, status)
	b.mu.Unlock()
	b.notify()
}

// notify wakes the listener without blocking.
func (b *Bridge) notify() {
	select {
	case b.notifyCh <- struct{}{}:
	default:
		// A wake-up is already pending.
	}
}

// drain takes everything queued so far.
func (b *Bridge) drain() UpdateMsg {
	b.mu.Lock()
	defer b.mu.Unlock()

	msg := UpdateMsg{
		Renders:     b.renders,
		Channels:    b.channels,
		HasChannels: b.hasChannels,
		Statuses:    b.statuses,
	}
	b.renders = nil
	b.channels = nil
	b.hasChannels = false
	b.statuses = nil
	return msg
}

// Wait returns a tea.Cmd that blocks until the engine produced something
// and returns it as an UpdateMsg. It must be issued again after each
// UpdateMsg to keep listening.
func (b *Bridge) Wait() tea.Cmd {
	return func() tea.Msg {
		for range b.notifyCh {
			msg := b.drain()
			if len(msg.Renders) > 0 || msg.HasChannels || len(msg.Statuses) > 0 {
				return msg
			}
		}
		return nil
	}
}
