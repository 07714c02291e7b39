package sync

import (
	"github.com/nhle/clinic-chat/internal/model"
)

// CreateOrGet registers a channel, or updates the non-empty fields of an
// existing one. An unread count reported before registration is applied.
func (e *Engine) CreateOrGet(id, title, description string) (model.Channel, bool) {
	if id == "" {
		e.logger.Warn().Msg("ignoring channel registration with empty id")
		return model.Channel{}, false
	}

	e.mu.Lock()
	cs, created := e.createOrGetLocked(id, title, description)
	ch := snapshotChannel(cs)
	e.mu.Unlock()

	if created {
		e.logger.Debug().Str("channel_id", id).Msg("channel registered")
	}
	e.notifyChannels()
	return ch, true
}

func (e *Engine) createOrGetLocked(id, title, description string) (*channelState, bool) {
	cs, ok := e.channels[id]
	if ok {
		if title != "" {
			cs.channel.Title = title
		}
		if description != "" {
			cs.channel.Description = description
		}
		return cs, false
	}

	cs = &channelState{
		channel: model.Channel{
			ID:          id,
			Title:       title,
			Description: description,
		},
		needsFull: true,
	}
	if n, pending := e.pendingUnread[id]; pending {
		cs.channel.UnreadCount = n
		delete(e.pendingUnread, id)
	}
	e.channels[id] = cs
	e.order = append(e.order, id)
	return cs, true
}

// SetActive makes id the single active channel. The previous channel is
// deactivated, the activation epoch is bumped so in-flight responses are
// discarded, and the next load of id is forced to be a full one.
func (e *Engine) SetActive(id string) {
	if id == "" {
		e.logger.Warn().Msg("ignoring activation of empty channel id")
		return
	}

	e.mu.Lock()
	if prev, ok := e.channels[e.active]; ok {
		prev.channel.IsActive = false
	}
	cs, _ := e.createOrGetLocked(id, "", "")
	cs.channel.IsActive = true
	cs.fetched = false
	cs.needsFull = true
	e.active = id
	e.epoch++
	epoch := e.epoch
	e.mu.Unlock()

	e.logger.Debug().Str("channel_id", id).Uint64("epoch", epoch).Msg("channel activated")
	e.notifyChannels()
}

// Channels returns every registered channel in registration order.
func (e *Engine) Channels() []model.Channel {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.channelsLocked()
}

func (e *Engine) channelsLocked() []model.Channel {
	out := make([]model.Channel, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, snapshotChannel(e.channels[id]))
	}
	return out
}

// Get returns a snapshot of one channel.
func (e *Engine) Get(id string) (model.Channel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, ok := e.channels[id]
	if !ok {
		return model.Channel{}, false
	}
	return snapshotChannel(cs), true
}

// Active returns the active channel, if any.
func (e *Engine) Active() (model.Channel, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cs, ok := e.channels[e.active]
	if !ok {
		return model.Channel{}, false
	}
	return snapshotChannel(cs), true
}
