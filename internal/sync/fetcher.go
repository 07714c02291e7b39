package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/clinic-chat/internal/model"
)

// LoadFull fetches the complete message list of a channel and replaces its
// render state. The cursor becomes the newest timestamp, or is cleared when
// the channel is empty.
func (e *Engine) LoadFull(ctx context.Context, id string) error {
	return e.load(ctx, id, FetchFull, false)
}

// LoadIncremental fetches messages newer than the channel's cursor and
// appends them. Without a cursor it performs a full load.
func (e *Engine) LoadIncremental(ctx context.Context, id string) error {
	return e.load(ctx, id, FetchIncremental, false)
}

// load runs one fetch and, when it lands on the active channel, follows it
// with a read receipt and a summary refresh. Stale responses are swallowed.
func (e *Engine) load(ctx context.Context, id string, kind FetchKind, background bool) error {
	active, err := e.fetch(ctx, id, kind, background)
	if errors.Is(err, ErrStaleResponse) {
		return nil
	}
	if err != nil {
		return err
	}
	if active {
		_ = e.MarkAsRead(ctx, id)
		_ = e.refreshSummary(ctx, true)
	}
	return nil
}

// fetch performs the request and applies the result. It reports whether
// the channel was the active one when the result was applied.
func (e *Engine) fetch(ctx context.Context, id string, kind FetchKind, background bool) (bool, error) {
	if id == "" {
		return false, fmt.Errorf("loading messages: %w", errEmptyChannelID)
	}

	release, err := e.acquire(ctx, id, background)
	if err != nil {
		return false, err
	}
	defer release()

	e.mu.Lock()
	cs, ok := e.channels[id]
	if !ok {
		e.mu.Unlock()
		return false, fmt.Errorf("loading messages: unknown channel %q", id)
	}
	epoch := e.epoch
	cursor, hasCursor := cs.channel.Cursor()
	if cs.needsFull || !hasCursor {
		kind = FetchFull
	}
	e.mu.Unlock()

	log := e.logger.With().Str("channel_id", id).Str("kind", string(kind)).Logger()

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.clock.Now()
	var msgs []model.Message
	if kind == FetchFull {
		msgs, err = e.backend.ListMessages(reqCtx, id)
	} else {
		msgs, err = e.backend.ListMessagesSince(reqCtx, id, cursor)
	}
	elapsed := e.clock.Since(start)
	e.metrics.ObserveFetch(kind, elapsed, err)

	if err != nil {
		if e.isStale(epoch) {
			e.discardStale("fetch", id)
			return false, ErrStaleResponse
		}
		log.Warn().Err(err).Dur("elapsed", elapsed).Msg("fetch failed")
		e.report("loading messages", id, err, background)
		return false, err
	}

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		e.discardStale("fetch", id)
		return false, ErrStaleResponse
	}

	changed := e.applyFetchLocked(cs, kind, msgs)
	isActive := e.active == id
	var batch RenderBatch
	if isActive && changed {
		reason := RenderAppend
		if kind == FetchFull {
			reason = RenderFull
		}
		batch = e.renderBatchLocked(cs, reason)
	}
	e.mu.Unlock()

	log.Debug().Int("count", len(msgs)).Dur("elapsed", elapsed).Msg("fetch applied")
	if batch.ChannelID != "" {
		e.renderer.Render(batch)
	}
	if background {
		e.recovered("loading messages", id)
	}
	return isActive, nil
}

// applyFetchLocked merges a fetch result into the channel. It reports
// whether the render state changed.
func (e *Engine) applyFetchLocked(cs *channelState, kind FetchKind, msgs []model.Message) bool {
	cs.fetched = true

	if kind == FetchFull {
		cs.needsFull = false
		cs.messages = mergeMessages(nil, msgs)
		if ts, ok := maxTimestamp(cs.messages); ok {
			cs.channel.LastSyncedTimestamp = &ts
		} else {
			cs.channel.LastSyncedTimestamp = nil
		}
		return true
	}

	if len(msgs) == 0 {
		return false
	}
	before := len(cs.messages)
	cs.messages = mergeMessages(cs.messages, msgs)
	if ts, ok := maxTimestamp(msgs); ok {
		cs.channel.LastSyncedTimestamp = laterCursor(cs.channel.LastSyncedTimestamp, ts)
	}
	return len(cs.messages) != before
}

func (e *Engine) isStale(epoch uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch != epoch
}

func (e *Engine) discardStale(op, id string) {
	e.logger.Debug().Str("channel_id", id).Str("op", op).Msg(ErrStaleResponse.Error())
	e.metrics.ObserveStale(op)
}

// Tick is one scheduled polling cycle: an incremental load of the active
// channel, which refreshes the unread summary on success. When there is
// nothing to fetch, the fetch failed or the channel is busy, the summary
// is refreshed on its own. A busy channel is never fetched concurrently.
func (e *Engine) Tick(ctx context.Context) {
	e.mu.Lock()
	id := e.active
	e.mu.Unlock()

	if id == "" {
		_ = e.refreshSummary(ctx, true)
		return
	}

	err := e.load(ctx, id, FetchIncremental, true)
	switch {
	case errors.Is(err, errChannelBusy):
		e.logger.Debug().Str("channel_id", id).Msg("tick fetch skipped: fetch in flight")
		_ = e.refreshSummary(ctx, true)
	case err != nil:
		_ = e.refreshSummary(ctx, true)
	}
}
