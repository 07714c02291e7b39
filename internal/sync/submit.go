package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/nhle/clinic-chat/internal/backend"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/rpc"
)

// Submit sends text to a channel as sender. Empty or whitespace-only text
// is rejected with a ValidationError before any network call. The server
// answer becomes the channel's render state and advances its cursor.
// Submissions to the same channel are serialized.
func (e *Engine) Submit(ctx context.Context, id, sender, text string) error {
	body := strings.TrimSpace(text)
	if body == "" {
		return &rpc.ValidationError{Field: "message", Message: "must not be empty"}
	}
	if id == "" {
		return &rpc.ValidationError{Field: "channel", Message: "must not be empty"}
	}
	if sender == "" {
		u := e.User()
		sender = u.Name
		if sender == "" {
			sender = u.ID
		}
	}

	active, err := e.submit(ctx, id, sender, body)
	if err != nil {
		e.report("sending message", id, err, false)
		return err
	}
	if active {
		_ = e.MarkAsRead(ctx, id)
	}
	_ = e.refreshSummary(ctx, true)
	return nil
}

func (e *Engine) submit(ctx context.Context, id, sender, body string) (bool, error) {
	e.CreateOrGet(id, "", "")

	release, err := e.acquire(ctx, id, false)
	if err != nil {
		return false, fmt.Errorf("sending message to %s: %w", id, err)
	}
	defer release()

	e.mu.Lock()
	epoch := e.epoch
	e.mu.Unlock()

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.clock.Now()
	res, err := e.backend.SendMessage(reqCtx, id, sender, body)
	elapsed := e.clock.Since(start)
	e.metrics.ObserveSubmit(elapsed, err)
	if err != nil {
		e.logger.Warn().Err(err).Str("channel_id", id).Msg("send failed")
		return false, err
	}

	e.mu.Lock()
	if e.epoch != epoch {
		e.mu.Unlock()
		e.discardStale("submit", id)
		return false, nil
	}
	cs := e.channels[id]
	e.applySendLocked(cs, res)
	isActive := e.active == id
	var batch RenderBatch
	if isActive {
		batch = e.renderBatchLocked(cs, RenderSubmit)
	}
	e.mu.Unlock()

	e.logger.Debug().Str("channel_id", id).Dur("elapsed", elapsed).Msg("message sent")
	if isActive {
		e.renderer.Render(batch)
	}
	return isActive, nil
}

// applySendLocked applies a send result. An authoritative list behaves
// like a full load; an empty one carries nothing and leaves the channel as
// it was. A single created message is merged without moving the cursor:
// messages posted by others before it have not been fetched yet, and the
// next incremental load picks them up together with it.
func (e *Engine) applySendLocked(cs *channelState, res backend.SendResult) {
	switch {
	case res.Authoritative && len(res.Messages) > 0:
		e.applyFetchLocked(cs, FetchFull, res.Messages)
	case res.Authoritative:
		e.logger.Debug().Str("channel_id", cs.channel.ID).Msg("send returned an empty message list")
	case res.Created != nil:
		cs.messages = mergeMessages(cs.messages, []model.Message{*res.Created})
	}
}

// SubmitSystem posts an automated notice to a channel as the system
// sender. The active channel is reloaded afterwards; any other channel
// only gets its unread count refreshed.
func (e *Engine) SubmitSystem(ctx context.Context, id, text string) error {
	body := strings.TrimSpace(text)
	if body == "" {
		return &rpc.ValidationError{Field: "message", Message: "must not be empty"}
	}
	if id == "" {
		return &rpc.ValidationError{Field: "channel", Message: "must not be empty"}
	}

	if err := e.sendSystem(ctx, id, body); err != nil {
		e.logger.Warn().Err(err).Str("channel_id", id).Msg("system message failed")
		return err
	}

	e.mu.Lock()
	isActive := e.active == id
	e.mu.Unlock()
	if isActive {
		return e.LoadFull(ctx, id)
	}
	return e.refreshSummary(ctx, true)
}

func (e *Engine) sendSystem(ctx context.Context, id, body string) error {
	release, err := e.acquire(ctx, id, false)
	if err != nil {
		return fmt.Errorf("sending system message to %s: %w", id, err)
	}
	defer release()

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := e.clock.Now()
	_, err = e.backend.SendMessage(reqCtx, id, model.SystemSender, body)
	e.metrics.ObserveSubmit(e.clock.Since(start), err)
	return err
}
