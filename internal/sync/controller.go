package sync

import (
	"context"
	"fmt"
)

// Switch registers a channel if needed, makes it the active one and loads
// it in full. Responses still in flight for the previous channel are
// discarded when they arrive.
func (e *Engine) Switch(ctx context.Context, id, title, description string) error {
	if id == "" {
		return fmt.Errorf("switching channel: %w", errEmptyChannelID)
	}
	e.CreateOrGet(id, title, description)
	e.SetActive(id)
	e.scheduler.NotifyActivity()

	if err := e.LoadFull(ctx, id); err != nil {
		return fmt.Errorf("switching to %s: %w", id, err)
	}
	return nil
}

// Reload performs a manual full reload of the active channel.
func (e *Engine) Reload(ctx context.Context) error {
	e.mu.Lock()
	id := e.active
	e.mu.Unlock()
	if id == "" {
		return ErrNoActiveChannel
	}

	if err := e.LoadFull(ctx, id); err != nil {
		return fmt.Errorf("reloading %s: %w", id, err)
	}
	return nil
}
