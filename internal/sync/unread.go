package sync

import (
	"context"
	"strconv"

	"github.com/nhle/clinic-chat/internal/backend"
)

// summaryKey coalesces concurrent summary refreshes issued under the same
// read generation.
func summaryKey(gen uint64) string {
	return "unread-summary:" + strconv.FormatUint(gen, 10)
}

// RefreshSummary fetches unread counts for every channel in one request and
// replaces the local counts wholesale. Channels missing from the response
// drop to zero; counts for channels not yet registered are kept until they
// register. Concurrent calls share one request unless a read receipt was
// acknowledged in between. Without a user it is a no-op.
func (e *Engine) RefreshSummary(ctx context.Context) error {
	return e.refreshSummary(ctx, false)
}

func (e *Engine) refreshSummary(ctx context.Context, background bool) error {
	e.mu.Lock()
	userID := e.user.ID
	gen := e.readGen
	e.mu.Unlock()
	if userID == "" {
		return nil
	}

	_, err, _ := e.summary.Do(summaryKey(gen), func() (any, error) {
		reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		entries, err := e.backend.GetUnreadSummary(reqCtx, userID)
		if err != nil {
			return nil, err
		}
		e.applySummary(entries, gen)
		return nil, nil
	})
	if err != nil {
		e.logger.Warn().Err(err).Msg("unread summary refresh failed")
		e.report("refreshing unread counts", "", err, background)
		return err
	}

	e.notifyChannels()
	return nil
}

// applySummary replaces the unread counts with a summary requested under
// read generation gen. A summary requested before a newer read receipt is
// dropped; the refresh that follows the receipt supersedes it.
func (e *Engine) applySummary(entries []backend.UnreadEntry, gen uint64) {
	counts := make(map[string]int, len(entries))
	for _, entry := range entries {
		counts[entry.ChannelID] += entry.Count
	}

	e.mu.Lock()
	if e.readGen != gen {
		e.mu.Unlock()
		e.logger.Debug().Uint64("gen", gen).Msg("dropping unread summary older than read receipt")
		return
	}
	total := 0
	for id, cs := range e.channels {
		cs.channel.UnreadCount = counts[id]
		total += cs.channel.UnreadCount
		delete(counts, id)
	}
	e.pendingUnread = counts
	e.mu.Unlock()

	e.metrics.ObserveUnread(total)
}

// MarkAsRead submits the channel cursor as the read-up-to marker. It only
// acts on the active channel, once it has a cursor and a fetch for it has
// succeeded since activation; otherwise it does nothing. Failure is logged
// and returned but is never fatal.
func (e *Engine) MarkAsRead(ctx context.Context, id string) error {
	e.mu.Lock()
	userID := e.user.ID
	cs, ok := e.channels[id]
	if userID == "" || !ok || e.active != id || !cs.fetched {
		e.mu.Unlock()
		return nil
	}
	cursor, hasCursor := cs.channel.Cursor()
	e.mu.Unlock()
	if !hasCursor {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.backend.MarkAsRead(reqCtx, id, userID, cursor); err != nil {
		e.logger.Warn().Err(err).Str("channel_id", id).Msg("marking channel as read failed")
		return err
	}
	e.mu.Lock()
	e.readGen++
	e.mu.Unlock()
	e.logger.Debug().Str("channel_id", id).Str("up_to", cursor).Msg("channel marked as read")
	return nil
}

// TotalUnread sums the unread counts of every registered channel.
func (e *Engine) TotalUnread() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	total := 0
	for _, cs := range e.channels {
		total += cs.channel.UnreadCount
	}
	return total
}

// FormatBadge renders an unread count for a badge: empty for zero, capped
// at "9+".
func FormatBadge(count int) string {
	switch {
	case count <= 0:
		return ""
	case count > 9:
		return "9+"
	default:
		return strconv.Itoa(count)
	}
}
