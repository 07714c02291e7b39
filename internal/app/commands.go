package app

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/rpc"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
)

// engineStartedMsg reports the outcome of starting the scheduler.
type engineStartedMsg struct {
	err error
}

// roomsRestoredMsg is sent once persisted rooms are registered.
type roomsRestoredMsg struct{}

// opDoneMsg reports a finished user-triggered operation. reported is set
// when the engine already surfaced the failure through the bridge.
type opDoneMsg struct {
	op       string
	err      error
	reported bool
}

// usersLoadedMsg carries the staff directory for the user picker.
type usersLoadedMsg struct {
	users []model.User
	err   error
}

type headerTickMsg struct{}

func tickHeader() tea.Cmd {
	return tea.Tick(headerRefresh, func(time.Time) tea.Msg { return headerTickMsg{} })
}

// engineReported reports whether err came from the backend, in which case
// the engine has already sent a status for it.
func engineReported(err error) bool {
	return rpc.IsNetworkError(err) || rpc.IsProtocolError(err)
}

func (m Model) startEngine() tea.Cmd {
	e, ctx := m.engine, m.ctx
	return func() tea.Msg {
		err := e.Start(ctx)
		if errors.Is(err, chatsync.ErrSchedulerRunning) {
			err = nil
		}
		return engineStartedMsg{err: err}
	}
}

// restoreRooms registers every persisted room, most recently opened first.
func (m Model) restoreRooms() tea.Cmd {
	e, s, ctx, log := m.engine, m.store, m.ctx, m.logger
	return func() tea.Msg {
		rooms, err := s.GetRooms(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("loading saved rooms")
			return roomsRestoredMsg{}
		}
		for _, r := range rooms {
			e.CreateOrGet(r.ID, r.Title, r.Description)
		}
		log.Debug().Int("count", len(rooms)).Msg("saved rooms restored")
		return roomsRestoredMsg{}
	}
}

// openRoom persists the room and switches the engine to it.
func (m *Model) openRoom(ref model.RoomRef) tea.Cmd {
	if ref.ID == "" {
		return nil
	}
	m.chat.Clear(model.Channel{ID: ref.ID, Title: ref.Title, Description: ref.Description})
	m.currentView = ViewMain

	e, s, ctx, log := m.engine, m.store, m.ctx, m.logger
	return func() tea.Msg {
		if err := s.UpsertRoom(ctx, ref); err != nil {
			log.Warn().Err(err).Str("channel_id", ref.ID).Msg("saving room")
		} else if err := s.TouchRoom(ctx, ref.ID); err != nil {
			log.Warn().Err(err).Str("channel_id", ref.ID).Msg("touching room")
		}

		err := e.Switch(ctx, ref.ID, ref.Title, ref.Description)
		return opDoneMsg{op: "opening room", err: err, reported: engineReported(err)}
	}
}

func (m Model) reload() tea.Cmd {
	e, ctx := m.engine, m.ctx
	return func() tea.Msg {
		err := e.Reload(ctx)
		return opDoneMsg{op: "reloading", err: err, reported: engineReported(err)}
	}
}

// markRead sends a read receipt for the room on screen and refreshes the
// badges.
func (m Model) markRead() tea.Cmd {
	id := m.chat.Channel().ID
	if id == "" {
		return nil
	}
	e, ctx := m.engine, m.ctx
	return func() tea.Msg {
		if err := e.MarkAsRead(ctx, id); err != nil {
			return opDoneMsg{op: "marking as read", err: err}
		}
		err := e.RefreshSummary(ctx)
		return opDoneMsg{op: "refreshing unread counts", err: err, reported: engineReported(err)}
	}
}

func (m Model) send(id, text string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return func() tea.Msg {
		err := e.Submit(ctx, id, "", text)
		return opDoneMsg{op: "sending message", err: err, reported: engineReported(err)}
	}
}

func (m Model) loadUsers() tea.Cmd {
	u, ctx := m.users, m.ctx
	return func() tea.Msg {
		if u == nil {
			return usersLoadedMsg{err: errors.New("no user directory configured")}
		}
		users, err := u.ListUsers(ctx)
		return usersLoadedMsg{users: users, err: err}
	}
}

// saveUser persists the chosen identity and reloads unread counts for it.
func (m Model) saveUser(u model.User) tea.Cmd {
	e, s, ctx := m.engine, m.store, m.ctx
	return func() tea.Msg {
		if err := s.SaveProfile(ctx, u); err != nil {
			return opDoneMsg{op: "saving user", err: err}
		}
		err := e.RefreshSummary(ctx)
		return opDoneMsg{op: "refreshing unread counts", err: err, reported: engineReported(err)}
	}
}

// quit stops polling and exits.
func (m Model) quit() tea.Cmd {
	e, log := m.engine, m.logger
	stop := func() tea.Msg {
		if err := e.Stop(); err != nil && !errors.Is(err, chatsync.ErrSchedulerStopped) {
			log.Warn().Err(err).Msg("stopping sync scheduler")
		}
		return nil
	}
	return tea.Sequence(stop, tea.Quit)
}
