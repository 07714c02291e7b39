package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/clinic-chat/internal/keys"
	"github.com/nhle/clinic-chat/internal/logging"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/store"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
	"github.com/nhle/clinic-chat/internal/theme"
	"github.com/nhle/clinic-chat/internal/ui"
	"github.com/nhle/clinic-chat/internal/ui/chat"
	"github.com/nhle/clinic-chat/internal/ui/command"
	helpview "github.com/nhle/clinic-chat/internal/ui/help"
	"github.com/nhle/clinic-chat/internal/ui/roomform"
	"github.com/nhle/clinic-chat/internal/ui/roomlist"
	"github.com/nhle/clinic-chat/internal/ui/userpicker"
)

// headerRefresh is how often the header re-reads the polling mode.
const headerRefresh = time.Second

// Engine is the part of the sync engine the UI drives.
type Engine interface {
	Start(ctx context.Context) error
	Stop() error
	NotifyActivity()
	SetFocused(focused bool)
	User() model.User
	SetUser(u model.User)
	State() chatsync.State
	CreateOrGet(id, title, description string) (model.Channel, bool)
	Switch(ctx context.Context, id, title, description string) error
	Reload(ctx context.Context) error
	MarkAsRead(ctx context.Context, id string) error
	RefreshSummary(ctx context.Context) error
	Submit(ctx context.Context, id, sender, text string) error
	TotalUnread() int
}

// UserLister returns the staff directory.
type UserLister interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Deps are the collaborators of the root model.
type Deps struct {
	Engine Engine
	Bridge *Bridge
	Store  store.Store
	Users  UserLister

	// Room is opened once persisted rooms are restored.
	Room model.RoomRef
}

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewMain ViewState = iota
	ViewHelp
	ViewCommand
	ViewRoomForm
	ViewUserPicker
)

type focusArea int

const (
	focusRooms focusArea = iota
	focusComposer
)

// Model is the root Bubble Tea model: it routes views, owns the layout and
// drives the sync engine through commands.
type Model struct {
	ctx    context.Context
	engine Engine
	bridge *Bridge
	store  store.Store
	users  UserLister
	keys   *keys.KeyMap
	logger zerolog.Logger

	currentView  ViewState
	previousView ViewState
	focus        focusArea
	layout       ui.Layout
	ready        bool
	initial      model.RoomRef

	rooms       roomlist.Model
	chat        chat.Model
	helpView    helpview.Model
	commandView command.Model
	roomForm    roomform.Model
	userPicker  userpicker.Model

	notice         string
	noticeSeverity chatsync.Severity
}

// New creates the root model. ctx bounds every engine call issued by the UI.
func New(ctx context.Context, deps Deps) Model {
	k := keys.DefaultKeyMap()
	room := deps.Room
	if room.ID == "" {
		room = model.DefaultRoom()
	}

	m := Model{
		ctx:         ctx,
		engine:      deps.Engine,
		bridge:      deps.Bridge,
		store:       deps.Store,
		users:       deps.Users,
		keys:        k,
		logger:      logging.Component("tui"),
		currentView: ViewMain,
		initial:     room,
		rooms:       roomlist.New(k, 24, 20),
		chat:        chat.New(k, 56, 20),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		roomForm:    roomform.New(80, 24),
		userPicker:  userpicker.New(80, 24),
	}
	m.chat.SetUser(deps.Engine.User())
	return m
}

// Init listens to the bridge, starts polling and restores persisted rooms.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.bridge.Wait(),
		m.startEngine(),
		m.restoreRooms(),
		tickHeader(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.resize()
		// Forward to the active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case tea.FocusMsg:
		m.engine.SetFocused(true)
		return m, nil

	case tea.BlurMsg:
		m.engine.SetFocused(false)
		return m, nil

	case headerTickMsg:
		return m, tickHeader()

	case UpdateMsg:
		cmd := m.applyUpdate(msg)
		return m, tea.Batch(cmd, m.bridge.Wait())

	case engineStartedMsg:
		if msg.err != nil {
			m.logger.Error().Err(msg.err).Msg("starting sync scheduler")
			m.setNotice(chatsync.SeverityError, "polling disabled: "+msg.err.Error())
		}
		return m, nil

	case roomsRestoredMsg:
		return m, m.openRoom(m.initial)

	case opDoneMsg:
		if msg.err != nil && !msg.reported {
			m.setNotice(chatsync.SeverityError, fmt.Sprintf("%s: %v", msg.op, msg.err))
		}
		return m, nil

	case usersLoadedMsg:
		if msg.err != nil {
			m.setNotice(chatsync.SeverityError, fmt.Sprintf("loading users: %v", msg.err))
			return m, nil
		}
		if len(msg.users) == 0 {
			m.setNotice(chatsync.SeverityWarn, "no users available")
			return m, nil
		}
		m.previousView = m.currentView
		m.currentView = ViewUserPicker
		return m, m.userPicker.Start(msg.users, m.engine.User())

	case roomlist.OpenRoomMsg:
		return m, m.openRoom(msg.Room)

	case roomform.RoomChosenMsg:
		m.currentView = ViewMain
		return m, m.openRoom(msg.Room)

	case roomform.CancelMsg:
		m.currentView = ViewMain
		return m, nil

	case userpicker.UserChosenMsg:
		m.currentView = ViewMain
		m.engine.SetUser(msg.User)
		m.chat.SetUser(msg.User)
		return m, m.saveUser(msg.User)

	case userpicker.CancelMsg:
		m.currentView = ViewMain
		return m, nil

	case chat.SendMsg:
		return m, m.send(msg.ChannelID, msg.Text)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case tea.KeyMsg:
		m.engine.NotifyActivity()
		if next, cmd, handled := m.handleKey(msg); handled {
			return next, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleKey processes global keys. handled is false when the key belongs
// to the active view.
func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, m.quit(), true
	}

	switch m.currentView {
	case ViewHelp:
		if key.Matches(msg, m.keys.Help, m.keys.Back) {
			m.currentView = m.previousView
		}
		return m, nil, true
	case ViewMain:
	default:
		return m, nil, false
	}

	if key.Matches(msg, m.keys.SwitchFocus) {
		return m, m.toggleFocus(), true
	}
	if m.focus == focusComposer {
		if key.Matches(msg, m.keys.Back) {
			if m.notice != "" {
				m.clearNotice()
				return m, nil, true
			}
			return m, m.toggleFocus(), true
		}
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, m.quit(), true
	case key.Matches(msg, m.keys.Back):
		m.clearNotice()
		return m, nil, true
	case key.Matches(msg, m.keys.Help):
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil, true
	case key.Matches(msg, m.keys.Command):
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus(), true
	case key.Matches(msg, m.keys.OpenRoom):
		m.previousView = m.currentView
		m.currentView = ViewRoomForm
		return m, m.roomForm.Start(), true
	case key.Matches(msg, m.keys.Reload):
		return m, m.reload(), true
	case key.Matches(msg, m.keys.MarkRead):
		return m, m.markRead(), true
	case key.Matches(msg, m.keys.ChangeUser):
		return m, m.loadUsers(), true
	}
	return m, nil, false
}

func (m *Model) toggleFocus() tea.Cmd {
	if m.focus == focusComposer {
		m.focus = focusRooms
		m.chat.BlurComposer()
		return nil
	}
	m.focus = focusComposer
	return m.chat.FocusComposer()
}

// applyUpdate copies engine output into the views. Only batches for the
// channel on screen are rendered.
func (m *Model) applyUpdate(msg UpdateMsg) tea.Cmd {
	var cmd tea.Cmd
	if msg.HasChannels {
		cmd = m.rooms.SetChannels(msg.Channels)
		for _, ch := range msg.Channels {
			if ch.ID == m.chat.Channel().ID {
				m.chat.SetChannel(ch)
			}
		}
	}

	for _, batch := range msg.Renders {
		if batch.ChannelID != m.chat.Channel().ID {
			continue
		}
		follow := batch.Reason != chatsync.RenderAppend
		m.chat.SetMessages(batch.Channel, batch.Messages, batch.Empty, follow)
	}

	for _, st := range msg.Statuses {
		if st.Severity == chatsync.SeverityOK {
			if m.noticeSeverity == chatsync.SeverityWarn {
				m.clearNotice()
			}
			continue
		}
		m.setNotice(st.Severity, st.Message())
	}
	return cmd
}

func (m *Model) setNotice(sev chatsync.Severity, text string) {
	m.notice = text
	m.noticeSeverity = sev
}

func (m *Model) clearNotice() {
	m.notice = ""
	m.noticeSeverity = chatsync.SeverityOK
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(cmd command.CommandMsg) tea.Cmd {
	switch cmd.Name {
	case "reload", "r":
		return m.reload()
	case "read", "m":
		return m.markRead()
	case "open", "o":
		if len(cmd.Args) == 0 {
			m.setNotice(chatsync.SeverityError, "usage: open ROOM [TITLE]")
			return nil
		}
		title := strings.Join(cmd.Args[1:], " ")
		return m.openRoom(model.RoomRef{ID: cmd.Args[0], Title: title})
	case "user", "u":
		return m.loadUsers()
	case "quit", "q":
		return m.quit()
	default:
		m.setNotice(chatsync.SeverityError, fmt.Sprintf("unknown command %q", cmd.Name))
		return nil
	}
}

func (m *Model) resize() {
	sw, sh := m.layout.PaneInner(m.layout.SidebarWidth())
	cw, ch := m.layout.PaneInner(m.layout.ChatWidth())
	m.rooms.SetSize(sw, sh)
	m.chat.SetSize(cw, ch)

	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.helpView.SetSize(w, h)
	m.commandView.SetSize(w, h)
	m.roomForm.SetSize(w, h)
	m.userPicker.SetSize(w, h)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewMain:
		if m.focus == focusComposer {
			m.chat, cmd = m.chat.Update(msg)
		} else {
			m.rooms, cmd = m.rooms.Update(msg)
		}
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewRoomForm:
		m.roomForm, cmd = m.roomForm.Update(msg)
	case ViewUserPicker:
		m.userPicker, cmd = m.userPicker.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.syncStatus())
	notice := ""
	if m.notice != "" {
		notice = theme.SeverityStyle(m.noticeSeverity.String()).Render(m.notice)
	}
	statusBar := m.layout.RenderStatusBar(m.keyHints(), notice)

	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewRoomForm:
		return m.roomForm.View()
	case ViewUserPicker:
		return m.userPicker.View()
	default:
		return m.layout.RenderPanes(m.rooms.View(), m.chat.View(), m.focus == focusRooms)
	}
}

func (m Model) headerTitle() string {
	title := "Clinic Chat · " + m.engine.User().Label()
	if n := m.engine.TotalUnread(); n > 0 {
		title = fmt.Sprintf("%s [%s unread]", title, chatsync.FormatBadge(n))
	}
	return title
}

// syncStatus describes the polling cadence, e.g. "active 3s".
func (m Model) syncStatus() string {
	st := m.engine.State()
	if st.Interval <= 0 {
		return "stopped"
	}
	return fmt.Sprintf("%s %s", st.Mode, st.Interval)
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewRoomForm, ViewUserPicker:
		return "enter submit | esc cancel"
	}
	if m.focus == focusComposer {
		return "enter send | tab rooms | esc back"
	}
	return "q quit | ? help | enter open | o open id | r reload | m read | u user | tab compose"
}
