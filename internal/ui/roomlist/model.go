package roomlist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/clinic-chat/internal/keys"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/theme"
)

// OpenRoomMsg is sent when the user picks a room from the list.
type OpenRoomMsg struct {
	Room model.RoomRef
}

// Model is the sidebar room list.
type Model struct {
	list   list.Model
	keys   *keys.KeyMap
	width  int
	height int
}

// New creates a new room list model.
func New(k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, RoomDelegate{}, width, height)
	l.Title = "Salas"
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	return Model{
		list:   l,
		keys:   k,
		width:  width,
		height: height,
	}
}

// SetChannels replaces the rooms shown, keeping the cursor on the same room
// when it is still present.
func (m *Model) SetChannels(channels []model.Channel) tea.Cmd {
	selected := ""
	if room, ok := m.Selected(); ok {
		selected = room.ID
	}

	items := make([]list.Item, len(channels))
	cursor := -1
	for i, ch := range channels {
		items[i] = RoomItem{Channel: ch}
		if ch.ID == selected {
			cursor = i
		}
	}
	cmd := m.list.SetItems(items)
	if cursor >= 0 {
		m.list.Select(cursor)
	}
	return cmd
}

// Selected returns the room under the cursor.
func (m Model) Selected() (model.Channel, bool) {
	item, ok := m.list.SelectedItem().(RoomItem)
	if !ok {
		return model.Channel{}, false
	}
	return item.Channel, true
}

// Update handles messages for the room list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.keys.Select) {
		ch, ok := m.Selected()
		if !ok {
			return m, nil
		}
		ref := model.RoomRef{ID: ch.ID, Title: ch.Title, Description: ch.Description}
		return m, func() tea.Msg { return OpenRoomMsg{Room: ref} }
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the room list.
func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No rooms yet.\n\nPress o to open one.")
	}
	return m.list.View()
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height)
}
