package roomlist

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/clinic-chat/internal/model"
	chatsync "github.com/nhle/clinic-chat/internal/sync"
	"github.com/nhle/clinic-chat/internal/theme"
)

// RoomItem wraps a model.Channel so it can be used in a bubbles/list.
type RoomItem struct {
	Channel model.Channel
}

// FilterValue returns the string used for fuzzy filtering.
func (i RoomItem) FilterValue() string { return i.Channel.DisplayTitle() }

// Title returns the room title for the list.
func (i RoomItem) Title() string { return i.Channel.DisplayTitle() }

// Description returns the room description.
func (i RoomItem) Description() string { return i.Channel.Description }

// RoomDelegate implements list.ItemDelegate for one-line room rows.
type RoomDelegate struct{}

// Height returns the number of lines each item takes.
func (d RoomDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d RoomDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d RoomDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single room row: active marker, title and unread badge.
func (d RoomDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	room, ok := item.(RoomItem)
	if !ok {
		return
	}
	ch := room.Channel

	marker := " "
	if ch.IsActive {
		marker = lipgloss.NewStyle().Foreground(theme.ColorGreen).Render("●")
	}

	badge := ""
	if b := chatsync.FormatBadge(ch.UnreadCount); b != "" {
		badge = " " + theme.BadgeStyle.Render(b)
	}

	// Leave room for marker, padding and badge.
	avail := m.Width() - 4 - lipgloss.Width(badge)
	title := truncate(ch.DisplayTitle(), avail)

	line := fmt.Sprintf("%s %s%s", marker, title, badge)
	if index == m.Index() {
		line = theme.SelectedRoomStyle.Render(line)
	} else {
		line = theme.RoomStyle.Render(line)
	}

	fmt.Fprint(w, line)
}

// truncate shortens s to at most n cells, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if lipgloss.Width(s) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > n {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
