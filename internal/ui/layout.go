package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/clinic-chat/internal/theme"
)

const (
	minSidebarWidth = 24
	maxSidebarWidth = 36
)

// Layout manages the two-pane chat layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area,
// accounting for the header and status bar.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// SidebarWidth is the outer width of the room list pane: a quarter of the
// screen, clamped.
func (l Layout) SidebarWidth() int {
	return min(max(l.Width/4, minSidebarWidth), maxSidebarWidth)
}

// ChatWidth is the outer width of the chat pane.
func (l Layout) ChatWidth() int {
	return max(l.Width-l.SidebarWidth(), 0)
}

// PaneInner returns the inner size of a bordered pane of the given outer
// width spanning the content height.
func (l Layout) PaneInner(outerWidth int) (width, height int) {
	frameW, frameH := theme.PaneStyle.GetFrameSize()
	return max(outerWidth-frameW, 0), max(l.ContentHeight()-frameH, 0)
}

// RenderHeader renders the top header bar with a title and sync status.
func (l Layout) RenderHeader(title string, syncStatus string) string {
	titleRendered := theme.HeaderStyle.Render(title)

	statusRendered := theme.HeaderStyle.
		Align(lipgloss.Right).
		Render(syncStatus)

	gap := max(l.Width-
		lipgloss.Width(titleRendered)-
		lipgloss.Width(statusRendered), 0)

	filler := theme.HeaderStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.HeaderStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleRendered,
		filler,
		statusRendered,
	)
}

// RenderStatusBar renders the bottom status bar. A non-empty notice
// replaces the key hints.
func (l Layout) RenderStatusBar(hints string, notice string) string {
	rendered := theme.StatusBarStyle.Render(hints)
	if notice != "" {
		rendered = theme.StatusBarStyle.Render(notice)
	}

	gap := max(l.Width-lipgloss.Width(rendered), 0)

	filler := theme.StatusBarStyle.Render(
		lipgloss.NewStyle().
			Width(gap).
			Background(theme.StatusBarStyle.GetBackground()).
			Render(""),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, rendered, filler)
}

// RenderPanes places the sidebar and chat pane side by side, highlighting
// the border of the focused one.
func (l Layout) RenderPanes(sidebar, chat string, sidebarFocused bool) string {
	sw, sh := l.PaneInner(l.SidebarWidth())
	cw, ch := l.PaneInner(l.ChatWidth())

	left, right := theme.PaneStyle, theme.FocusedPaneStyle
	if sidebarFocused {
		left, right = theme.FocusedPaneStyle, theme.PaneStyle
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		left.Width(sw).Height(sh).Render(sidebar),
		right.Width(cw).Height(ch).Render(chat),
	)
}

// RenderWithFrame composes a full terminal view by vertically joining
// the header, content area, and status bar.
func (l Layout) RenderWithFrame(
	header string,
	content string,
	statusBar string,
) string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		content,
		statusBar,
	)
}
