package theme

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for the application title bar.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps overlay content such as help and forms.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// PaneStyle is a bordered pane; FocusedPaneStyle marks the pane with focus.
var (
	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)
	FocusedPaneStyle = PaneStyle.
				BorderForeground(ColorBlue)
)

// RoomStyle is the base style for rooms in the sidebar.
var RoomStyle = lipgloss.NewStyle().
	PaddingLeft(2)

// SelectedRoomStyle highlights the room under the cursor.
var SelectedRoomStyle = lipgloss.NewStyle().
	PaddingLeft(1).
	Bold(true).
	Foreground(ColorBlue).
	Border(lipgloss.NormalBorder(), false, false, false, true).
	BorderForeground(ColorBlue)

// BadgeStyle renders unread counters.
var BadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("#FFFFFF")).
	Background(ColorRed).
	Padding(0, 1)

// ChannelTitleStyle and ChannelDescriptionStyle render the chat header.
var (
	ChannelTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorWhite)
	ChannelDescriptionStyle = lipgloss.NewStyle().
				Foreground(ColorGray).
				Italic(true)
)

// Message styles.
var (
	SenderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMagenta)
	OwnSenderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)
	SystemMessageStyle = lipgloss.NewStyle().
				Foreground(ColorGray).
				Italic(true)
	TimeStyle = lipgloss.NewStyle().
			Foreground(ColorGray)
)

// HelpStyle is used for keyboard shortcut hints and empty states.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// SeverityStyle returns the status line style for a severity name.
func SeverityStyle(severity string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)

	switch severity {
	case "error":
		return base.Foreground(ColorRed)
	case "warn":
		return base.Foreground(ColorYellow)
	case "ok":
		return base.Foreground(ColorGreen)
	default:
		return base.Foreground(ColorGray)
	}
}

// Apply selects a named theme. "mono" strips all colors; anything else keeps
// the adaptive palette.
func Apply(name string) {
	switch name {
	case "mono":
		lipgloss.SetColorProfile(termenv.Ascii)
	default:
		lipgloss.SetColorProfile(termenv.EnvColorProfile())
	}
}
