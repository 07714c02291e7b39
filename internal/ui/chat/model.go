package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/clinic-chat/internal/keys"
	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/theme"
)

// EmptyText is shown for a room that has no messages.
const EmptyText = "No messages yet."

// SendMsg is emitted when the user submits the composer.
type SendMsg struct {
	ChannelID string
	Text      string
}

// headerHeight is the title line, the description line and a rule.
const headerHeight = 3

// composerHeight is a rule and the input line.
const composerHeight = 2

// Model is the message pane: channel header, message viewport and composer.
type Model struct {
	channel  model.Channel
	messages []model.Message
	empty    bool
	loaded   bool
	user     model.User

	viewport viewport.Model
	composer textinput.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new chat pane.
func New(k *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, max(height-headerHeight-composerHeight, 1))
	vp.Style = lipgloss.NewStyle()

	ti := textinput.New()
	ti.Placeholder = "Digite uma mensagem..."
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.Width = max(width-4, 0)

	return Model{
		viewport: vp,
		composer: ti,
		keys:     k,
		width:    width,
		height:   height,
	}
}

// SetUser sets the identity whose messages are highlighted.
func (m *Model) SetUser(u model.User) {
	m.user = u
	m.refresh(false)
}

// SetChannel updates the header without touching the messages.
func (m *Model) SetChannel(ch model.Channel) {
	m.channel = ch
}

// Channel returns the channel shown.
func (m Model) Channel() model.Channel {
	return m.channel
}

// Clear switches the pane to a channel whose messages are not loaded yet.
func (m *Model) Clear(ch model.Channel) {
	m.channel = ch
	m.messages = nil
	m.empty = false
	m.loaded = false
	m.viewport.SetContent("")
}

// SetMessages replaces the rendered list. The view follows the newest message
// when it was already at the bottom or when follow is set.
func (m *Model) SetMessages(ch model.Channel, msgs []model.Message, empty, follow bool) {
	m.channel = ch
	m.messages = msgs
	m.empty = empty
	m.loaded = true
	m.refresh(follow)
}

func (m *Model) refresh(follow bool) {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages())
	if follow || atBottom {
		m.viewport.GotoBottom()
	}
}

// FocusComposer gives keyboard focus to the composer.
func (m *Model) FocusComposer() tea.Cmd {
	return m.composer.Focus()
}

// BlurComposer removes keyboard focus from the composer.
func (m *Model) BlurComposer() {
	m.composer.Blur()
}

// ComposerFocused reports whether the composer has focus.
func (m Model) ComposerFocused() bool {
	return m.composer.Focused()
}

// Update handles messages for the chat pane.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.composer.Focused() {
			if key.Matches(msg, m.keys.Send) {
				text := strings.TrimSpace(m.composer.Value())
				if text == "" || m.channel.ID == "" {
					return m, nil
				}
				m.composer.Reset()
				id := m.channel.ID
				return m, func() tea.Msg { return SendMsg{ChannelID: id, Text: text} }
			}
			var cmd tea.Cmd
			m.composer, cmd = m.composer.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, m.keys.Down):
			m.viewport.ScrollDown(1)
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.viewport.ScrollUp(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the chat pane.
func (m Model) View() string {
	if m.channel.ID == "" {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Select a room to start chatting.")
	}

	rule := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(strings.Repeat("─", max(m.width, 0)))
	header := lipgloss.JoinVertical(
		lipgloss.Left,
		theme.ChannelTitleStyle.Render(m.channel.DisplayTitle()),
		theme.ChannelDescriptionStyle.Render(m.channel.Description),
		rule,
	)

	body := m.viewport.View()
	switch {
	case !m.loaded:
		body = m.placeholder("Loading...")
	case m.empty:
		body = m.placeholder(EmptyText)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, rule, m.composer.View())
}

func (m Model) placeholder(text string) string {
	return lipgloss.NewStyle().
		Width(m.viewport.Width).
		Height(m.viewport.Height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray).
		Render(text)
}

func (m Model) renderMessages() string {
	lines := make([]string, 0, len(m.messages))
	for _, msg := range m.messages {
		lines = append(lines, RenderLine(msg, m.user, m.viewport.Width))
	}
	return strings.Join(lines, "\n")
}

// RenderLine formats one message as "HH:MM sender: text", wrapped to width.
func RenderLine(msg model.Message, self model.User, width int) string {
	clock := theme.TimeStyle.Render(Clock(msg))

	if msg.IsSystem() {
		return lipgloss.NewStyle().Width(width).Render(
			clock + " " + theme.SystemMessageStyle.Render(msg.Text),
		)
	}

	senderStyle := theme.SenderStyle
	if IsOwn(msg, self) {
		senderStyle = theme.OwnSenderStyle
	}
	return lipgloss.NewStyle().Width(width).Render(
		clock + " " + senderStyle.Render(msg.Sender) + ": " + msg.Text,
	)
}

// Clock returns the local HH:MM of a message, or "--:--" when the timestamp
// cannot be parsed.
func Clock(msg model.Message) string {
	t, ok := msg.Time()
	if !ok {
		return "--:--"
	}
	return t.Local().Format("15:04")
}

// IsOwn reports whether msg was sent by self.
func IsOwn(msg model.Message, self model.User) bool {
	if msg.Sender == "" {
		return false
	}
	return msg.Sender == self.Name || msg.Sender == self.ID
}

// SetSize updates the pane dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-headerHeight-composerHeight, 1)
	m.composer.Width = max(width-4, 0)
	m.refresh(false)
}
