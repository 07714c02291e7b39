package userpicker

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/theme"
)

// UserChosenMsg is dispatched when a user is picked.
type UserChosenMsg struct {
	User model.User
}

// CancelMsg is dispatched when the picker is aborted.
type CancelMsg struct{}

// NewForm builds a select over users bound to *choice. The current user is
// preselected when present.
func NewForm(users []model.User, current model.User, choice *string) *huh.Form {
	opts := make([]huh.Option[string], 0, len(users))
	for _, u := range users {
		opts = append(opts, huh.NewOption(u.Label(), u.ID).Selected(u.ID == current.ID))
	}
	*choice = current.ID
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Who is chatting?").
				Options(opts...).
				Value(choice),
		),
	)
}

// Model wraps the user select form.
type Model struct {
	form   *huh.Form
	users  []model.User
	choice *string
	width  int
	height int
}

// New creates an empty picker.
func New(width, height int) Model {
	return Model{choice: new(string), width: width, height: height}
}

// Start shows the picker for users.
func (m *Model) Start(users []model.User, current model.User) tea.Cmd {
	m.users = users
	m.form = NewForm(users, current, m.choice).WithWidth(min(max(m.width-4, 30), 80))
	return m.form.Init()
}

// Update handles messages for the picker.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		if u, ok := Find(m.users, *m.choice); ok {
			return m, func() tea.Msg { return UserChosenMsg{User: u} }
		}
		return m, func() tea.Msg { return CancelMsg{} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the picker.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("Change User")
	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.View())
}

// SetSize updates the picker dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Find returns the user with id.
func Find(users []model.User, id string) (model.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}
