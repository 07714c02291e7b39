package roomform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/clinic-chat/internal/model"
	"github.com/nhle/clinic-chat/internal/theme"
)

// Room kinds offered by the form.
const (
	KindGeneral     = "general"
	KindAppointment = "appointment"
	KindPatient     = "patient"
	KindCustom      = "custom"
)

// RoomChosenMsg is dispatched when the user submits the form.
type RoomChosenMsg struct {
	Room model.RoomRef
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	kind  string
	id    string
	name  string
	date  string
	hour  string
	title string
}

// Model is the Bubble Tea model for the open-room form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new open-room form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{kind: KindAppointment},
		width:  width,
		height: height,
	}
}

// Start resets the fields and builds a fresh form.
func (m *Model) Start() tea.Cmd {
	*m.fb = formBindings{kind: KindAppointment}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		room := Room(m.fb.kind, m.fb.id, m.fb.name, m.fb.date, m.fb.hour, m.fb.title)
		return m, func() tea.Msg { return RoomChosenMsg{Room: room} }
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render("Open Room") + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Room").
				Options(
					huh.NewOption("Appointment", KindAppointment),
					huh.NewOption("Patient (chronic)", KindPatient),
					huh.NewOption("General", KindGeneral),
					huh.NewOption("Custom id", KindCustom),
				).
				Value(&m.fb.kind),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Id").
				Placeholder("appointment, patient or room id").
				Value(&m.fb.id).
				Validate(validateRequired("Id")),
			huh.NewInput().
				Title("Name").
				Placeholder("patient name (optional)").
				Value(&m.fb.name),
		).WithHideFunc(func() bool { return m.fb.kind == KindGeneral }),
		huh.NewGroup(
			huh.NewInput().
				Title("Date").
				Placeholder("YYYY-MM-DD (optional)").
				Value(&m.fb.date),
			huh.NewInput().
				Title("Hour").
				Placeholder("HH:MM (optional)").
				Value(&m.fb.hour),
		).WithHideFunc(func() bool { return m.fb.kind != KindAppointment }),
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("display title (optional)").
				Value(&m.fb.title),
		).WithHideFunc(func() bool { return m.fb.kind != KindCustom }),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

// Room builds the room reference for the submitted fields.
func Room(kind, id, name, date, hour, title string) model.RoomRef {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	switch kind {
	case KindAppointment:
		return model.AppointmentRoom(id, name, strings.TrimSpace(date), strings.TrimSpace(hour))
	case KindPatient:
		return model.PatientRoom(id, name)
	case KindCustom:
		return model.RoomRef{ID: id, Title: strings.TrimSpace(title)}
	default:
		return model.DefaultRoom()
	}
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
