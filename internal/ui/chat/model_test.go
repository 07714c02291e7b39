package chat

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/clinic-chat/internal/keys"
	"github.com/nhle/clinic-chat/internal/model"
)

var ana = model.User{ID: "1", Name: "Ana"}

func TestIsOwn(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   bool
	}{
		{name: "by name", sender: "Ana", want: true},
		{name: "by id", sender: "1", want: true},
		{name: "someone else", sender: "Bia", want: false},
		{name: "blank", sender: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOwn(model.Message{Sender: tt.sender}, ana))
		})
	}
}

func TestClockFallsBackForUnparsedTimestamp(t *testing.T) {
	assert.Equal(t, "--:--", Clock(model.Message{Timestamp: "ontem"}))
	assert.Len(t, Clock(model.Message{Timestamp: "2024-03-01T10:05:00Z"}), 5)
}

func TestEmptyStateAndMessages(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 60, 20)
	ch := model.Channel{ID: "default", Title: "Geral", Description: "Chat geral da clínica"}

	m.Clear(ch)
	assert.Contains(t, m.View(), "Loading...")

	m.SetMessages(ch, nil, true, true)
	view := m.View()
	assert.Contains(t, view, EmptyText)
	assert.Contains(t, view, "Geral")

	m.SetMessages(ch, []model.Message{
		{Sender: "Bia", Text: "bom dia", Timestamp: "2024-03-01T10:00:00Z"},
		{Sender: model.SystemSender, Text: "paciente chegou", Timestamp: "2024-03-01T10:01:00Z"},
	}, false, true)
	view = m.View()
	assert.NotContains(t, view, EmptyText)
	assert.Contains(t, view, "bom dia")
	assert.Contains(t, view, "paciente chegou")
}

func TestComposerEmitsTrimmedSend(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 60, 20)
	m.SetMessages(model.Channel{ID: "agenda-1"}, nil, true, true)
	m.FocusComposer()

	for _, r := range "  oi  " {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SendMsg{ChannelID: "agenda-1", Text: "oi"}, cmd())
	assert.Empty(t, strings.TrimSpace(m.composer.Value()))

	// Blank composer sends nothing.
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
}
