package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentRoom(t *testing.T) {
	ref := AppointmentRoom("123", "Maria Silva", "2024-05-02", "14:30")
	assert.Equal(t, "agenda-123", ref.ID)
	assert.Equal(t, "Consulta: Maria Silva", ref.Title)
	assert.Equal(t, "Chat da consulta (2024-05-02 14:30)", ref.Description)

	bare := AppointmentRoom(" 9 ", "", "", "")
	assert.Equal(t, "agenda-9", bare.ID)
	assert.Equal(t, "Consulta: 9", bare.Title)
	assert.Equal(t, "Chat da consulta", bare.Description)
}

func TestPatientRoom(t *testing.T) {
	ref := PatientRoom("55", "João")
	assert.Equal(t, "paciente-55", ref.ID)
	assert.Equal(t, "Paciente: João", ref.Title)
	assert.Equal(t, "Chat crônico do paciente", ref.Description)
}

func TestChannelCursor(t *testing.T) {
	var ch Channel
	_, ok := ch.Cursor()
	assert.False(t, ok)

	ts := "2024-01-01T10:00:00Z"
	ch.LastSyncedTimestamp = &ts
	got, ok := ch.Cursor()
	assert.True(t, ok)
	assert.Equal(t, ts, got)
}

func TestAnonymousUser(t *testing.T) {
	u := AnonymousUser()
	assert.True(t, u.IsAnonymous())
	assert.Len(t, u.ID, len("ANON-")+8)
}
