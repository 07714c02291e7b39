package roomform

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/clinic-chat/internal/model"
)

func TestRoom(t *testing.T) {
	tests := []struct {
		name string
		kind string
		id   string
		who  string
		want model.RoomRef
	}{
		{
			name: "appointment",
			kind: KindAppointment, id: " 7 ", who: "Maria",
			want: model.AppointmentRoom("7", "Maria", "2024-03-01", "10:00"),
		},
		{
			name: "patient",
			kind: KindPatient, id: "12", who: "João",
			want: model.PatientRoom("12", "João"),
		},
		{
			name: "general ignores id",
			kind: KindGeneral, id: "99",
			want: model.DefaultRoom(),
		},
		{
			name: "custom",
			kind: KindCustom, id: "plantao",
			want: model.RoomRef{ID: "plantao", Title: "Plantão"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Room(tt.kind, tt.id, tt.who, "2024-03-01", "10:00", "Plantão")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateRequired(t *testing.T) {
	v := validateRequired("Id")
	assert.Error(t, v("  "))
	assert.NoError(t, v("7"))
}
