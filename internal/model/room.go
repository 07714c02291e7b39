package model

import (
	"fmt"
	"strings"
)

// RoomRef describes a channel to register: its id and display metadata.
type RoomRef struct {
	ID          string
	Title       string
	Description string
}

// DefaultRoom returns the room used when no context is supplied.
func DefaultRoom() RoomRef {
	return RoomRef{ID: DefaultChannelID, Title: "Geral", Description: "Chat geral da clínica"}
}

// AppointmentRoom derives the room for an appointment. Date and time are
// optional and only shape the description.
func AppointmentRoom(appointmentID, patientName, date, hour string) RoomRef {
	appointmentID = strings.TrimSpace(appointmentID)
	ref := RoomRef{
		ID:          "agenda-" + appointmentID,
		Title:       "Consulta: " + nameOr(patientName, appointmentID),
		Description: "Chat da consulta",
	}
	when := strings.TrimSpace(strings.TrimSpace(date) + " " + strings.TrimSpace(hour))
	if when != "" {
		ref.Description = fmt.Sprintf("Chat da consulta (%s)", when)
	}
	return ref
}

// PatientRoom derives the long-running room for a patient.
func PatientRoom(patientID, patientName string) RoomRef {
	patientID = strings.TrimSpace(patientID)
	return RoomRef{
		ID:          "paciente-" + patientID,
		Title:       "Paciente: " + nameOr(patientName, patientID),
		Description: "Chat crônico do paciente",
	}
}

func nameOr(name, fallback string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	return fallback
}
