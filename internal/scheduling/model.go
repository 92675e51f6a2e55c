package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is a confirmed booking between a doctor and a patient.
// StartsAt is a wall-clock value: it carries no zone information and is
// compared purely on its calendar/time-of-day fields. Records are immutable
// once created.
type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	StartsAt  time.Time
	CreatedAt time.Time
}

// AgendaSlot is one bookable point of a doctor's day. Slots are derived per
// request, never stored.
type AgendaSlot struct {
	Time      time.Time `json:"time"`
	Available bool      `json:"available"`
}
