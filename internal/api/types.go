package api

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WallTime renders a wall-clock value without any zone designator, so the
// browser client never reinterprets appointment times as instants.
type WallTime time.Time

const wallTimeLayout = "2006-01-02T15:04:05"

func (t WallTime) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", time.Time(t).Format(wallTimeLayout))), nil
}

func (t *WallTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.Parse(wallTimeLayout, s)
	if err != nil {
		return err
	}
	*t = WallTime(parsed)
	return nil
}

type CreateAppointmentRequest struct {
	DoctorID  string    `json:"doctor_id"`
	PatientID string    `json:"patient_id"`
	DateTime  time.Time `json:"datetime"`
}

type AppointmentResponse struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	PatientID uuid.UUID `json:"patient_id"`
	DateTime  WallTime  `json:"datetime"`
}

type AgendaSlotResponse struct {
	Time      WallTime `json:"time"`
	Available bool     `json:"available"`
}

type AgendaResponse struct {
	DoctorID uuid.UUID            `json:"doctor_id"`
	Day      string               `json:"day"`
	Slots    []AgendaSlotResponse `json:"slots"`
}

type RegisterDoctorRequest struct {
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	Phone         *string `json:"phone,omitempty"`
	LicenseNumber string  `json:"license_number"`
	Specialty     string  `json:"specialty"`
	Password      string  `json:"password"`
}

type RegisterPatientRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone,omitempty"`
	NationalID string  `json:"national_id"`
	Password   string  `json:"password"`
}

type RegisterResponse struct {
	ID uuid.UUID `json:"id"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string     `json:"token"`
	UserID    uuid.UUID  `json:"user_id"`
	Role      string     `json:"role"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	PatientID *uuid.UUID `json:"patient_id,omitempty"`
}

type DoctorResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Specialty string    `json:"specialty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
