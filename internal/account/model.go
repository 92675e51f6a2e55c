package account

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

type Doctor struct {
	ID            uuid.UUID
	Name          string
	Email         string
	Phone         *string
	LicenseNumber string
	Specialty     string
}

type Patient struct {
	ID         uuid.UUID
	Name       string
	NationalID string
	Email      string
	Phone      *string
}
