package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// statements are idempotent so the schema can be applied on every startup.
// The two unique indexes on appointments back the scheduling conflict checks:
// even if a concurrent transaction slips past the in-transaction reads, the
// store itself refuses a double booking.
var statements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            uuid PRIMARY KEY,
		email         text NOT NULL UNIQUE,
		password_hash text NOT NULL,
		role          text NOT NULL,
		created_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS doctors (
		id             uuid PRIMARY KEY,
		name           text NOT NULL,
		email          text NOT NULL UNIQUE,
		phone          text,
		license_number text NOT NULL UNIQUE,
		specialty      text NOT NULL,
		created_at     timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id          uuid PRIMARY KEY,
		name        text NOT NULL,
		national_id text NOT NULL UNIQUE,
		email       text NOT NULL UNIQUE,
		phone       text,
		created_at  timestamptz NOT NULL DEFAULT now()
	)`,
	// starts_at is timestamp WITHOUT time zone: appointment times are wall
	// clock values, never instants.
	`CREATE TABLE IF NOT EXISTS appointments (
		id         uuid PRIMARY KEY,
		doctor_id  uuid NOT NULL REFERENCES doctors(id),
		patient_id uuid NOT NULL REFERENCES patients(id),
		starts_at  timestamp NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_doctor_slot
		ON appointments (doctor_id, starts_at)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_appointments_patient_doctor_day
		ON appointments (patient_id, doctor_id, ((starts_at)::date))`,
}

// EnsureSchema creates the tables and indexes the service needs.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
