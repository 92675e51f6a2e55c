package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Unique indexes backing the in-transaction conflict checks. A concurrent
// booking that slips past the checks trips one of these instead of silently
// double-booking.
const (
	doctorSlotConstraint       = "uq_appointments_doctor_slot"
	patientDoctorDayConstraint = "uq_appointments_patient_doctor_day"
)

type PgRepository struct{}

func NewPgRepository() *PgRepository {
	return &PgRepository{}
}

func (r *PgRepository) DoctorExists(ctx context.Context, q Querier, doctorID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM doctors WHERE id = $1)
	`, doctorID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check doctor exists: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) PatientExists(ctx context.Context, q Querier, patientID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM patients WHERE id = $1)
	`, patientID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check patient exists: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) ExistsForDoctorAtTime(ctx context.Context, q Querier, doctorID uuid.UUID, at time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND starts_at = $2
		)
	`, doctorID, at).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check doctor slot conflict: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) ExistsForPatientWithDoctorOnDay(ctx context.Context, q Querier, patientID, doctorID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM appointments
			WHERE patient_id = $1
			  AND doctor_id = $2
			  AND starts_at::date = $3::date
		)
	`, patientID, doctorID, day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check patient day conflict: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) Insert(ctx context.Context, q Querier, appt *Appointment) error {
	err := q.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, starts_at, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at
	`, appt.ID, appt.DoctorID, appt.PatientID, appt.StartsAt).Scan(&appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *PgRepository) OccupiedTimesForDoctorOnDay(ctx context.Context, q Querier, doctorID uuid.UUID, day time.Time) ([]time.Time, error) {
	rows, err := q.Query(ctx, `
		SELECT starts_at FROM appointments
		WHERE doctor_id = $1 AND starts_at::date = $2::date
		ORDER BY starts_at
	`, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("read occupied times: %w", err)
	}
	defer rows.Close()

	var occupied []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan occupied time: %w", err)
		}
		occupied = append(occupied, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read occupied times: %w", err)
	}
	return occupied, nil
}

func (r *PgRepository) AllForDoctor(ctx context.Context, q Querier, doctorID uuid.UUID) ([]Appointment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, doctor_id, patient_id, starts_at, created_at
		FROM appointments
		WHERE doctor_id = $1
		ORDER BY starts_at
	`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.DoctorID, &a.PatientID, &a.StartsAt, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return result, nil
}

// mapUniqueViolation translates the backstop constraint errors into the
// business error the in-transaction check would have produced.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case doctorSlotConstraint:
		return ErrDoctorSlotTaken
	case patientDoctorDayConstraint:
		return ErrPatientDayTaken
	}
	return err
}
