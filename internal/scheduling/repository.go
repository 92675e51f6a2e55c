package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
)

// Querier is the subset of pgx the repository needs. Both pgx.Tx and
// pgxpool.Pool satisfy it; the service always hands the repository the
// transaction it opened so that conflict checks and the insert share one
// consistent snapshot.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository contains all DB interactions needed by the scheduling service.
type Repository interface {
	DoctorExists(ctx context.Context, q Querier, doctorID uuid.UUID) (bool, error)
	PatientExists(ctx context.Context, q Querier, patientID uuid.UUID) (bool, error)

	// Conflict checks
	ExistsForDoctorAtTime(ctx context.Context, q Querier, doctorID uuid.UUID, at time.Time) (bool, error)
	ExistsForPatientWithDoctorOnDay(ctx context.Context, q Querier, patientID, doctorID uuid.UUID, day time.Time) (bool, error)

	Insert(ctx context.Context, q Querier, appt *Appointment) error

	// Agenda reads
	OccupiedTimesForDoctorOnDay(ctx context.Context, q Querier, doctorID uuid.UUID, day time.Time) ([]time.Time, error)
	AllForDoctor(ctx context.Context, q Querier, doctorID uuid.UUID) ([]Appointment, error)
}
