package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestDoctorExists(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgRepository()
	doctorID := uuid.New()

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.DoctorExists(context.Background(), mock, doctorID)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsForDoctorAtTime(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgRepository()
	doctorID := uuid.New()
	at := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(doctorID, at).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsForDoctorAtTime(context.Background(), mock, doctorID, at)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsForPatientWithDoctorOnDay(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgRepository()
	patientID := uuid.New()
	doctorID := uuid.New()
	day := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(patientID, doctorID, day).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsForPatientWithDoctorOnDay(context.Background(), mock, patientID, doctorID, day)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReturnsCreatedAt(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgRepository()
	created := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	appt := &Appointment{
		ID:        uuid.New(),
		DoctorID:  uuid.New(),
		PatientID: uuid.New(),
		StartsAt:  time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC),
	}

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(appt.ID, appt.DoctorID, appt.PatientID, appt.StartsAt).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	require.NoError(t, repo.Insert(context.Background(), mock, appt))
	assert.Equal(t, created, appt.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedTimesForDoctorOnDay(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgRepository()
	doctorID := uuid.New()
	day := time.Date(2026, time.September, 7, 0, 0, 0, 0, time.UTC)
	first := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	second := time.Date(2026, time.September, 7, 14, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT starts_at FROM appointments").
		WithArgs(doctorID, day).
		WillReturnRows(pgxmock.NewRows([]string{"starts_at"}).AddRow(first).AddRow(second))

	occupied, err := repo.OccupiedTimesForDoctorOnDay(context.Background(), mock, doctorID, day)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{first, second}, occupied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllForDoctor(t *testing.T) {
	mock := newMockPool(t)
	repo := NewPgRepository()
	doctorID := uuid.New()
	apptID := uuid.New()
	patientID := uuid.New()
	startsAt := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	createdAt := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, doctor_id, patient_id, starts_at, created_at").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "doctor_id", "patient_id", "starts_at", "created_at"}).
			AddRow(apptID, doctorID, patientID, startsAt, createdAt))

	appts, err := repo.AllForDoctor(context.Background(), mock, doctorID)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, apptID, appts[0].ID)
	assert.Equal(t, startsAt, appts[0].StartsAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMapUniqueViolation(t *testing.T) {
	doctorErr := &pgconn.PgError{Code: "23505", ConstraintName: doctorSlotConstraint}
	assert.ErrorIs(t, mapUniqueViolation(doctorErr), ErrDoctorSlotTaken)

	patientErr := &pgconn.PgError{Code: "23505", ConstraintName: patientDoctorDayConstraint}
	assert.ErrorIs(t, mapUniqueViolation(patientErr), ErrPatientDayTaken)

	other := errors.New("connection reset")
	assert.Equal(t, other, mapUniqueViolation(other))

	foreign := &pgconn.PgError{Code: "23503", ConstraintName: doctorSlotConstraint}
	assert.Equal(t, error(foreign), mapUniqueViolation(foreign))
}
