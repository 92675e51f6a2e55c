package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrEmailTaken      = errors.New("email is already registered")
	ErrNationalIDTaken = errors.New("national id is already registered")
	ErrLicenseTaken    = errors.New("license number is already registered")
)

// Querier is the subset of pgx the repository needs; pgx.Tx and pgxpool.Pool
// both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository contains the DB interactions of the account service.
type Repository interface {
	GetUserByEmail(ctx context.Context, q Querier, email string) (*User, error)
	UserEmailExists(ctx context.Context, q Querier, email string) (bool, error)
	InsertUser(ctx context.Context, q Querier, u *User) error

	InsertDoctor(ctx context.Context, q Querier, d *Doctor) error
	DoctorEmailExists(ctx context.Context, q Querier, email string) (bool, error)
	DoctorLicenseExists(ctx context.Context, q Querier, license string) (bool, error)
	DoctorIDByEmail(ctx context.Context, q Querier, email string) (uuid.UUID, error)
	GetDoctor(ctx context.Context, q Querier, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context, q Querier) ([]Doctor, error)

	InsertPatient(ctx context.Context, q Querier, p *Patient) error
	PatientEmailExists(ctx context.Context, q Querier, email string) (bool, error)
	PatientNationalIDExists(ctx context.Context, q Querier, nationalID string) (bool, error)
	PatientIDByEmail(ctx context.Context, q Querier, email string) (uuid.UUID, error)
}
