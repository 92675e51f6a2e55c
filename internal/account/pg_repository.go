package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PgRepository struct{}

func NewPgRepository() *PgRepository {
	return &PgRepository{}
}

func (r *PgRepository) GetUserByEmail(ctx context.Context, q Querier, email string) (*User, error) {
	var u User
	err := q.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

func (r *PgRepository) UserEmailExists(ctx context.Context, q Querier, email string) (bool, error) {
	return existsQuery(ctx, q, `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *PgRepository) InsertUser(ctx context.Context, q Querier, u *User) error {
	err := q.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING created_at
	`, u.ID, u.Email, u.PasswordHash, u.Role).Scan(&u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertDoctor(ctx context.Context, q Querier, d *Doctor) error {
	_, err := q.Exec(ctx, `
		INSERT INTO doctors (id, name, email, phone, license_number, specialty, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, d.ID, d.Name, d.Email, d.Phone, d.LicenseNumber, d.Specialty)
	if err != nil {
		return fmt.Errorf("insert doctor: %w", err)
	}
	return nil
}

func (r *PgRepository) DoctorEmailExists(ctx context.Context, q Querier, email string) (bool, error) {
	return existsQuery(ctx, q, `SELECT EXISTS(SELECT 1 FROM doctors WHERE email = $1)`, email)
}

func (r *PgRepository) DoctorLicenseExists(ctx context.Context, q Querier, license string) (bool, error) {
	return existsQuery(ctx, q, `SELECT EXISTS(SELECT 1 FROM doctors WHERE license_number = $1)`, license)
}

func (r *PgRepository) DoctorIDByEmail(ctx context.Context, q Querier, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM doctors WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrDoctorNotFound
		}
		return uuid.Nil, fmt.Errorf("get doctor id by email: %w", err)
	}
	return id, nil
}

func (r *PgRepository) GetDoctor(ctx context.Context, q Querier, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := q.QueryRow(ctx, `
		SELECT id, name, email, phone, license_number, specialty
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.LicenseNumber, &d.Specialty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	return &d, nil
}

func (r *PgRepository) ListDoctors(ctx context.Context, q Querier) ([]Doctor, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, email, phone, license_number, specialty
		FROM doctors
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var result []Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Email, &d.Phone, &d.LicenseNumber, &d.Specialty); err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	return result, nil
}

func (r *PgRepository) InsertPatient(ctx context.Context, q Querier, p *Patient) error {
	_, err := q.Exec(ctx, `
		INSERT INTO patients (id, name, national_id, email, phone, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, p.ID, p.Name, p.NationalID, p.Email, p.Phone)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *PgRepository) PatientEmailExists(ctx context.Context, q Querier, email string) (bool, error) {
	return existsQuery(ctx, q, `SELECT EXISTS(SELECT 1 FROM patients WHERE email = $1)`, email)
}

func (r *PgRepository) PatientNationalIDExists(ctx context.Context, q Querier, nationalID string) (bool, error) {
	return existsQuery(ctx, q, `SELECT EXISTS(SELECT 1 FROM patients WHERE national_id = $1)`, nationalID)
}

func (r *PgRepository) PatientIDByEmail(ctx context.Context, q Querier, email string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM patients WHERE email = $1`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrUserNotFound
		}
		return uuid.Nil, fmt.Errorf("get patient id by email: %w", err)
	}
	return id, nil
}

func existsQuery(ctx context.Context, q Querier, sql string, args ...any) (bool, error) {
	var exists bool
	if err := q.QueryRow(ctx, sql, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("existence query: %w", err)
	}
	return exists, nil
}
