package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// TxBeginner opens database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Service struct {
	db        TxBeginner
	repo      Repository
	jwtSecret string
	jwtTTL    time.Duration
	logger    *zap.Logger
}

func NewService(db TxBeginner, repo Repository, jwtSecret string, jwtTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:        db,
		repo:      repo,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		logger:    logger,
	}
}

type RegisterDoctorInput struct {
	Name          string
	Email         string
	Phone         *string
	LicenseNumber string
	Specialty     string
	Password      string
}

type RegisterPatientInput struct {
	Name       string
	Email      string
	Phone      *string
	NationalID string
	Password   string
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	UserID    uuid.UUID
	Role      Role
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
}

// RegisterDoctor creates the doctor profile and its login user in one
// transaction.
func (s *Service) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (*Doctor, error) {
	log := s.logger.With(zap.String("flow", "account.register_doctor"), zap.String("email", in.Email))
	email := normalizeEmail(in.Email)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin register tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if taken, err := s.repo.UserEmailExists(ctx, tx, email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.repo.DoctorLicenseExists(ctx, tx, in.LicenseNumber); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrLicenseTaken
	}

	doctor := &Doctor{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(in.Name),
		Email:         email,
		Phone:         in.Phone,
		LicenseNumber: in.LicenseNumber,
		Specialty:     in.Specialty,
	}
	if err := s.repo.InsertDoctor(ctx, tx, doctor); err != nil {
		log.Error("insert doctor failed", zap.Error(err))
		return nil, err
	}

	if err := s.insertLogin(ctx, tx, email, in.Password, RoleDoctor); err != nil {
		log.Error("insert login failed", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit register tx: %w", err)
	}
	log.Info("doctor registered", zap.String("doctor_id", doctor.ID.String()))
	return doctor, nil
}

// RegisterPatient creates the patient profile and its login user in one
// transaction.
func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (*Patient, error) {
	log := s.logger.With(zap.String("flow", "account.register_patient"), zap.String("email", in.Email))
	email := normalizeEmail(in.Email)
	nationalID := strings.TrimSpace(in.NationalID)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin register tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if taken, err := s.repo.PatientEmailExists(ctx, tx, email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.repo.PatientNationalIDExists(ctx, tx, nationalID); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrNationalIDTaken
	}
	if taken, err := s.repo.UserEmailExists(ctx, tx, email); err != nil {
		return nil, err
	} else if taken {
		return nil, ErrEmailTaken
	}

	patient := &Patient{
		ID:         uuid.New(),
		Name:       strings.TrimSpace(in.Name),
		NationalID: nationalID,
		Email:      email,
		Phone:      in.Phone,
	}
	if err := s.repo.InsertPatient(ctx, tx, patient); err != nil {
		log.Error("insert patient failed", zap.Error(err))
		return nil, err
	}

	if err := s.insertLogin(ctx, tx, email, in.Password, RolePatient); err != nil {
		log.Error("insert login failed", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit register tx: %w", err)
	}
	log.Info("patient registered", zap.String("patient_id", patient.ID.String()))
	return patient, nil
}

// Authenticate verifies credentials and issues a signed session token carrying
// the role-matching profile id.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	log := s.logger.With(zap.String("flow", "account.login"), zap.String("email", email))
	email = normalizeEmail(email)

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin login tx: %w", err)
	}
	defer tx.Rollback(ctx)

	user, err := s.repo.GetUserByEmail(ctx, tx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info("login failed")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		log.Info("login failed")
		return nil, ErrInvalidCredentials
	}

	var doctorID, patientID *uuid.UUID
	switch user.Role {
	case RoleDoctor:
		id, err := s.repo.DoctorIDByEmail(ctx, tx, email)
		if err != nil {
			return nil, err
		}
		doctorID = &id
	case RolePatient:
		id, err := s.repo.PatientIDByEmail(ctx, tx, email)
		if err != nil {
			return nil, err
		}
		patientID = &id
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit login tx: %w", err)
	}

	token, err := makeToken(user, doctorID, patientID, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	log.Info("login succeeded", zap.String("user_id", user.ID.String()))
	return &Session{
		Token:     token,
		UserID:    user.ID,
		Role:      user.Role,
		DoctorID:  doctorID,
		PatientID: patientID,
	}, nil
}

// ListDoctors returns all registered doctors for the booking UI.
func (s *Service) ListDoctors(ctx context.Context) ([]Doctor, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback(ctx)

	doctors, err := s.repo.ListDoctors(ctx, tx)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit list tx: %w", err)
	}
	return doctors, nil
}

func (s *Service) insertLogin(ctx context.Context, q Querier, email, password string, role Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.InsertUser(ctx, q, &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
