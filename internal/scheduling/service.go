package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var (
	ErrDoctorSlotTaken = errors.New("doctor already has an appointment at this time")
	ErrPatientDayTaken = errors.New("patient already has an appointment with this doctor on this day")
)

// TxBeginner opens database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// AgendaCache is an optional read-through cache for daily agendas. A nil
// cache disables caching; cache failures never fail a request.
type AgendaCache interface {
	Get(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]AgendaSlot, bool)
	Set(ctx context.Context, doctorID uuid.UUID, day time.Time, slots []AgendaSlot)
	Invalidate(ctx context.Context, doctorID uuid.UUID, day time.Time)
}

// Service is the scheduling transaction coordinator. Every operation runs
// inside its own transaction; bookings use serializable isolation so that two
// concurrent attempts on the same slot cannot both pass the conflict check.
type Service struct {
	db     TxBeginner
	repo   Repository
	cache  AgendaCache
	logger *zap.Logger
}

func NewService(db TxBeginner, repo Repository, cache AgendaCache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:     db,
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Book validates and commits a new appointment. The requested time is
// normalized to wall clock first; the pure rules run before any DB work, the
// conflict checks and the insert share one serializable transaction.
func (s *Service) Book(ctx context.Context, doctorID, patientID uuid.UUID, requested time.Time) (*Appointment, error) {
	log := s.logger.With(
		zap.String("flow", "scheduling.book"),
		zap.String("doctor_id", doctorID.String()),
		zap.String("patient_id", patientID.String()),
		zap.Time("requested", requested),
	)

	at := NormalizeWallClock(requested)
	if err := ValidateBookingTime(at); err != nil {
		log.Info("booking rejected", zap.Error(err))
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("begin booking tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if ok, err := s.repo.DoctorExists(ctx, tx, doctorID); err != nil {
		log.Error("doctor lookup failed", zap.Error(err))
		return nil, err
	} else if !ok {
		return nil, ErrDoctorNotFound
	}

	if ok, err := s.repo.PatientExists(ctx, tx, patientID); err != nil {
		log.Error("patient lookup failed", zap.Error(err))
		return nil, err
	} else if !ok {
		return nil, ErrPatientNotFound
	}

	if taken, err := s.repo.ExistsForDoctorAtTime(ctx, tx, doctorID, at); err != nil {
		log.Error("doctor conflict check failed", zap.Error(err))
		return nil, err
	} else if taken {
		log.Info("booking rejected", zap.Error(ErrDoctorSlotTaken))
		return nil, ErrDoctorSlotTaken
	}

	if taken, err := s.repo.ExistsForPatientWithDoctorOnDay(ctx, tx, patientID, doctorID, DayOf(at)); err != nil {
		log.Error("patient day conflict check failed", zap.Error(err))
		return nil, err
	} else if taken {
		log.Info("booking rejected", zap.Error(ErrPatientDayTaken))
		return nil, ErrPatientDayTaken
	}

	appt := &Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		StartsAt:  at,
	}

	if err := s.repo.Insert(ctx, tx, appt); err != nil {
		err = mapUniqueViolation(err)
		log.Error("insert failed", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		// A concurrent transaction may win the slot between our check and
		// commit; the unique indexes turn that race into a business error.
		err = mapUniqueViolation(err)
		if errors.Is(err, ErrDoctorSlotTaken) || errors.Is(err, ErrPatientDayTaken) {
			log.Info("booking lost race", zap.Error(err))
			return nil, err
		}
		log.Error("commit failed", zap.Error(err))
		return nil, fmt.Errorf("commit booking tx: %w", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, doctorID, DayOf(at))
	}

	log.Info("appointment booked", zap.String("appointment_id", appt.ID.String()))
	return appt, nil
}

// DailyAgenda returns the full slot grid for one doctor and day, each slot
// marked available unless an appointment occupies it. The day is taken
// field-wise as a calendar date; a parsed "2006-01-02" value names the same
// day regardless of the server zone.
func (s *Service) DailyAgenda(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]AgendaSlot, error) {
	day = DayOf(day)

	if s.cache != nil {
		if slots, ok := s.cache.Get(ctx, doctorID, day); ok {
			return slots, nil
		}
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin agenda tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if ok, err := s.repo.DoctorExists(ctx, tx, doctorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrDoctorNotFound
	}

	occupied, err := s.repo.OccupiedTimesForDoctorOnDay(ctx, tx, doctorID, day)
	if err != nil {
		s.logger.Error("agenda read failed",
			zap.String("doctor_id", doctorID.String()),
			zap.Time("day", day),
			zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit agenda tx: %w", err)
	}

	taken := make(map[int64]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t.Unix()] = struct{}{}
	}

	grid := SlotsForDay(day)
	agenda := make([]AgendaSlot, 0, len(grid))
	for _, t := range grid {
		_, busy := taken[t.Unix()]
		agenda = append(agenda, AgendaSlot{Time: t, Available: !busy})
	}

	if s.cache != nil {
		s.cache.Set(ctx, doctorID, day, agenda)
	}
	return agenda, nil
}

// AppointmentsForDoctor lists every appointment of one doctor, ordered by
// start time.
func (s *Service) AppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]Appointment, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin list tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if ok, err := s.repo.DoctorExists(ctx, tx, doctorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrDoctorNotFound
	}

	appts, err := s.repo.AllForDoctor(ctx, tx, doctorID)
	if err != nil {
		s.logger.Error("list appointments failed",
			zap.String("doctor_id", doctorID.String()),
			zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit list tx: %w", err)
	}
	return appts, nil
}
