package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/agendor/agendor-server/internal/account"
	"github.com/agendor/agendor-server/internal/scheduling"
)

// SchedulingService is what the handlers need from the scheduling core.
type SchedulingService interface {
	Book(ctx context.Context, doctorID, patientID uuid.UUID, at time.Time) (*scheduling.Appointment, error)
	DailyAgenda(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]scheduling.AgendaSlot, error)
	AppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]scheduling.Appointment, error)
}

// AccountService is what the handlers need from the account layer.
type AccountService interface {
	RegisterDoctor(ctx context.Context, in account.RegisterDoctorInput) (*account.Doctor, error)
	RegisterPatient(ctx context.Context, in account.RegisterPatientInput) (*account.Patient, error)
	Authenticate(ctx context.Context, email, password string) (*account.Session, error)
	ListDoctors(ctx context.Context) ([]account.Doctor, error)
}

type RouterConfig struct {
	Scheduling    SchedulingService
	Accounts      AccountService
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        *zap.Logger
	JWTSecret     string
	AllowedOrigin string
	RateLimitRPS  float64
	RateLimit     int
	Env           string
	Version       string
}

// NewRouter builds the HTTP surface. The returned stop function ends the
// router's background work and belongs in the server's shutdown path.
func NewRouter(cfg RouterConfig) (http.Handler, func()) {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	limiter := NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimit)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Open endpoints, rate limited against credential stuffing
	r.Group(func(r chi.Router) {
		r.Use(limiter.Middleware)
		r.Post("/api/auth/register/doctor", registerDoctorHandler(cfg.Accounts))
		r.Post("/api/auth/register/patient", registerPatientHandler(cfg.Accounts))
		r.Post("/api/auth/login", loginHandler(cfg.Accounts))
	})

	// Authenticated endpoints
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))
		r.Post("/api/appointments", createAppointmentHandler(cfg.Scheduling))
		r.Get("/api/doctors", listDoctorsHandler(cfg.Accounts))
		r.Get("/api/doctors/{id}/agenda", dailyAgendaHandler(cfg.Scheduling))
		r.Get("/api/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Scheduling))
	})

	return r, limiter.Stop
}
