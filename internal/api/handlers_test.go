package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendor/agendor-server/internal/account"
	"github.com/agendor/agendor-server/internal/scheduling"
)

type stubScheduling struct {
	bookResult *scheduling.Appointment
	bookErr    error
	agenda     []scheduling.AgendaSlot
	agendaErr  error
	appts      []scheduling.Appointment
}

func (s *stubScheduling) Book(ctx context.Context, doctorID, patientID uuid.UUID, at time.Time) (*scheduling.Appointment, error) {
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	return s.bookResult, nil
}

func (s *stubScheduling) DailyAgenda(ctx context.Context, doctorID uuid.UUID, day time.Time) ([]scheduling.AgendaSlot, error) {
	if s.agendaErr != nil {
		return nil, s.agendaErr
	}
	return s.agenda, nil
}

func (s *stubScheduling) AppointmentsForDoctor(ctx context.Context, doctorID uuid.UUID) ([]scheduling.Appointment, error) {
	return s.appts, nil
}

type stubAccounts struct {
	session     *account.Session
	authErr     error
	doctors     []account.Doctor
	registerErr error
}

func (s *stubAccounts) RegisterDoctor(ctx context.Context, in account.RegisterDoctorInput) (*account.Doctor, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &account.Doctor{ID: uuid.New(), Name: in.Name}, nil
}

func (s *stubAccounts) RegisterPatient(ctx context.Context, in account.RegisterPatientInput) (*account.Patient, error) {
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &account.Patient{ID: uuid.New(), Name: in.Name}, nil
}

func (s *stubAccounts) Authenticate(ctx context.Context, email, password string) (*account.Session, error) {
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.session, nil
}

func (s *stubAccounts) ListDoctors(ctx context.Context) ([]account.Doctor, error) {
	return s.doctors, nil
}

func postJSON(t *testing.T, handler http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCreateAppointmentHandler(t *testing.T) {
	doctorID := uuid.New()
	patientID := uuid.New()
	startsAt := time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)
	svc := &stubScheduling{bookResult: &scheduling.Appointment{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		PatientID: patientID,
		StartsAt:  startsAt,
	}}

	rec := postJSON(t, createAppointmentHandler(svc), "/api/appointments", map[string]string{
		"doctor_id":  doctorID.String(),
		"patient_id": patientID.String(),
		"datetime":   "2026-09-07T09:00:00Z",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"datetime":"2026-09-07T09:00:00"`)

	var resp AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, doctorID, resp.DoctorID)
	assert.Equal(t, patientID, resp.PatientID)
}

func TestCreateAppointmentHandlerBadInput(t *testing.T) {
	svc := &stubScheduling{}

	cases := []struct {
		name string
		body map[string]string
	}{
		{"bad doctor id", map[string]string{"doctor_id": "nope", "patient_id": uuid.NewString(), "datetime": "2026-09-07T09:00:00Z"}},
		{"bad patient id", map[string]string{"doctor_id": uuid.NewString(), "patient_id": "nope", "datetime": "2026-09-07T09:00:00Z"}},
		{"missing datetime", map[string]string{"doctor_id": uuid.NewString(), "patient_id": uuid.NewString()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, createAppointmentHandler(svc), "/api/appointments", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	createAppointmentHandler(svc)(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAppointmentHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{scheduling.ErrDoctorNotFound, http.StatusNotFound, "doctor_not_found"},
		{scheduling.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
		{scheduling.ErrWeekendNotAllowed, http.StatusUnprocessableEntity, "weekend_not_allowed"},
		{scheduling.ErrOutsideServiceWindow, http.StatusUnprocessableEntity, "outside_service_window"},
		{scheduling.ErrSlotMisaligned, http.StatusUnprocessableEntity, "slot_misaligned"},
		{scheduling.ErrDoctorSlotTaken, http.StatusConflict, "doctor_slot_taken"},
		{scheduling.ErrPatientDayTaken, http.StatusConflict, "patient_day_taken"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := &stubScheduling{bookErr: tc.err}
			rec := postJSON(t, createAppointmentHandler(svc), "/api/appointments", map[string]string{
				"doctor_id":  uuid.NewString(),
				"patient_id": uuid.NewString(),
				"datetime":   "2026-09-07T09:00:00Z",
			})

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error)
		})
	}
}

func TestInternalErrorsStayOpaque(t *testing.T) {
	internal := errors.New("pq: connection refused to 10.0.0.5:5432")

	rec := postJSON(t, createAppointmentHandler(&stubScheduling{bookErr: internal}), "/api/appointments", map[string]string{
		"doctor_id":  uuid.NewString(),
		"patient_id": uuid.NewString(),
		"datetime":   "2026-09-07T09:00:00Z",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error)

	rec = postJSON(t, loginHandler(&stubAccounts{authErr: internal}), "/api/auth/login", map[string]string{
		"email":    "bruno@example.com",
		"password": "pw",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")

	rec = postJSON(t, registerPatientHandler(&stubAccounts{registerErr: internal}), "/api/auth/register/patient", map[string]string{
		"name":        "Bruno Lima",
		"email":       "bruno@example.com",
		"national_id": "123.456.789-00",
		"password":    "pw",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestDailyAgendaHandler(t *testing.T) {
	doctorID := uuid.New()
	svc := &stubScheduling{agenda: []scheduling.AgendaSlot{
		{Time: time.Date(2026, time.September, 7, 8, 0, 0, 0, time.UTC), Available: true},
		{Time: time.Date(2026, time.September, 7, 8, 30, 0, 0, time.UTC), Available: false},
	}}

	r := chi.NewRouter()
	r.Get("/api/doctors/{id}/agenda", dailyAgendaHandler(svc))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/doctors/%s/agenda?day=2026-09-07", doctorID), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp AgendaResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, doctorID, resp.DoctorID)
	assert.Equal(t, "2026-09-07", resp.Day)
	require.Len(t, resp.Slots, 2)
	assert.True(t, resp.Slots[0].Available)
	assert.False(t, resp.Slots[1].Available)
	assert.Contains(t, rec.Body.String(), `"time":"2026-09-07T08:00:00"`)
}

func TestDailyAgendaHandlerBadDay(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/doctors/{id}/agenda", dailyAgendaHandler(&stubScheduling{}))

	for _, target := range []string{
		fmt.Sprintf("/api/doctors/%s/agenda", uuid.New()),
		fmt.Sprintf("/api/doctors/%s/agenda?day=07-09-2026", uuid.New()),
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestListDoctorAppointmentsHandler(t *testing.T) {
	doctorID := uuid.New()
	svc := &stubScheduling{appts: []scheduling.Appointment{
		{ID: uuid.New(), DoctorID: doctorID, PatientID: uuid.New(), StartsAt: time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC)},
	}}

	r := chi.NewRouter()
	r.Get("/api/doctors/{id}/appointments", listDoctorAppointmentsHandler(svc))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/doctors/%s/appointments", doctorID), nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []AppointmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, doctorID, resp[0].DoctorID)
}

func TestRegisterPatientHandlerMissingFields(t *testing.T) {
	rec := postJSON(t, registerPatientHandler(&stubAccounts{}), "/api/auth/register/patient", map[string]string{
		"name":  "Bruno Lima",
		"email": "bruno@example.com",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandlerConflicts(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{account.ErrEmailTaken, "email_taken"},
		{account.ErrNationalIDTaken, "national_id_taken"},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			svc := &stubAccounts{registerErr: tc.err}
			rec := postJSON(t, registerPatientHandler(svc), "/api/auth/register/patient", map[string]string{
				"name":        "Bruno Lima",
				"email":       "bruno@example.com",
				"national_id": "123.456.789-00",
				"password":    "pw",
			})

			assert.Equal(t, http.StatusConflict, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.code, body.Error)
		})
	}
}

func TestLoginHandler(t *testing.T) {
	userID := uuid.New()
	patientID := uuid.New()
	svc := &stubAccounts{session: &account.Session{
		Token:     "signed-token",
		UserID:    userID,
		Role:      account.RolePatient,
		PatientID: &patientID,
	}}

	rec := postJSON(t, loginHandler(svc), "/api/auth/login", map[string]string{
		"email":    "bruno@example.com",
		"password": "pw",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "signed-token", resp.Token)
	assert.Equal(t, userID, resp.UserID)
	assert.Equal(t, string(account.RolePatient), resp.Role)
	require.NotNil(t, resp.PatientID)
	assert.Equal(t, patientID, *resp.PatientID)
}

func TestLoginHandlerBadCredentials(t *testing.T) {
	svc := &stubAccounts{authErr: account.ErrInvalidCredentials}
	rec := postJSON(t, loginHandler(svc), "/api/auth/login", map[string]string{
		"email":    "bruno@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func signTestToken(t *testing.T, secret string, claims account.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestAuthMiddleware(t *testing.T) {
	const secret = "handler-test-secret"
	patientID := uuid.New()

	var seen *account.Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetClaims(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	protected := AuthMiddleware(secret)(next)

	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := signTestToken(t, secret, account.Claims{
		Role:      account.RolePatient,
		PatientID: &patientID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	req = httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, account.RolePatient, seen.Role)
	require.NotNil(t, seen.PatientID)
	assert.Equal(t, patientID, *seen.PatientID)
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	const secret = "handler-test-secret"
	token := signTestToken(t, secret, account.Claims{
		Role: account.RolePatient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})

	protected := AuthMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/doctors", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
