package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/agendor/agendor-server/internal/account"
	"github.com/agendor/agendor-server/internal/scheduling"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func createAppointmentHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		if req.DateTime.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_datetime", "datetime is required (RFC 3339)")
			return
		}

		appt, err := svc.Book(r.Context(), doctorID, patientID, req.DateTime)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{
			ID:        appt.ID,
			DoctorID:  appt.DoctorID,
			PatientID: appt.PatientID,
			DateTime:  WallTime(appt.StartsAt),
		})
	}
}

func dailyAgendaHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		day, err := time.Parse("2006-01-02", r.URL.Query().Get("day"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_day", "day must look like 2006-01-02")
			return
		}

		slots, err := svc.DailyAgenda(r.Context(), doctorID, day)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := AgendaResponse{
			DoctorID: doctorID,
			Day:      day.Format("2006-01-02"),
			Slots:    make([]AgendaSlotResponse, 0, len(slots)),
		}
		for _, s := range slots {
			resp.Slots = append(resp.Slots, AgendaSlotResponse{
				Time:      WallTime(s.Time),
				Available: s.Available,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listDoctorAppointmentsHandler(svc SchedulingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "id must be a valid UUID")
			return
		}

		appts, err := svc.AppointmentsForDoctor(r.Context(), doctorID)
		if err != nil {
			handleBookingError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, AppointmentResponse{
				ID:        a.ID,
				DoctorID:  a.DoctorID,
				PatientID: a.PatientID,
				DateTime:  WallTime(a.StartsAt),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listDoctorsHandler(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}

		resp := make([]DoctorResponse, 0, len(doctors))
		for _, d := range doctors {
			resp = append(resp, DoctorResponse{ID: d.ID, Name: d.Name, Specialty: d.Specialty})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func registerDoctorHandler(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterDoctorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" || req.Email == "" || req.LicenseNumber == "" || req.Specialty == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "name, email, license_number, specialty and password are required")
			return
		}

		doctor, err := svc.RegisterDoctor(r.Context(), account.RegisterDoctorInput{
			Name:          req.Name,
			Email:         req.Email,
			Phone:         req.Phone,
			LicenseNumber: req.LicenseNumber,
			Specialty:     req.Specialty,
			Password:      req.Password,
		})
		if err != nil {
			handleRegisterError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, RegisterResponse{ID: doctor.ID})
	}
}

func registerPatientHandler(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Name == "" || req.Email == "" || req.NationalID == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "missing_fields", "name, email, national_id and password are required")
			return
		}

		patient, err := svc.RegisterPatient(r.Context(), account.RegisterPatientInput{
			Name:       req.Name,
			Email:      req.Email,
			Phone:      req.Phone,
			NationalID: req.NationalID,
			Password:   req.Password,
		})
		if err != nil {
			handleRegisterError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, RegisterResponse{ID: patient.ID})
	}
}

func loginHandler(svc AccountService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		session, err := svc.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			if errors.Is(err, account.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is wrong")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
			return
		}

		writeJSON(w, http.StatusOK, LoginResponse{
			Token:     session.Token,
			UserID:    session.UserID,
			Role:      string(session.Role),
			DoctorID:  session.DoctorID,
			PatientID: session.PatientID,
		})
	}
}

func handleBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrWeekendNotAllowed):
		writeError(w, http.StatusUnprocessableEntity, "weekend_not_allowed", err.Error())
	case errors.Is(err, scheduling.ErrOutsideServiceWindow):
		writeError(w, http.StatusUnprocessableEntity, "outside_service_window", err.Error())
	case errors.Is(err, scheduling.ErrSlotMisaligned):
		writeError(w, http.StatusUnprocessableEntity, "slot_misaligned", err.Error())
	case errors.Is(err, scheduling.ErrDoctorSlotTaken):
		writeError(w, http.StatusConflict, "doctor_slot_taken", err.Error())
	case errors.Is(err, scheduling.ErrPatientDayTaken):
		writeError(w, http.StatusConflict, "patient_day_taken", err.Error())
	default:
		// storage and driver errors are logged by the services; clients only
		// see an opaque failure
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}

func handleRegisterError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, account.ErrNationalIDTaken):
		writeError(w, http.StatusConflict, "national_id_taken", err.Error())
	case errors.Is(err, account.ErrLicenseTaken):
		writeError(w, http.StatusConflict, "license_taken", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
