package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/internal/dentists"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/internal/patients"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// PatientLookup resolves patient profiles for scoping and ownership
// checks.
type PatientLookup interface {
	GetByID(ctx context.Context, id int) (*patients.Patient, error)
	GetByUserID(ctx context.Context, userID int) (*patients.Patient, error)
}

// DentistLookup resolves the dentist profile of a logged-in user.
type DentistLookup interface {
	GetByUserID(ctx context.Context, userID int) (*dentists.Dentist, error)
}

// Handler handles HTTP requests for appointments.
type Handler struct {
	service      *Service
	repo         Repository
	patientByUID PatientLookup
	dentistByUID DentistLookup
	logger       *logging.Logger
}

// NewHandler creates a new appointments handler.
func NewHandler(service *Service, repo Repository, patientByUID PatientLookup, dentistByUID DentistLookup, logger *logging.Logger) *Handler {
	return &Handler{
		service:      service,
		repo:         repo,
		patientByUID: patientByUID,
		dentistByUID: dentistByUID,
		logger:       logger,
	}
}

// Book handles POST /appointments requests. Patients always book for
// themselves; staff pass patient_id explicitly.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	staff := middleware.IsStaff(claims.Role)
	if !staff {
		p, err := h.patientByUID.GetByUserID(r.Context(), claims.UserID)
		if err != nil {
			respond.Error(w, http.StatusForbidden, "no patient profile for this account")
			return
		}
		req.PatientID = p.ID
	} else if req.PatientID <= 0 {
		respond.ValidationError(w, fielderr.New("patient_id", "Patient is required."))
		return
	}

	a, err := h.service.Book(r.Context(), &req, staff)
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, a)
}

// List handles GET /appointments requests. Patients and dentists are
// scoped to their own agenda.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	filter, err := h.listFilter(r)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	switch claims.Role {
	case middleware.RolePatient:
		p, err := h.patientByUID.GetByUserID(r.Context(), claims.UserID)
		if err != nil {
			respond.Error(w, http.StatusForbidden, "no patient profile for this account")
			return
		}
		filter.PatientID = p.ID
	case middleware.RoleDentist:
		d, err := h.dentistByUID.GetByUserID(r.Context(), claims.UserID)
		if err != nil {
			respond.Error(w, http.StatusForbidden, "no dentist profile for this account")
			return
		}
		filter.DentistID = d.ID
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list appointments", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not list appointments")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"appointments": list, "count": len(list)})
}

func (h *Handler) listFilter(r *http.Request) (ListFilter, error) {
	filter := ListFilter{Limit: 100}
	q := r.URL.Query()

	if raw := q.Get("patient_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			filter.PatientID = id
		}
	}
	if raw := q.Get("dentist_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			filter.DentistID = id
		}
	}
	filter.Status = strings.TrimSpace(q.Get("status"))
	if raw := q.Get("from"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, clinicZone)
		if err != nil {
			return filter, errors.New("invalid from date")
		}
		filter.From = d
	}
	if raw := q.Get("to"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, clinicZone)
		if err != nil {
			return filter, errors.New("invalid to date")
		}
		filter.To = d
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 200 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}
	return filter, nil
}

// Get handles GET /appointments/{appointmentID} requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, a)
}

// Confirm handles POST /appointments/{appointmentID}/confirm requests.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	a, claims, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Confirm(r.Context(), a.ID, middleware.IsStaff(claims.Role))
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel handles POST /appointments/{appointmentID}/cancel requests.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, claims, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}

	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	updated, err := h.service.Cancel(r.Context(), a.ID, claims.Role, strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

// Complete handles POST /appointments/{appointmentID}/complete requests
// (staff only, routed as such).
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	a, _, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	updated, err := h.service.Complete(r.Context(), a.ID)
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

// Reschedule handles POST /appointments/{appointmentID}/reschedule.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	a, claims, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}

	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.Reschedule(r.Context(), a.ID, req.Date, req.StartTime, middleware.IsStaff(claims.Role))
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, updated)
}

// CreateMaintenance handles POST /appointments/maintenance requests.
func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req MaintenanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	a, err := h.service.CreateMaintenance(r.Context(), &req)
	if err != nil {
		h.writeRuleError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, a)
}

// Availability handles GET /availability?dentist_id=N&date=YYYY-MM-DD.
func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	dentistID, err := strconv.Atoi(r.URL.Query().Get("dentist_id"))
	if err != nil || dentistID <= 0 {
		respond.Error(w, http.StatusBadRequest, "dentist_id is required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), clinicZone)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	avail, err := h.service.DaySlots(r.Context(), dentistID, date)
	if err != nil {
		h.logger.Error("failed to compute availability", "error", err, "dentist_id", dentistID)
		respond.Error(w, http.StatusInternalServerError, "could not compute availability")
		return
	}
	respond.JSON(w, http.StatusOK, avail)
}

// CreateOperatory handles POST /operatories requests.
func (h *Handler) CreateOperatory(w http.ResponseWriter, r *http.Request) {
	var o Operatory
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		respond.ValidationError(w, fielderr.New("name", "Name is required."))
		return
	}

	created, err := h.repo.CreateOperatory(r.Context(), &o)
	if err != nil {
		if errors.Is(err, ErrDuplicateOperatory) {
			respond.JSON(w, http.StatusConflict, fielderr.New("name", "This operatory already exists."))
			return
		}
		h.logger.Error("failed to create operatory", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not create operatory")
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

// ListOperatories handles GET /operatories requests.
func (h *Handler) ListOperatories(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("all") == ""
	list, err := h.repo.ListOperatories(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("failed to list operatories", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not list operatories")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"operatories": list, "count": len(list)})
}

// loadAuthorized resolves {appointmentID} and scopes patients and
// dentists to their own slots.
func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*Appointment, *middleware.UserClaims, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid appointment id")
		return nil, nil, false
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return nil, nil, false
	}

	a, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "appointment not found")
			return nil, nil, false
		}
		h.logger.Error("failed to get appointment", "error", err, "appointment_id", id)
		respond.Error(w, http.StatusInternalServerError, "could not get appointment")
		return nil, nil, false
	}

	switch claims.Role {
	case middleware.RolePatient:
		if a.PatientID == nil {
			respond.Error(w, http.StatusForbidden, "insufficient permissions")
			return nil, nil, false
		}
		owner, err := h.patientByUID.GetByID(r.Context(), *a.PatientID)
		if err != nil {
			respond.Error(w, http.StatusForbidden, "insufficient permissions")
			return nil, nil, false
		}
		owns := owner.UserID == claims.UserID
		represents := owner.RepresentativeUserID != nil && *owner.RepresentativeUserID == claims.UserID
		if !owns && !represents {
			respond.Error(w, http.StatusForbidden, "insufficient permissions")
			return nil, nil, false
		}
	case middleware.RoleDentist:
		d, err := h.dentistByUID.GetByUserID(r.Context(), claims.UserID)
		if err != nil || a.DentistID != d.ID {
			respond.Error(w, http.StatusForbidden, "insufficient permissions")
			return nil, nil, false
		}
	}
	return a, claims, true
}

// writeRuleError maps booking rule violations to field-level messages.
func (h *Handler) writeRuleError(w http.ResponseWriter, err error) {
	var fields fielderr.Fields
	switch {
	case errors.As(err, &fields):
		respond.ValidationError(w, err)
	case errors.Is(err, ErrNotFound):
		respond.Error(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrOperatoryNotFound):
		respond.JSON(w, http.StatusBadRequest, fielderr.New("operatory_id", "Unknown or inactive operatory."))
	case errors.Is(err, ErrOutsideSchedule):
		respond.JSON(w, http.StatusBadRequest, fielderr.New("start_time", "The dentist does not work at this time."))
	case errors.Is(err, ErrDayBlocked):
		respond.JSON(w, http.StatusBadRequest, fielderr.New("date", "The clinic is closed on this date."))
	case errors.Is(err, ErrSlotTaken):
		respond.JSON(w, http.StatusConflict, fielderr.New("start_time", "This slot is no longer available."))
	case errors.Is(err, ErrDailyLimit):
		respond.JSON(w, http.StatusConflict, fielderr.New("date", "You already have an appointment on this day."))
	case errors.Is(err, ErrWeeklyLimit):
		respond.JSON(w, http.StatusConflict, fielderr.New("date", "You reached the weekly appointment limit."))
	case errors.Is(err, ErrSelfBooking):
		respond.JSON(w, http.StatusConflict, fielderr.New("dentist_id", "A dentist cannot be booked as their own patient."))
	case errors.Is(err, ErrActiveWithDentist):
		respond.JSON(w, http.StatusConflict, fielderr.New("dentist_id", "You already have an active appointment with this dentist."))
	case errors.Is(err, ErrCooldown):
		respond.JSON(w, http.StatusConflict, fielderr.New("date", "You must wait before booking again after a cancellation."))
	case errors.Is(err, ErrConfirmWindowClosed):
		respond.Error(w, http.StatusConflict, "the confirmation window is not open")
	case errors.Is(err, ErrRescheduleLimit):
		respond.Error(w, http.StatusConflict, "this appointment cannot be rescheduled again")
	case errors.Is(err, ErrImmutableStatus):
		respond.Error(w, http.StatusConflict, "this action is not allowed in the current state")
	default:
		h.logger.Error("appointment operation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "operation failed")
	}
}
