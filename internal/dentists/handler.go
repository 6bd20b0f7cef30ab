package dentists

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Handler handles HTTP requests for dentists and their agendas.
type Handler struct {
	service *Service
	repo    Repository
	logger  *logging.Logger
}

// NewHandler creates a new dentists handler.
func NewHandler(service *Service, repo Repository, logger *logging.Logger) *Handler {
	return &Handler{service: service, repo: repo, logger: logger}
}

// CreateSpecialty handles POST /specialties requests.
func (h *Handler) CreateSpecialty(w http.ResponseWriter, r *http.Request) {
	var s Specialty
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		respond.ValidationError(w, fielderr.New("name", "Name is required."))
		return
	}

	created, err := h.repo.CreateSpecialty(r.Context(), &s)
	if err != nil {
		if errors.Is(err, ErrDuplicateSpecialty) {
			respond.JSON(w, http.StatusConflict, fielderr.New("name", "This specialty already exists."))
			return
		}
		h.logger.Error("failed to create specialty", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not create specialty")
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

// ListSpecialties handles GET /specialties requests.
func (h *Handler) ListSpecialties(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.ListSpecialties(r.Context())
	if err != nil {
		h.logger.Error("failed to list specialties", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not list specialties")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"specialties": list, "count": len(list)})
}

// CreateDentist handles POST /dentists requests.
func (h *Handler) CreateDentist(w http.ResponseWriter, r *http.Request) {
	var req CreateDentistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	d, err := h.service.Create(r.Context(), &req)
	if err != nil {
		var fields fielderr.Fields
		switch {
		case errors.As(err, &fields):
			respond.ValidationError(w, err)
		case errors.Is(err, users.ErrDuplicateCedula):
			respond.JSON(w, http.StatusConflict, fielderr.New("cedula", "This ID number is already registered."))
		case errors.Is(err, users.ErrDuplicateEmail):
			respond.JSON(w, http.StatusConflict, fielderr.New("email", "This email is already registered."))
		case errors.Is(err, ErrDuplicateLicense):
			respond.JSON(w, http.StatusConflict, fielderr.New("license_number", "This license number is already registered."))
		case errors.Is(err, ErrSpecialtyNotFound):
			respond.JSON(w, http.StatusBadRequest, fielderr.New("specialty_id", "Unknown specialty."))
		default:
			h.logger.Error("failed to create dentist", "error", err)
			respond.Error(w, http.StatusInternalServerError, "could not create dentist")
		}
		return
	}
	respond.JSON(w, http.StatusCreated, d)
}

// ListDentists handles GET /dentists requests.
func (h *Handler) ListDentists(w http.ResponseWriter, r *http.Request) {
	specialtyID, _ := strconv.Atoi(r.URL.Query().Get("specialty_id"))
	list, err := h.repo.List(r.Context(), specialtyID)
	if err != nil {
		h.logger.Error("failed to list dentists", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not list dentists")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"dentists": list, "count": len(list)})
}

// GetDentist handles GET /dentists/{dentistID} requests.
func (h *Handler) GetDentist(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "dentistID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid dentist id")
		return
	}
	d, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrDentistNotFound) {
			respond.Error(w, http.StatusNotFound, "dentist not found")
			return
		}
		h.logger.Error("failed to get dentist", "error", err, "dentist_id", id)
		respond.Error(w, http.StatusInternalServerError, "could not get dentist")
		return
	}
	respond.JSON(w, http.StatusOK, d)
}

// ListSchedules handles GET /dentists/{dentistID}/schedules requests.
func (h *Handler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "dentistID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid dentist id")
		return
	}
	list, err := h.repo.ListSchedules(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list schedules", "error", err, "dentist_id", id)
		respond.Error(w, http.StatusInternalServerError, "could not list schedules")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"schedules": list, "count": len(list)})
}

// CreateSchedule handles POST /dentists/{dentistID}/schedules requests.
// Dentists can manage their own agenda; admins anyone's.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizedDentistID(w, r)
	if !ok {
		return
	}

	var req CreateScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.service.AddSchedule(r.Context(), id, &req)
	if err != nil {
		var fields fielderr.Fields
		switch {
		case errors.As(err, &fields):
			respond.ValidationError(w, err)
		case errors.Is(err, ErrScheduleOverlap):
			respond.JSON(w, http.StatusConflict, fielderr.New("start_time", "This window overlaps an existing one."))
		default:
			h.logger.Error("failed to create schedule", "error", err, "dentist_id", id)
			respond.Error(w, http.StatusInternalServerError, "could not create schedule")
		}
		return
	}
	respond.JSON(w, http.StatusCreated, entry)
}

// DeleteSchedule handles DELETE /dentists/{dentistID}/schedules/{scheduleID}.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizedDentistID(w, r)
	if !ok {
		return
	}
	scheduleID, err := strconv.Atoi(chi.URLParam(r, "scheduleID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid schedule id")
		return
	}

	if err := h.repo.DeleteSchedule(r.Context(), id, scheduleID); err != nil {
		if errors.Is(err, ErrScheduleNotFound) {
			respond.Error(w, http.StatusNotFound, "schedule entry not found")
			return
		}
		h.logger.Error("failed to delete schedule", "error", err, "dentist_id", id)
		respond.Error(w, http.StatusInternalServerError, "could not delete schedule")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateBlocks handles POST /blocks requests (admin only, routed as such).
func (h *Handler) CreateBlocks(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req CreateBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	blocks, err := h.service.BlockDays(r.Context(), &req, claims.UserID)
	if err != nil {
		var fields fielderr.Fields
		switch {
		case errors.As(err, &fields):
			respond.ValidationError(w, err)
		case errors.Is(err, ErrDentistNotFound):
			respond.JSON(w, http.StatusBadRequest, fielderr.New("dentist_id", "Unknown dentist."))
		default:
			h.logger.Error("failed to create blocks", "error", err)
			respond.Error(w, http.StatusInternalServerError, "could not create blocks")
		}
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]any{"blocks": blocks, "count": len(blocks)})
}

// ListBlocks handles GET /blocks requests.
func (h *Handler) ListBlocks(w http.ResponseWriter, r *http.Request) {
	var dentistID *int
	if raw := r.URL.Query().Get("dentist_id"); raw != "" {
		if id, err := strconv.Atoi(raw); err == nil {
			dentistID = &id
		}
	}
	list, err := h.repo.ListBlocks(r.Context(), dentistID)
	if err != nil {
		h.logger.Error("failed to list blocks", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not list blocks")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"blocks": list, "count": len(list)})
}

// DeleteBlockGroup handles DELETE /blocks/{groupID} requests.
func (h *Handler) DeleteBlockGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid group id")
		return
	}

	n, err := h.repo.DeleteBlockGroup(r.Context(), groupID)
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			respond.Error(w, http.StatusNotFound, "block group not found")
			return
		}
		h.logger.Error("failed to delete block group", "error", err, "group_id", groupID)
		respond.Error(w, http.StatusInternalServerError, "could not delete block group")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// authorizedDentistID resolves {dentistID} and lets dentists touch only
// their own agenda.
func (h *Handler) authorizedDentistID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "dentistID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid dentist id")
		return 0, false
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return 0, false
	}
	if claims.Role == middleware.RoleDentist {
		own, err := h.repo.GetByUserID(r.Context(), claims.UserID)
		if err != nil || own.ID != id {
			respond.Error(w, http.StatusForbidden, "insufficient permissions")
			return 0, false
		}
	}
	return id, true
}
