package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/internal/users"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Handler handles HTTP requests for patients.
type Handler struct {
	service *Service
	repo    Repository
	logger  *logging.Logger
}

// NewHandler creates a new patients handler.
func NewHandler(service *Service, repo Repository, logger *logging.Logger) *Handler {
	return &Handler{service: service, repo: repo, logger: logger}
}

// SelfRegister handles POST /auth/register requests (public, adults only).
func (h *Handler) SelfRegister(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, true)
}

// CreatePatient handles POST /patients requests (staff, minors allowed).
func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, false)
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, selfService bool) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.Register(r.Context(), &req, selfService)
	if err != nil {
		var fields fielderr.Fields
		switch {
		case errors.As(err, &fields):
			respond.ValidationError(w, err)
		case errors.Is(err, users.ErrDuplicateCedula):
			respond.JSON(w, http.StatusConflict, fielderr.New("cedula", "This ID number is already registered."))
		case errors.Is(err, users.ErrDuplicateEmail):
			respond.JSON(w, http.StatusConflict, fielderr.New("email", "This email is already registered."))
		case errors.Is(err, ErrRepresentativeNotFound):
			respond.JSON(w, http.StatusBadRequest, fielderr.New("representative_user_id", "Representative must be an active adult patient."))
		default:
			h.logger.Error("failed to register patient", "error", err)
			respond.Error(w, http.StatusInternalServerError, "could not register patient")
		}
		return
	}

	respond.JSON(w, http.StatusCreated, p)
}

// ListPatientsResponse is the response for listing patients.
type ListPatientsResponse struct {
	Patients []*Patient `json:"patients"`
	Count    int        `json:"count"`
}

// ListPatients handles GET /patients requests.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Limit: 50, Search: strings.TrimSpace(r.URL.Query().Get("search"))}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	list, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list patients", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not list patients")
		return
	}
	respond.JSON(w, http.StatusOK, ListPatientsResponse{Patients: list, Count: len(list)})
}

// GetPatient handles GET /patients/{patientID} requests. Patients can only
// see their own profile; staff can see anyone's.
func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// Me handles GET /patients/me requests for the logged-in patient.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	p, err := h.repo.GetByUserID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			respond.Error(w, http.StatusNotFound, "patient profile not found")
			return
		}
		h.logger.Error("failed to load own profile", "error", err, "user_id", claims.UserID)
		respond.Error(w, http.StatusInternalServerError, "could not load profile")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// UpdatePatient handles PATCH /patients/{patientID} requests.
func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Apply(p); err != nil {
		respond.ValidationError(w, err)
		return
	}
	if err := h.repo.Update(r.Context(), p); err != nil {
		h.logger.Error("failed to update patient", "error", err, "patient_id", p.ID)
		respond.Error(w, http.StatusInternalServerError, "could not update patient")
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// GetBackground handles GET /patients/{patientID}/background requests.
func (h *Handler) GetBackground(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	b, err := h.repo.GetBackground(r.Context(), p.ID)
	if err != nil {
		if errors.Is(err, ErrBackgroundNotFound) {
			respond.Error(w, http.StatusNotFound, "no medical background on file")
			return
		}
		h.logger.Error("failed to load background", "error", err, "patient_id", p.ID)
		respond.Error(w, http.StatusInternalServerError, "could not load background")
		return
	}
	respond.JSON(w, http.StatusOK, b)
}

// PutBackground handles PUT /patients/{patientID}/background requests.
func (h *Handler) PutBackground(w http.ResponseWriter, r *http.Request) {
	p, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}

	var b Background
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	b.PatientID = p.ID
	if err := h.repo.UpsertBackground(r.Context(), &b); err != nil {
		h.logger.Error("failed to save background", "error", err, "patient_id", p.ID)
		respond.Error(w, http.StatusInternalServerError, "could not save background")
		return
	}
	respond.JSON(w, http.StatusOK, b)
}

// loadAuthorized resolves {patientID} and enforces that patients only
// reach their own profile.
func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*Patient, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "patientID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid patient id")
		return nil, false
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			respond.Error(w, http.StatusNotFound, "patient not found")
			return nil, false
		}
		h.logger.Error("failed to get patient", "error", err, "patient_id", id)
		respond.Error(w, http.StatusInternalServerError, "could not get patient")
		return nil, false
	}

	if !middleware.IsStaff(claims.Role) {
		owns := p.UserID == claims.UserID
		represents := p.RepresentativeUserID != nil && *p.RepresentativeUserID == claims.UserID
		if !owns && !represents {
			respond.Error(w, http.StatusForbidden, "insufficient permissions")
			return nil, false
		}
	}
	return p, true
}
