package records

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/internal/dentists"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/internal/patients"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// PatientLookup resolves patient profiles for ownership checks.
type PatientLookup interface {
	GetByID(ctx context.Context, id int) (*patients.Patient, error)
	GetByUserID(ctx context.Context, userID int) (*patients.Patient, error)
}

// DentistLookup resolves the dentist profile of a logged-in user.
type DentistLookup interface {
	GetByUserID(ctx context.Context, userID int) (*dentists.Dentist, error)
}

// Handler handles HTTP requests for medical records.
type Handler struct {
	service      *Service
	patientByUID PatientLookup
	dentistByUID DentistLookup
	logger       *logging.Logger
}

// NewHandler creates a new records handler.
func NewHandler(service *Service, patientByUID PatientLookup, dentistByUID DentistLookup, logger *logging.Logger) *Handler {
	return &Handler{
		service:      service,
		patientByUID: patientByUID,
		dentistByUID: dentistByUID,
		logger:       logger,
	}
}

// Create handles POST /records. Only dentists and staff open records.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, rec)
}

// Get handles GET /records/{recordID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.loadAuthorized(w, r)
	if !ok {
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

// ForAppointment handles GET /appointments/{appointmentID}/record.
func (h *Handler) ForAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	rec, err := h.service.GetForAppointment(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canRead(r, rec) {
		respond.Error(w, http.StatusForbidden, "not allowed")
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

// Update handles PATCH /records/{recordID}. Only the owning dentist and
// staff edit records; the router gates the roles.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "recordID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid record id")
		return
	}

	var req UpdateRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

// ListForPatient handles GET /patients/{patientID}/records.
func (h *Handler) ListForPatient(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	patientID, err := strconv.Atoi(chi.URLParam(r, "patientID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid patient id")
		return
	}

	if claims.Role == middleware.RolePatient && !h.ownsPatient(r.Context(), claims.UserID, patientID) {
		respond.Error(w, http.StatusForbidden, "not allowed")
		return
	}

	out, err := h.service.ListForPatient(r.Context(), patientID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if claims.Role == middleware.RoleDentist {
		// Dentists only see records they authored.
		d, err := h.dentistByUID.GetByUserID(r.Context(), claims.UserID)
		if err != nil {
			respond.Error(w, http.StatusForbidden, "not allowed")
			return
		}
		own := out[:0]
		for _, rec := range out {
			if rec.DentistID == d.ID {
				own = append(own, rec)
			}
		}
		out = own
	}
	if out == nil {
		out = []*MedicalRecord{}
	}
	respond.JSON(w, http.StatusOK, out)
}

// UploadAttachment handles POST /records/{recordID}/attachments as a
// multipart form with a "file" part.
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "recordID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid record id")
		return
	}

	if err := r.ParseMultipartForm(MaxAttachmentBytes); err != nil {
		respond.ValidationError(w, fielderr.New("file", "The upload exceeds the 10 MB limit."))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.ValidationError(w, fielderr.New("file", "A file part is required."))
		return
	}
	defer file.Close()

	att, err := h.service.AddAttachment(r.Context(), id, header.Filename, file, claims.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, att)
}

// DownloadAttachment handles GET /records/attachments/{attachmentID} and
// redirects to a presigned URL.
func (h *Handler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "attachmentID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid attachment id")
		return
	}

	att, url, err := h.service.AttachmentURL(r.Context(), id, 15*time.Minute)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !h.canReadRecordID(r, att.RecordID) {
		respond.Error(w, http.StatusForbidden, "not allowed")
		return
	}
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// DeleteAttachment handles DELETE /records/attachments/{attachmentID}.
func (h *Handler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "attachmentID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid attachment id")
		return
	}

	if err := h.service.RemoveAttachment(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadAuthorized(w http.ResponseWriter, r *http.Request) (*MedicalRecord, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "recordID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid record id")
		return nil, false
	}

	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	if !h.canRead(r, rec) {
		respond.Error(w, http.StatusForbidden, "not allowed")
		return nil, false
	}
	return rec, true
}

func (h *Handler) canRead(r *http.Request, rec *MedicalRecord) bool {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return false
	}
	switch claims.Role {
	case middleware.RoleAdmin, middleware.RoleClinicAdmin:
		return true
	case middleware.RoleDentist:
		// Dentists only see records they authored.
		d, err := h.dentistByUID.GetByUserID(r.Context(), claims.UserID)
		return err == nil && d.ID == rec.DentistID
	case middleware.RolePatient:
		return h.ownsPatient(r.Context(), claims.UserID, rec.PatientID)
	}
	return false
}

func (h *Handler) canReadRecordID(r *http.Request, recordID int) bool {
	rec, err := h.service.Get(r.Context(), recordID)
	if err != nil {
		return false
	}
	return h.canRead(r, rec)
}

// ownsPatient reports whether the user is the patient or their
// representative.
func (h *Handler) ownsPatient(ctx context.Context, userID, patientID int) bool {
	p, err := h.patientByUID.GetByID(ctx, patientID)
	if err != nil {
		return false
	}
	if p.UserID == userID {
		return true
	}
	return p.RepresentativeUserID != nil && *p.RepresentativeUserID == userID
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRecordNotFound):
		respond.Error(w, http.StatusNotFound, "record not found")
	case errors.Is(err, ErrAttachmentNotFound):
		respond.Error(w, http.StatusNotFound, "attachment not found")
	case errors.Is(err, ErrRecordExists):
		respond.JSON(w, http.StatusConflict, map[string]string{
			"appointment_id": "This appointment already has a medical record.",
		})
	case errors.Is(err, ErrAppointmentNotRecordable):
		respond.JSON(w, http.StatusConflict, map[string]string{
			"appointment_id": "Only completed appointments with a patient take records.",
		})
	case errors.Is(err, ErrAttachmentTooLarge):
		respond.ValidationError(w, fielderr.New("file", "The upload exceeds the 10 MB limit."))
	case errors.Is(err, ErrAttachmentType):
		respond.ValidationError(w, fielderr.New("file", "Accepted file types are pdf, jpg, jpeg, png and webp."))
	default:
		var fields fielderr.Fields
		if errors.As(err, &fields) {
			respond.ValidationError(w, err)
			return
		}
		h.logger.Error("record operation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "operation failed")
	}
}
