package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/internal/appointments"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/internal/http/middleware"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Presigner turns a stored object key into a short-lived download URL.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Handler exposes the payment endpoints. All of them are staff-only; the
// router gates them behind the admin and clinic-admin roles.
type Handler struct {
	service *Service
	presign Presigner
	logger  *logging.Logger
}

// NewHandler builds the payments HTTP layer. presign may be nil when no
// object store is configured.
func NewHandler(service *Service, presign Presigner, logger *logging.Logger) *Handler {
	return &Handler{service: service, presign: presign, logger: logger}
}

// Create records a payment against an appointment.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.Record(r.Context(), req, claims.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, p)
}

// UploadReceipt handles POST /appointments/{appointmentID}/receipt as a
// multipart form with a "file" part. It responds with the stored object
// key, which the transfer payment is then recorded with.
func (h *Handler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	if err := r.ParseMultipartForm(MaxReceiptBytes); err != nil {
		respond.ValidationError(w, fielderr.New("file", "The upload exceeds the 5 MB limit."))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respond.ValidationError(w, fielderr.New("file", "A file part is required."))
		return
	}
	defer file.Close()

	key, err := h.service.UploadReceipt(r.Context(), id, header.Filename, file)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]string{"receipt_key": key})
}

// Refund reverses a recorded payment.
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "paymentID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid payment id")
		return
	}

	p, err := h.service.Refund(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

// ForAppointment returns the payment of one appointment, with a download
// link for the transfer receipt when an object store is wired.
func (h *Handler) ForAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "appointmentID"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid appointment id")
		return
	}

	p, err := h.service.ForAppointment(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := struct {
		*Payment
		ReceiptURL string `json:"receipt_url,omitempty"`
	}{Payment: p}
	if p.ReceiptKey != "" && h.presign != nil {
		url, err := h.presign.PresignGet(r.Context(), p.ReceiptKey, 15*time.Minute)
		if err != nil {
			h.logger.Error("presign receipt failed", "payment_id", p.ID, "error", err)
		} else {
			out.ReceiptURL = url
		}
	}
	respond.JSON(w, http.StatusOK, out)
}

// List returns payments filtered by status and method.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Status: q.Get("status"),
		Method: q.Get("method"),
	}
	if v := q.Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	out, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list payments failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to list payments")
		return
	}
	if out == nil {
		out = []*Payment{}
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrPaymentNotFound):
		respond.Error(w, http.StatusNotFound, "payment not found")
	case errors.Is(err, appointments.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "appointment not found")
	case errors.Is(err, ErrAlreadyPaid):
		respond.JSON(w, http.StatusConflict, map[string]string{
			"appointment_id": "This appointment is already paid.",
		})
	case errors.Is(err, ErrAppointmentNotPayable):
		respond.JSON(w, http.StatusConflict, map[string]string{
			"appointment_id": "Only confirmed or completed appointments can be paid.",
		})
	case errors.Is(err, ErrReceiptTooLarge):
		respond.ValidationError(w, fielderr.New("file", "The upload exceeds the 5 MB limit."))
	case errors.Is(err, ErrReceiptType):
		respond.ValidationError(w, fielderr.New("file", "Accepted receipt types are pdf, jpg, jpeg and png."))
	case errors.Is(err, ErrNotRefundable):
		respond.JSON(w, http.StatusConflict, map[string]string{
			"status": "Only paid payments can be refunded.",
		})
	default:
		var fields fielderr.Fields
		if errors.As(err, &fields) {
			respond.ValidationError(w, err)
			return
		}
		h.logger.Error("payment operation failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "operation failed")
	}
}
