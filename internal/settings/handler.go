package settings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/internal/fielderr"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Provider is the read side used by other packages.
type Provider interface {
	Get(ctx context.Context) (Settings, error)
}

// Handler handles HTTP requests for the clinic policy.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

// NewHandler creates a new settings handler.
func NewHandler(store *Store, logger *logging.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Get handles GET /settings requests.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not load settings")
		return
	}
	respond.JSON(w, http.StatusOK, s)
}

// Put handles PUT /settings requests.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var in Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	saved, err := h.store.Save(r.Context(), in)
	if err != nil {
		var fields fielderr.Fields
		if errors.As(err, &fields) {
			respond.ValidationError(w, err)
			return
		}
		h.logger.Error("failed to save settings", "error", err)
		respond.Error(w, http.StatusInternalServerError, "could not save settings")
		return
	}

	h.logger.Info("settings updated")
	respond.JSON(w, http.StatusOK, saved)
}
