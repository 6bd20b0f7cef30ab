package reports

import (
	"net/http"
	"time"

	"github.com/oralflow/oralflow-api/internal/api/respond"
	"github.com/oralflow/oralflow-api/pkg/logging"
)

// Handler exposes the reporting endpoints. The router gates them behind
// the staff roles.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a new reports handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Overview handles GET /reports/overview?from=YYYY-MM-DD&to=YYYY-MM-DD.
// The range defaults to the last 30 days.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	to := time.Now().UTC().Truncate(24 * time.Hour)
	from := to.AddDate(0, 0, -30)

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			respond.Error(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		respond.Error(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	out, err := h.service.Overview(r.Context(), from, to)
	if err != nil {
		h.logger.Error("overview report failed", "error", err)
		respond.Error(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	respond.JSON(w, http.StatusOK, out)
}
