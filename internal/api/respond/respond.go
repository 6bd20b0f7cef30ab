// Package respond centralizes JSON response encoding for HTTP handlers.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oralflow/oralflow-api/internal/fielderr"
)

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes a {"detail": message} body.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"detail": message})
}

// ValidationError renders fielderr.Fields as {"field": "message"} with
// status 400. Other errors fall through to a plain 400 detail.
func ValidationError(w http.ResponseWriter, err error) {
	var fields fielderr.Fields
	if errors.As(err, &fields) {
		JSON(w, http.StatusBadRequest, fields)
		return
	}
	Error(w, http.StatusBadRequest, err.Error())
}
