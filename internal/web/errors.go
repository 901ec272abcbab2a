package web

// errors.go maps service errors onto HTTP responses. Validation failures come
// back as 422 with the full error list so a form can redisplay every message;
// missing records are 404; anything else is logged and returned as a plain 500.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cashfolio/cashfolio/internal/importer"
	"github.com/cashfolio/cashfolio/internal/logging"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error  string                     `json:"error"`
	Errors []importer.ValidationError `json:"errors,omitempty"`
}

// respondError writes the appropriate HTTP response for err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	log := logging.FromContext(r.Context())

	var verrs importer.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		log.Info("validation failed", "path", r.URL.Path, "errors", verrs.Error())
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  verrs.Error(),
			Errors: verrs,
		})

	case errors.Is(err, importer.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})

	default:
		log.Error("request failed", "path", r.URL.Path, "method", r.Method, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// respondBadRequest writes a 400 with the given message.
func respondBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
