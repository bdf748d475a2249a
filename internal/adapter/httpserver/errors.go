package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/litecove/litecove/internal/core/domain"
)

// errorResponse is the JSON error envelope for every API failure.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps the error taxonomy to HTTP status codes:
// not found 404, validation 422, malformed constraint name 400,
// transient upstream failure 502, everything else 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrValidationFailed):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrConstraintNameMalformed):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrTransientIO):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		s.logger.Error("internal error", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func retryAfterSeconds(d time.Duration) string {
	return fmt.Sprintf("%d", int(d.Seconds())+1)
}
