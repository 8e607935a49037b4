package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"trackd/internal/auth"
	"trackd/internal/core"
)

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// respondError maps the domain error taxonomy onto HTTP statuses:
// validation and extraction failures are the client's problem (400),
// ownership violations are 403, missing records 404, anything unexpected is
// a 500 carrying the raw message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrExtractionFailed):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrUsernameTaken):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrForbidden):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"url", r.URL.Path)
	}

	respondJSON(w, status, errorBody{Error: err.Error()})
}
