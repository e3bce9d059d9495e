package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/talgya/metro/internal/city"
	"github.com/talgya/metro/internal/persistence"
	"github.com/talgya/metro/internal/temporal"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// apiError carries an explicit status for failures decided in a handler.
type apiError struct {
	status int
	kind   string
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &apiError{status: http.StatusBadRequest, kind: "bad_request", msg: msg}
}

// classify maps an error to a status code and an error kind.
func classify(err error) (int, string) {
	var ae *apiError
	var pe *city.InvalidParameterError
	var ce *temporal.EraCoverageError
	switch {
	case errors.As(err, &ae):
		return ae.status, ae.kind
	case errors.As(err, &pe):
		return http.StatusBadRequest, "invalid_parameter"
	case errors.As(err, &ce):
		return http.StatusUnprocessableEntity, "era_coverage"
	case errors.Is(err, persistence.ErrNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError logs err and sends it as an ErrorResponse.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	logger := slog.With("method", r.Method, "path", r.URL.Path, "status", status, "error_type", kind)
	switch {
	case status >= 500:
		logger.Error("request failed", "error", err)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		logger.Warn("request rejected", "error", err)
	default:
		logger.Debug("request rejected", "error", err)
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: kind, Message: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// writeRaw sends an already encoded JSON document.
func writeRaw(w http.ResponseWriter, data []byte, cacheStatus string) {
	w.Header().Set("Content-Type", "application/json")
	if cacheStatus != "" {
		w.Header().Set("X-Cache", cacheStatus)
	}
	w.Write(data)
}
