package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/jwebster45206/replay-engine/internal/storage"
	"github.com/jwebster45206/replay-engine/pkg/parser"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

// statusFor maps pipeline and registry errors to HTTP status codes.
func statusFor(err error) int {
	var missing *parser.MissingInputError
	var invalid *parser.InvalidInputError
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeFailure reports err with the status statusFor assigns. Server errors are logged and
// their text is not exposed.
func writeFailure(w http.ResponseWriter, logger *slog.Logger, err error, action string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("Failed to "+action, "error", err)
		writeError(w, logger, status, "Failed to "+action)
		return
	}
	writeError(w, logger, status, err.Error())
}
