package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/jwebster45206/storyarc/internal/orchestrator"
	"github.com/jwebster45206/storyarc/internal/services"
)

// UserIDHeader scopes story listings and ownership checks.
const UserIDHeader = "X-User-ID"

const maxBodyBytes = 64 << 10

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// writeErr maps orchestrator and generation errors to a status code.
func writeErr(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "Internal server error"
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed",
			"error", err,
			"status", status,
			"method", r.Method,
			"path", r.URL.Path)
	}
	writeError(w, logger, status, msg)
}

func statusFor(err error) int {
	var ge *services.GenerationError
	switch {
	case errors.Is(err, orchestrator.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, orchestrator.ErrStoryNotFound), errors.Is(err, orchestrator.ErrChoiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrStoryBusy), errors.Is(err, orchestrator.ErrStaleChoice):
		return http.StatusConflict
	case errors.As(err, &ge):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
