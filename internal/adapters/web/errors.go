package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"receivables-analytics/internal/app"
	"receivables-analytics/internal/refresh"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps application errors to HTTP status codes. Unknown
// errors are logged and reported as 500 without their detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var stageErr *refresh.StageError
	switch {
	case errors.Is(err, app.ErrNotFound):
		writeError(w, r, "no data available", "NOT_FOUND", http.StatusNotFound)
	case errors.Is(err, refresh.ErrTenantBusy):
		writeError(w, r, err.Error(), "REFRESH_IN_PROGRESS", http.StatusConflict)
	case errors.As(err, &stageErr):
		h.logger.WithField("request_id", requestIDFromContext(r.Context())).WithError(err).Error("refresh failed")
		writeError(w, r, "refresh failed at stage "+stageErr.Stage, "REFRESH_FAILED", http.StatusInternalServerError)
	default:
		h.logger.WithField("request_id", requestIDFromContext(r.Context())).WithError(err).Error("request failed")
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
