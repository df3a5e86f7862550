// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/medical-calendar/backend/internal/schedule"
	"github.com/medical-calendar/backend/internal/session"
)

// ErrorResponse represents a standardized API error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response failed", "error", err)
	}
}

// WriteError writes a JSON error response with the given status code.
func WriteError(w http.ResponseWriter, status int, errCode, message string) {
	WriteJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
	})
}

// WriteErrorWithDetails writes a JSON error response with additional details.
func WriteErrorWithDetails(w http.ResponseWriter, status int, errCode, message string, details any) {
	WriteJSON(w, status, ErrorResponse{
		Error:   errCode,
		Message: message,
		Details: details,
	})
}

// WriteServiceError maps a calendar or session error to its HTTP response.
func WriteServiceError(w http.ResponseWriter, err error) {
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteErrorWithDetails(w, http.StatusBadRequest, ErrValidation, verr.Message, map[string]string{"field": verr.Field})
	case errors.Is(err, schedule.ErrEventNotFound):
		WriteError(w, http.StatusNotFound, ErrNotFound, err.Error())
	case errors.Is(err, schedule.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, ErrConflict, err.Error())
	case errors.Is(err, session.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Invalid email or password")
	case errors.Is(err, session.ErrUnauthenticated):
		WriteError(w, http.StatusUnauthorized, ErrUnauthorized, "Authentication required")
	default:
		slog.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
	}
}

// ErrorRecovery is middleware that recovers from panics and returns a 500 error.
func ErrorRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("panic recovered", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))
				WriteError(w, http.StatusInternalServerError, ErrInternalError, "An unexpected error occurred")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Common error codes
const (
	ErrNotFound      = "not_found"
	ErrBadRequest    = "bad_request"
	ErrConflict      = "conflict"
	ErrInternalError = "internal_error"
	ErrValidation    = "validation_error"
	ErrUnauthorized  = "unauthorized"
	ErrTooLarge      = "payload_too_large"
)
