package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
//	writeJSON(w, http.StatusOK, data)
//	writeError(w, logger, err)
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//
//	{"error": "already_main", "message": "photo abc123 is already the main photo"}

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/datingapp/internal/apperror"
)

// maxJSONBody caps JSON request bodies. Photo uploads have their own limit.
const maxJSONBody = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Offending input field, for validation errors
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be written before the body; changes after the
// first Write are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorMapping pairs a sentinel with its status and machine-readable type.
// Order matters: the first match wins.
var errorMapping = []struct {
	target    error
	status    int
	errorType string
}{
	{apperror.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrForbidden, http.StatusForbidden, "forbidden"},
	{apperror.ErrAlreadyMain, http.StatusBadRequest, "already_main"},
	{apperror.ErrProtectedMainPhoto, http.StatusBadRequest, "protected_main_photo"},
	{apperror.ErrRemoteDelete, http.StatusBadRequest, "remote_delete_failure"},
	{apperror.ErrPersistence, http.StatusBadRequest, "persistence_failure"},
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer returns apperror values; only this function knows how
// they map to HTTP. errors.Is walks the whole chain, so a service may wrap
// an AppError with fmt.Errorf("...: %w", err) and the mapping still holds.
//
// Persistence failures are checked before NotFound/Conflict because their
// chain also carries the repository error that caused them.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, m := range errorMapping {
			if errors.Is(err, m.target) {
				if m.target == apperror.ErrPersistence || m.target == apperror.ErrRemoteDelete {
					logger.Error("request failed", slog.String("kind", m.errorType), slog.String("error", err.Error()))
				}
				writeJSON(w, m.status, ErrorResponse{
					Error:   m.errorType,
					Message: appErr.Message,
					Field:   appErr.Field,
				})
				return
			}
		}
	}

	// NEVER expose internal error details to the client; they can contain
	// SQL, file paths or upstream responses.
	logger.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
