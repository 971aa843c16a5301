// Package apperror defines the application's error taxonomy.
//
// Every error the service layer hands back to a handler is (or wraps) an
// *AppError. The AppError carries a human-readable message for the client and
// wraps one of the sentinel errors below so callers can branch with errors.Is:
//
//	if errors.Is(err, apperror.ErrAlreadyMain) { ... }
//
// The HTTP layer (handler.writeError) is the only place that knows how these
// sentinels map onto status codes.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// Photo management outcomes.
	ErrUnauthorized       = errors.New("unauthorized")
	ErrAlreadyMain        = errors.New("already main photo")
	ErrProtectedMainPhoto = errors.New("main photo is protected")
	ErrPersistence        = errors.New("persistence failure")
	ErrRemoteDelete       = errors.New("remote delete failure")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized reports an identity or ownership mismatch. HTTP 401.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// AlreadyMain reports a set-main request for a photo that is already main.
func AlreadyMain(photoID string) *AppError {
	return &AppError{
		Err:     ErrAlreadyMain,
		Message: fmt.Sprintf("photo %s is already the main photo", photoID),
	}
}

// ProtectedMainPhoto reports an attempt to delete the user's main photo.
func ProtectedMainPhoto(photoID string) *AppError {
	return &AppError{
		Err:     ErrProtectedMainPhoto,
		Message: fmt.Sprintf("photo %s is the main photo and cannot be deleted", photoID),
	}
}

// PersistenceFailure reports that a save did not commit. The cause is kept in
// the chain for logging but never shown to the client.
func PersistenceFailure(message string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrPersistence, cause),
		Message: message,
	}
}

// RemoteDeleteFailure reports that the media store did not confirm a deletion.
func RemoteDeleteFailure(publicID, result string) *AppError {
	return &AppError{
		Err:     ErrRemoteDelete,
		Message: fmt.Sprintf("media store refused to delete %s (result %q)", publicID, result),
	}
}
