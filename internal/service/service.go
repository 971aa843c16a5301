// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → checks identity, applies the photo policy, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services accept primitives and an explicit auth.Principal, never
// *http.Request, and return apperror values rather than status codes. The
// handler translates those errors to HTTP.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces and a media.Store, not *sqlite.DB
// or a Cloudinary client. Tests pass in-memory fakes (see fakes_test.go).
//
// TRANSACTIONS:
// Multi-row changes go through repository.Transactor. The callback only uses
// the Stores it receives; the pool-bound repositories held by a service are
// for reads outside a transaction.
package service

import (
	"errors"

	"github.com/sakif/datingapp/internal/apperror"
)

// Pagination limits for list endpoints.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// domainErrors pass through a failed transaction unchanged. Anything else
// that aborts a photo transaction is reported as a persistence failure.
var domainErrors = []error{
	apperror.ErrPersistence,
	apperror.ErrUnauthorized,
	apperror.ErrForbidden,
	apperror.ErrAlreadyMain,
	apperror.ErrProtectedMainPhoto,
	apperror.ErrValidation,
}

func asPersistence(message string, err error) error {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return err
		}
	}
	return apperror.PersistenceFailure(message, err)
}
