// Package repository declares the persistence interfaces the services depend on.
//
// ONE INTERFACE PER AGGREGATE:
// Rather than a single catch-all repository, each aggregate gets its own
// narrow interface (users, photos, roles). A service only receives the
// interfaces it actually uses, and test fakes only implement what matters.
//
// TRANSACTIONS:
// Operations that must change several rows atomically (promoting a main
// photo, adding a photo under the first-photo rule) run inside
// Transactor.WithinTx. The callback receives a Stores value whose
// repositories are bound to the transaction; returning nil commits, returning
// an error rolls back.
package repository

import (
	"context"
	"time"

	"github.com/sakif/datingapp/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// UserRepository reads and writes user accounts.
type UserRepository interface {
	// CreateUser inserts a password account. Returns apperror.ErrConflict if
	// the username is taken.
	CreateUser(ctx context.Context, user *model.User) error
	// UpsertGitHubUser inserts or refreshes the account linked to user.GitHubID.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	// GetUserByID returns the user with its roles. Returns apperror.ErrNotFound.
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	TouchLastActive(ctx context.Context, id string, at time.Time) error
	// ListUsers returns users with their roles, ordered by username.
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)
}

// PhotoRepository reads and writes profile photos.
type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo *model.Photo) error
	GetPhoto(ctx context.Context, id string) (*model.Photo, error)
	ListPhotosForUser(ctx context.Context, userID string) ([]model.Photo, error)
	// GetMainPhotoForUser returns apperror.ErrNotFound when the user has no main photo.
	GetMainPhotoForUser(ctx context.Context, userID string) (*model.Photo, error)
	// UpdatePhoto persists Description and IsMain.
	UpdatePhoto(ctx context.Context, photo *model.Photo) error
	DeletePhoto(ctx context.Context, id string) error
}

// RoleRepository manages role membership.
type RoleRepository interface {
	GetRoles(ctx context.Context, userID string) ([]string, error)
	// SetRoles replaces the user's roles with exactly the given set.
	SetRoles(ctx context.Context, userID string, roles []string) error
}

// Stores bundles repositories that share one transaction.
type Stores struct {
	Users  UserRepository
	Photos PhotoRepository
	Roles  RoleRepository
}

// Transactor runs a unit of work atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
