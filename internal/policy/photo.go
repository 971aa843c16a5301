// Package policy holds the photo ownership rules.
//
// These functions are pure: they look at the data they are given and either
// return an error or mutate the photos passed in. They never touch the
// database or the media store. That keeps the main-photo invariant testable
// without any fakes, and lets the service decide where the transaction
// boundary goes.
//
// THE MAIN-PHOTO INVARIANT:
// Once a user has at least one photo, at most one of them has IsMain set.
// A user with zero photos has no main photo and no constraint.
package policy

import (
	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/model"
)

// Authorize reports whether the requester may modify resources owned by ownerID.
// Only owners may create, promote or delete their photos.
func Authorize(requesterID, ownerID string) bool {
	return requesterID != "" && requesterID == ownerID
}

// OwnsPhoto reports whether photoID is among the given photos.
func OwnsPhoto(photos []model.Photo, photoID string) bool {
	for _, p := range photos {
		if p.ID == photoID {
			return true
		}
	}
	return false
}

// CanSetMain fails with ErrAlreadyMain if the photo is already the main photo.
func CanSetMain(photo *model.Photo) error {
	if photo.IsMain {
		return apperror.AlreadyMain(photo.ID)
	}
	return nil
}

// CanDelete fails with ErrProtectedMainPhoto if the photo is the main photo.
func CanDelete(photo *model.Photo) error {
	if photo.IsMain {
		return apperror.ProtectedMainPhoto(photo.ID)
	}
	return nil
}

// PromoteToMain clears the current main photo (nil when the user has none)
// and flags target as main.
func PromoteToMain(current, target *model.Photo) {
	if current != nil && current.ID != target.ID {
		current.IsMain = false
	}
	target.IsMain = true
}

// ApplyFirstPhotoRule flags photo as main when none of the existing photos is.
// This is how a new user gets their first main photo; PromoteToMain is only
// used for explicit set-main requests.
func ApplyFirstPhotoRule(existing []model.Photo, photo *model.Photo) {
	for _, p := range existing {
		if p.IsMain {
			photo.IsMain = false
			return
		}
	}
	photo.IsMain = true
}
