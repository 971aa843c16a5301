// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Photo is an image a user has uploaded to their profile.
//
// The binary lives in the media store; we only keep the reference to it.
// PublicID is the media store's opaque identifier. It is a pointer because
// photos imported from elsewhere (seed data, external avatars) have a URL but
// were never uploaded by us, so there is nothing to destroy remotely.
//
// IsMain marks the user's representative photo. At most one photo per user
// has IsMain set; the repository enforces this with a partial unique index.
type Photo struct {
	ID          string    `json:"id"          db:"id"`
	UserID      string    `json:"userId"      db:"user_id"`
	URL         string    `json:"url"         db:"url"`
	PublicID    *string   `json:"publicId"    db:"public_id"`
	Description string    `json:"description" db:"description"`
	IsMain      bool      `json:"isMain"      db:"is_main"`
	DateAdded   time.Time `json:"dateAdded"   db:"date_added"`
}

// HasRemoteAsset reports whether the photo references an asset in the media store.
func (p *Photo) HasRemoteAsset() bool {
	return p.PublicID != nil && *p.PublicID != ""
}
