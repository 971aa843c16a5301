// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered member of the dating app.
//
// Accounts are created either by username/password registration or by the
// GitHub OAuth flow. An OAuth-only account has an empty PasswordHash and
// cannot log in with a password; a password account has a nil GitHubID.
//
// WHY GitHubID *int64?
// The column is UNIQUE but most users never link GitHub. A pointer maps to a
// NULL column, and SQLite allows any number of NULLs under a UNIQUE constraint.
//
// Photos and Roles are not columns on the users table. The repository fills
// them in when the caller asks for them (see GetUserWithPhotos).
type User struct {
	ID           string    `json:"id"         db:"id"`
	Username     string    `json:"username"   db:"username"`
	KnownAs      string    `json:"knownAs"    db:"known_as"`
	PasswordHash string    `json:"-"          db:"password_hash"`
	GitHubID     *int64    `json:"githubId"   db:"github_id"`
	Roles        []string  `json:"roles"`
	Photos       []Photo   `json:"photos"`
	CreatedAt    time.Time `json:"createdAt"  db:"created_at"`
	LastActive   time.Time `json:"lastActive" db:"last_active"`
}

// MainPhoto returns the user's main photo, or nil if none is flagged.
func (u *User) MainPhoto() *Photo {
	for i := range u.Photos {
		if u.Photos[i].IsMain {
			return &u.Photos[i]
		}
	}
	return nil
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
