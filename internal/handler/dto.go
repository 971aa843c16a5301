package handler

import (
	"time"

	"github.com/sakif/datingapp/internal/model"
)

// DTOs decouple the wire format from the model. Fields like PasswordHash,
// PublicID and GitHubID never leave the server.

// PhotoResponse is a photo as clients see it.
type PhotoResponse struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Description string    `json:"description"`
	IsMain      bool      `json:"isMain"`
	DateAdded   time.Time `json:"dateAdded"`
}

// UserResponse is a member profile with photos.
type UserResponse struct {
	ID         string          `json:"id"`
	Username   string          `json:"username"`
	KnownAs    string          `json:"knownAs"`
	PhotoURL   string          `json:"photoUrl"`
	Roles      []string        `json:"roles"`
	Photos     []PhotoResponse `json:"photos"`
	CreatedAt  time.Time       `json:"createdAt"`
	LastActive time.Time       `json:"lastActive"`
}

// UserWithRolesResponse is a row of the admin role table.
type UserWithRolesResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// LoginResponse is returned by the login endpoint.
type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

func toPhotoResponse(p *model.Photo) PhotoResponse {
	return PhotoResponse{
		ID:          p.ID,
		URL:         p.URL,
		Description: p.Description,
		IsMain:      p.IsMain,
		DateAdded:   p.DateAdded,
	}
}

func toPhotoResponses(photos []model.Photo) []PhotoResponse {
	out := make([]PhotoResponse, 0, len(photos))
	for i := range photos {
		out = append(out, toPhotoResponse(&photos[i]))
	}
	return out
}

func toUserResponse(u *model.User) UserResponse {
	resp := UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		KnownAs:    u.KnownAs,
		Roles:      u.Roles,
		Photos:     toPhotoResponses(u.Photos),
		CreatedAt:  u.CreatedAt,
		LastActive: u.LastActive,
	}
	if resp.Roles == nil {
		resp.Roles = []string{}
	}
	if main := u.MainPhoto(); main != nil {
		resp.PhotoURL = main.URL
	}
	return resp
}

func toUserWithRolesResponses(users []model.User) []UserWithRolesResponse {
	out := make([]UserWithRolesResponse, 0, len(users))
	for _, u := range users {
		roles := u.Roles
		if roles == nil {
			roles = []string{}
		}
		out = append(out, UserWithRolesResponse{ID: u.ID, Username: u.Username, Roles: roles})
	}
	return out
}
