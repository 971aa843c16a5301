package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// UserHandler serves member profiles.
type UserHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(accounts AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// HandleGet returns a member's profile with photos.
//
// HTTP: GET /api/users/{userId}
func (h *UserHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetUserByID(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
