package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
)

// AdminService is the subset of *service.AdminService the handler calls.
type AdminService interface {
	ListUsersWithRoles(ctx context.Context, p auth.Principal, opts repository.ListOptions) ([]model.User, error)
	EditRoles(ctx context.Context, p auth.Principal, userID string, roleNames []string) ([]string, error)
}

// AdminHandler backs the role management screen.
//
// Routes (behind RequireAuth + RequireRole(Admin)):
//
//	GET  /admin/users-with-roles          → HandleUsersWithRoles
//	POST /admin/edit-roles/{userId}       → HandleEditRoles
type AdminHandler struct {
	admin  AdminService
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin AdminService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, logger: logger}
}

type editRolesRequest struct {
	RoleNames []string `json:"roleNames"`
}

// HandleUsersWithRoles lists users and their roles.
//
// HTTP: GET /api/admin/users-with-roles?limit=20&offset=0
func (h *AdminHandler) HandleUsersWithRoles(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	users, err := h.admin.ListUsersWithRoles(r.Context(), principalFrom(r), opts)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserWithRolesResponses(users))
}

// HandleEditRoles replaces a user's roles.
//
// HTTP: POST /api/admin/edit-roles/{userId}
// REQUEST BODY: {"roleNames": ["Member", "Moderator"]}
// RESPONSE: 200 with the user's roles after the change
func (h *AdminHandler) HandleEditRoles(w http.ResponseWriter, r *http.Request) {
	var req editRolesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	roles, err := h.admin.EditRoles(r.Context(), principalFrom(r), chi.URLParam(r, "userId"), req.RoleNames)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, roles)
}

// listOptions parses ?limit= and ?offset=. Missing values are zero; the
// service applies defaults and caps.
func listOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("limit", "limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("offset", "offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	return opts, nil
}
