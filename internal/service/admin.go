package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
)

// AdminService lets administrators inspect and change role membership.
//
// The router already puts these routes behind RequireRole(Admin); the
// service checks again so it is safe to call from anywhere.
type AdminService struct {
	tx     repository.Transactor
	users  repository.UserRepository
	logger *slog.Logger
}

// NewAdminService creates an AdminService.
func NewAdminService(tx repository.Transactor, users repository.UserRepository, logger *slog.Logger) *AdminService {
	return &AdminService{tx: tx, users: users, logger: logger}
}

// ListUsersWithRoles returns a page of users with their roles, ordered by username.
func (s *AdminService) ListUsersWithRoles(ctx context.Context, p auth.Principal, opts repository.ListOptions) ([]model.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	users, err := s.users.ListUsers(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("service/admin: listing users: %w", err)
	}
	return users, nil
}

// EditRoles replaces userID's roles with roleNames and returns the new set.
//
// Every name must be a known role. An admin cannot drop their own Admin role,
// which would leave them unable to undo the change.
func (s *AdminService) EditRoles(ctx context.Context, p auth.Principal, userID string, roleNames []string) ([]string, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	roles := make([]string, 0, len(roleNames))
	seen := make(map[string]bool, len(roleNames))
	for _, name := range roleNames {
		name = strings.TrimSpace(name)
		if !model.IsKnownRole(name) {
			return nil, apperror.ValidationFailed("roleNames", fmt.Sprintf("unknown role %q", name))
		}
		if !seen[name] {
			seen[name] = true
			roles = append(roles, name)
		}
	}
	if userID == p.UserID && !seen[model.RoleAdmin] {
		return nil, apperror.ValidationFailed("roleNames", "you cannot remove your own Admin role")
	}

	var updated []string
	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		if _, err := st.Users.GetUserByID(ctx, userID); err != nil {
			return err
		}
		if err := st.Roles.SetRoles(ctx, userID, roles); err != nil {
			return err
		}
		var err error
		updated, err = st.Roles.GetRoles(ctx, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("service/admin: editing roles for %s: %w", userID, err)
	}

	s.logger.Info("roles changed",
		slog.String("adminID", p.UserID),
		slog.String("userID", userID),
		slog.Any("roles", updated),
	)
	return updated, nil
}

func requireAdmin(p auth.Principal) error {
	if p.Anonymous() {
		return apperror.Unauthorized("authentication required")
	}
	if !p.HasRole(model.RoleAdmin) {
		return apperror.Forbidden("admin role required")
	}
	return nil
}
