package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/datingapp/internal/repository"
)

var _ repository.RoleRepository = (*RoleDB)(nil)

// RoleDB implements repository.RoleRepository.
type RoleDB struct {
	q querier
}

// GetRoles returns the user's roles in model.KnownRoles order.
func (r *RoleDB) GetRoles(ctx context.Context, userID string) ([]string, error) {
	var joined string
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(GROUP_CONCAT(role, ','), '') FROM user_roles WHERE user_id = ?`,
		userID,
	).Scan(&joined)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting roles for user %s: %w", userID, err)
	}
	return splitRoles(joined), nil
}

// SetRoles replaces the user's role set.
//
// The delete and inserts are separate statements, so callers that need the
// replacement to be atomic run this inside WithinTx.
func (r *RoleDB) SetRoles(ctx context.Context, userID string, roles []string) error {
	if _, err := r.q.ExecContext(ctx,
		`DELETE FROM user_roles WHERE user_id = ?`, userID,
	); err != nil {
		return fmt.Errorf("sqlite: clearing roles for user %s: %w", userID, err)
	}

	for _, role := range roles {
		if _, err := r.q.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_roles (user_id, role) VALUES (?, ?)`,
			userID, role,
		); err != nil {
			return fmt.Errorf("sqlite: adding role %s to user %s: %w", role, userID, err)
		}
	}
	return nil
}
