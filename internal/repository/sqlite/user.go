package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
)

// compile-time check that *UserDB implements repository.UserRepository
var _ repository.UserRepository = (*UserDB)(nil)

// UserDB implements repository.UserRepository.
type UserDB struct {
	q querier
}

// userColumns selects a user row plus its roles folded into one
// comma-separated column. Folding the roles into the same row avoids a second
// query per user while iterating rows, which would deadlock on a
// single-connection pool.
const userColumns = `
	u.id, u.username, u.known_as, u.password_hash, u.github_id, u.created_at, u.last_active,
	COALESCE((SELECT GROUP_CONCAT(r.role, ',') FROM user_roles r WHERE r.user_id = u.id), '')`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
		roles    string
	)
	if err := s.Scan(
		&u.ID,
		&u.Username,
		&u.KnownAs,
		&u.PasswordHash,
		&githubID,
		&u.CreatedAt,
		&u.LastActive,
		&roles,
	); err != nil {
		return nil, err
	}
	if githubID.Valid {
		id := githubID.Int64
		u.GitHubID = &id
	}
	u.Roles = splitRoles(roles)
	return &u, nil
}

// splitRoles turns the GROUP_CONCAT column back into a slice, ordered the
// same way as model.KnownRoles. GROUP_CONCAT itself has no defined order.
func splitRoles(s string) []string {
	if s == "" {
		return []string{}
	}
	roles := strings.Split(s, ",")
	rank := func(r string) int {
		for i, known := range model.KnownRoles {
			if known == r {
				return i
			}
		}
		return len(model.KnownRoles)
	}
	sort.SliceStable(roles, func(i, j int) bool { return rank(roles[i]) < rank(roles[j]) })
	return roles
}

// CreateUser inserts a new password account.
// The ID and timestamps are generated here and written back into user.
func (r *UserDB) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.LastActive = now

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (id, username, known_as, password_hash, github_id, created_at, last_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Username,
		user.KnownAs,
		user.PasswordHash,
		user.GitHubID,
		user.CreatedAt,
		user.LastActive,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", user.Username)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.Username, err)
	}
	if user.Roles == nil {
		user.Roles = []string{}
	}
	return nil
}

// UpsertGitHubUser inserts or updates a user based on their GitHub ID.
//
// An existing account keeps its internal ID and username; only the display
// name is refreshed. After the call, user holds the canonical stored record.
func (r *UserDB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	if user.GitHubID == nil {
		return fmt.Errorf("sqlite: upserting GitHub user %s: missing github id", user.Username)
	}

	var existingID string
	err := r.q.QueryRowContext(ctx,
		`SELECT id FROM users WHERE github_id = ?`, *user.GitHubID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", *user.GitHubID, err)
	}

	if existingID == "" {
		return r.CreateUser(ctx, user)
	}

	now := time.Now()
	_, err = r.q.ExecContext(ctx,
		`UPDATE users SET known_as = ?, last_active = ? WHERE id = ?`,
		user.KnownAs, now, existingID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating user %s: %w", existingID, err)
	}

	stored, err := r.GetUserByID(ctx, existingID)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetUserByID retrieves a user (with roles) by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (r *UserDB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username. Usernames are stored lowercased.
func (r *UserDB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.username = ?`, username,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", username)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", username, err)
	}
	return u, nil
}

// TouchLastActive records the time of the user's latest login.
func (r *UserDB) TouchLastActive(ctx context.Context, id string, at time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET last_active = ? WHERE id = ?`, at, id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: touching user %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// ListUsers returns a page of users ordered by username.
func (r *UserDB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users u ORDER BY u.username LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, limit)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}
