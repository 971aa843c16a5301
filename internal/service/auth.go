package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
)

// Registration rules.
const (
	MinPasswordLength = 6
	MaxKnownAsLength  = 50
)

// usernamePattern accepts lowercase usernames of 3–32 characters.
var usernamePattern = regexp.MustCompile(`^[a-z0-9_]{3,32}$`)

// AuthService handles registration, login and account lookup.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	tx        repository.Transactor
	users     repository.UserRepository
	photos    repository.PhotoRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	tx repository.Transactor,
	users repository.UserRepository,
	photos repository.PhotoRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		tx:        tx,
		users:     users,
		photos:    photos,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput is the input to Register.
type RegisterInput struct {
	Username string
	Password string
	KnownAs  string
}

// Register creates a password account with the Member role.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	username := strings.ToLower(strings.TrimSpace(in.Username))
	if !usernamePattern.MatchString(username) {
		return nil, apperror.ValidationFailed("username",
			"username must be 3-32 characters of lowercase letters, digits or underscores")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	knownAs := strings.TrimSpace(in.KnownAs)
	if knownAs == "" {
		knownAs = username
	}
	if len(knownAs) > MaxKnownAsLength {
		return nil, apperror.ValidationFailed("knownAs",
			fmt.Sprintf("knownAs must be %d characters or fewer", MaxKnownAsLength))
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", err.Error())
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{
		Username:     username,
		KnownAs:      knownAs,
		PasswordHash: hash,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		if err := st.Users.CreateUser(ctx, user); err != nil {
			return err
		}
		user.Roles = []string{model.RoleMember}
		return st.Roles.SetRoles(ctx, user.ID, user.Roles)
	})
	if err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, &apperror.AppError{
				Err:     apperror.ErrConflict,
				Message: fmt.Sprintf("username %s is taken", username),
				Field:   "username",
			}
		}
		return nil, fmt.Errorf("service/auth: registering %s: %w", username, err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", username))
	return user, nil
}

// Login verifies a username and password and issues a token.
// Unknown usernames and wrong passwords fail the same way.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	invalid := apperror.Unauthorized("invalid username or password")
	username = strings.ToLower(strings.TrimSpace(username))

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.VerifyNoUser(password)
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", username, err)
	}
	// OAuth-only accounts have no password to check.
	if user.PasswordHash == "" {
		_ = s.passwords.VerifyNoUser(password)
		return nil, invalid
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/auth: verifying password for %s: %w", username, err)
	}

	now := time.Now()
	if err := s.users.TouchLastActive(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("service/auth: recording login for %s: %w", user.ID, err)
	}
	user.LastActive = now

	return s.issue(user, "password")
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: the account is
// created on first login and refreshed on later ones.
//
// The username is derived from the GitHub login. If a password account
// already holds it, the GitHub ID is appended to keep it unique.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	ghID := ghUser.ID
	user := &model.User{
		Username: githubUsername(ghUser.Login),
		KnownAs:  ghUser.DisplayName(),
		GitHubID: &ghID,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		err := st.Users.UpsertGitHubUser(ctx, user)
		if errors.Is(err, apperror.ErrConflict) {
			user.Username = user.Username + "_" + strconv.FormatInt(ghID, 10)
			err = st.Users.UpsertGitHubUser(ctx, user)
		}
		if err != nil {
			return err
		}
		// A new account comes back with no roles.
		if len(user.Roles) == 0 {
			user.Roles = []string{model.RoleMember}
			return st.Roles.SetRoles(ctx, user.ID, user.Roles)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghID, err)
	}

	return s.issue(user, "github")
}

func (s *AuthService) issue(user *model.User, method string) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Principal{UserID: user.ID, Roles: user.Roles})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("username", user.Username),
		slog.String("method", method),
	)
	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user with roles and photos. Used by /api/me and
// the profile endpoint.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("userId", "user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	photos, err := s.photos.ListPhotosForUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching photos for %s: %w", id, err)
	}
	user.Photos = photos
	return user, nil
}

// ValidateToken validates a JWT string and returns the principal it encodes.
func (s *AuthService) ValidateToken(tokenStr string) (auth.Principal, error) {
	p, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return auth.Principal{}, fmt.Errorf("service/auth: %w", err)
	}
	return p, nil
}

// TokenTTL is the lifetime of issued tokens; the login cookie matches it.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// SeedAdmin creates the administrator account on first start. It does
// nothing if the username already exists.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil
	}

	_, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		s.logger.Debug("admin account already exists", slog.String("username", username))
		return nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return fmt.Errorf("service/auth: looking up admin %s: %w", username, err)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return fmt.Errorf("service/auth: hashing admin password: %w", err)
	}

	admin := &model.User{Username: username, KnownAs: "Admin", PasswordHash: hash}
	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		if err := st.Users.CreateUser(ctx, admin); err != nil {
			return err
		}
		admin.Roles = []string{model.RoleAdmin, model.RoleModerator}
		return st.Roles.SetRoles(ctx, admin.ID, admin.Roles)
	})
	if err != nil {
		return fmt.Errorf("service/auth: creating admin %s: %w", username, err)
	}

	s.logger.Info("admin account created", slog.String("userID", admin.ID), slog.String("username", username))
	return nil
}

// githubUsername lowercases a GitHub login and replaces characters our
// username rule doesn't allow ("-" is common on GitHub).
func githubUsername(login string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(login) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	for len(name) < 3 {
		name += "_"
	}
	if len(name) > 32 {
		name = name[:32]
	}
	return name
}
