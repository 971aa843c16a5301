package handler_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
	"github.com/sakif/datingapp/internal/service"
)

// MockPhotoService records the arguments it was called with and returns canned values.
type MockPhotoService struct {
	CapturedPrincipal auth.Principal
	CapturedUserID    string
	CapturedPhotoID   string
	CapturedUpload    service.PhotoUpload
	UploadedBytes     []byte

	ReturnPhoto  *model.Photo
	ReturnPhotos []model.Photo
	ReturnErr    error
}

func (m *MockPhotoService) capture(p auth.Principal, userID, photoID string) {
	m.CapturedPrincipal = p
	m.CapturedUserID = userID
	m.CapturedPhotoID = photoID
}

func (m *MockPhotoService) GetPhoto(_ context.Context, p auth.Principal, userID, photoID string) (*model.Photo, error) {
	m.capture(p, userID, photoID)
	return m.ReturnPhoto, m.ReturnErr
}

func (m *MockPhotoService) ListPhotos(_ context.Context, p auth.Principal, userID string) ([]model.Photo, error) {
	m.capture(p, userID, "")
	return m.ReturnPhotos, m.ReturnErr
}

func (m *MockPhotoService) AddPhoto(_ context.Context, p auth.Principal, userID string, in service.PhotoUpload) (*model.Photo, error) {
	m.capture(p, userID, "")
	m.CapturedUpload = in
	if in.File != nil {
		m.UploadedBytes, _ = io.ReadAll(in.File)
	}
	return m.ReturnPhoto, m.ReturnErr
}

func (m *MockPhotoService) SetMain(_ context.Context, p auth.Principal, userID, photoID string) error {
	m.capture(p, userID, photoID)
	return m.ReturnErr
}

func (m *MockPhotoService) DeletePhoto(_ context.Context, p auth.Principal, userID, photoID string) error {
	m.capture(p, userID, photoID)
	return m.ReturnErr
}

// MockAccountService stands in for *service.AuthService.
type MockAccountService struct {
	CapturedRegister service.RegisterInput
	CapturedUsername string
	CapturedPassword string
	CapturedGitHub   *auth.GitHubUser
	CapturedID       string

	ReturnUser   *model.User
	ReturnResult *service.AuthResult
	ReturnErr    error
	TTL          time.Duration
}

func (m *MockAccountService) Register(_ context.Context, in service.RegisterInput) (*model.User, error) {
	m.CapturedRegister = in
	return m.ReturnUser, m.ReturnErr
}

func (m *MockAccountService) Login(_ context.Context, username, password string) (*service.AuthResult, error) {
	m.CapturedUsername = username
	m.CapturedPassword = password
	return m.ReturnResult, m.ReturnErr
}

func (m *MockAccountService) LoginOrRegisterGitHub(_ context.Context, ghUser *auth.GitHubUser) (*service.AuthResult, error) {
	m.CapturedGitHub = ghUser
	return m.ReturnResult, m.ReturnErr
}

func (m *MockAccountService) GetUserByID(_ context.Context, id string) (*model.User, error) {
	m.CapturedID = id
	return m.ReturnUser, m.ReturnErr
}

func (m *MockAccountService) TokenTTL() time.Duration {
	if m.TTL == 0 {
		return time.Hour
	}
	return m.TTL
}

// MockGitHub stands in for *auth.GitHubProvider.
type MockGitHub struct {
	CapturedCode string
	ReturnUser   *auth.GitHubUser
	ReturnErr    error
}

func (m *MockGitHub) AuthURL(state string) string {
	return "https://github.example/login/oauth/authorize?state=" + state
}

func (m *MockGitHub) Exchange(_ context.Context, code string) (*auth.GitHubUser, error) {
	m.CapturedCode = code
	return m.ReturnUser, m.ReturnErr
}

// MockAdminService stands in for *service.AdminService.
type MockAdminService struct {
	CapturedPrincipal auth.Principal
	CapturedOpts      repository.ListOptions
	CapturedUserID    string
	CapturedRoles     []string

	ReturnUsers []model.User
	ReturnRoles []string
	ReturnErr   error
}

func (m *MockAdminService) ListUsersWithRoles(_ context.Context, p auth.Principal, opts repository.ListOptions) ([]model.User, error) {
	m.CapturedPrincipal = p
	m.CapturedOpts = opts
	return m.ReturnUsers, m.ReturnErr
}

func (m *MockAdminService) EditRoles(_ context.Context, p auth.Principal, userID string, roleNames []string) ([]string, error) {
	m.CapturedPrincipal = p
	m.CapturedUserID = userID
	m.CapturedRoles = roleNames
	return m.ReturnRoles, m.ReturnErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// asUser returns a request context carrying an authenticated principal,
// the way RequireAuth leaves it.
func asUser(ctx context.Context, userID string, roles ...string) context.Context {
	return auth.WithPrincipal(ctx, auth.Principal{UserID: userID, Roles: roles})
}
