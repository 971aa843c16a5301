package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sort"
	"testing"
	"time"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/media"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
)

// =========================================================================
// FAKE DATABASE
// =========================================================================
//
// fakeDB is an in-memory implementation of every repository interface plus
// repository.Transactor. Using one hand-written fake (not a mock framework)
// keeps tests dependency-free, and because the three interfaces don't share
// method names a single struct can serve them all.
//
// WithinTx snapshots the maps and restores them if the callback fails, so
// "no state change" assertions mean the same thing they do against SQLite.
// Like the real partial unique index, a second main photo for a user is
// rejected with a conflict.

type fakeDB struct {
	users  map[string]*model.User
	photos map[string]*model.Photo
	roles  map[string][]string
	nextID int
	clock  time.Time

	// calls counts every repository method invocation.
	calls int

	// set to a non-nil error to simulate a database failure
	createPhotoErr error
	updatePhotoErr error
	deletePhotoErr error
	getMainErr     error
	setRolesErr    error
}

var (
	_ repository.UserRepository  = (*fakeDB)(nil)
	_ repository.PhotoRepository = (*fakeDB)(nil)
	_ repository.RoleRepository  = (*fakeDB)(nil)
	_ repository.Transactor      = (*fakeDB)(nil)
)

func newFakeDB() *fakeDB {
	return &fakeDB{
		users:  make(map[string]*model.User),
		photos: make(map[string]*model.Photo),
		roles:  make(map[string][]string),
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeDB) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeDB) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeDB) WithinTx(ctx context.Context, fn func(ctx context.Context, s repository.Stores) error) error {
	users := cloneMap(f.users)
	photos := cloneMap(f.photos)
	roles := maps.Clone(f.roles)

	if err := fn(ctx, repository.Stores{Users: f, Photos: f, Roles: f}); err != nil {
		f.users, f.photos, f.roles = users, photos, roles
		return err
	}
	return nil
}

func cloneMap[T any](m map[string]*T) map[string]*T {
	out := make(map[string]*T, len(m))
	for k, v := range m {
		c := *v
		out[k] = &c
	}
	return out
}

// ----- users -----

func (f *fakeDB) CreateUser(_ context.Context, user *model.User) error {
	f.calls++
	for _, u := range f.users {
		if u.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	user.ID = f.id("user")
	user.CreatedAt = f.tick()
	user.LastActive = user.CreatedAt
	if user.Roles == nil {
		user.Roles = []string{}
	}
	stored := *user
	f.users[user.ID] = &stored
	return nil
}

func (f *fakeDB) UpsertGitHubUser(ctx context.Context, user *model.User) error {
	f.calls++
	for _, u := range f.users {
		if u.GitHubID != nil && *u.GitHubID == *user.GitHubID {
			u.KnownAs = user.KnownAs
			u.LastActive = f.tick()
			stored, _ := f.GetUserByID(ctx, u.ID)
			*user = *stored
			return nil
		}
	}
	return f.CreateUser(ctx, user)
}

func (f *fakeDB) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	result.Roles = append([]string{}, f.roles[id]...)
	return &result, nil
}

func (f *fakeDB) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	f.calls++
	for _, u := range f.users {
		if u.Username == username {
			return f.GetUserByID(ctx, u.ID)
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeDB) TouchLastActive(_ context.Context, id string, at time.Time) error {
	f.calls++
	u, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.LastActive = at
	return nil
}

func (f *fakeDB) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	f.calls++
	ids := make([]string, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return f.users[ids[i]].Username < f.users[ids[j]].Username })

	result := make([]model.User, 0, len(ids))
	for _, id := range ids {
		u, _ := f.GetUserByID(ctx, id)
		result = append(result, *u)
	}
	if opts.Offset >= len(result) {
		return []model.User{}, nil
	}
	result = result[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(result) {
		result = result[:opts.Limit]
	}
	return result, nil
}

// ----- photos -----

func (f *fakeDB) otherMain(photo *model.Photo) bool {
	for _, p := range f.photos {
		if p.UserID == photo.UserID && p.IsMain && p.ID != photo.ID {
			return true
		}
	}
	return false
}

func (f *fakeDB) CreatePhoto(_ context.Context, photo *model.Photo) error {
	f.calls++
	if f.createPhotoErr != nil {
		return f.createPhotoErr
	}
	if _, ok := f.users[photo.UserID]; !ok {
		return fmt.Errorf("fake: foreign key: user %s", photo.UserID)
	}
	photo.ID = f.id("photo")
	photo.DateAdded = f.tick()
	if photo.IsMain && f.otherMain(photo) {
		return apperror.Conflict("main photo for user", photo.UserID)
	}
	stored := *photo
	f.photos[photo.ID] = &stored
	return nil
}

func (f *fakeDB) GetPhoto(_ context.Context, id string) (*model.Photo, error) {
	f.calls++
	p, ok := f.photos[id]
	if !ok {
		return nil, apperror.NotFound("photo", id)
	}
	result := *p
	return &result, nil
}

func (f *fakeDB) ListPhotosForUser(_ context.Context, userID string) ([]model.Photo, error) {
	f.calls++
	result := []model.Photo{}
	for _, p := range f.photos {
		if p.UserID == userID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].DateAdded.Before(result[j].DateAdded) })
	return result, nil
}

func (f *fakeDB) GetMainPhotoForUser(_ context.Context, userID string) (*model.Photo, error) {
	f.calls++
	if f.getMainErr != nil {
		return nil, f.getMainErr
	}
	for _, p := range f.photos {
		if p.UserID == userID && p.IsMain {
			result := *p
			return &result, nil
		}
	}
	return nil, apperror.NotFound("main photo for user", userID)
}

func (f *fakeDB) UpdatePhoto(_ context.Context, photo *model.Photo) error {
	f.calls++
	if f.updatePhotoErr != nil {
		return f.updatePhotoErr
	}
	p, ok := f.photos[photo.ID]
	if !ok {
		return apperror.NotFound("photo", photo.ID)
	}
	if photo.IsMain && f.otherMain(photo) {
		return apperror.Conflict("main photo for user", photo.UserID)
	}
	p.Description = photo.Description
	p.IsMain = photo.IsMain
	return nil
}

func (f *fakeDB) DeletePhoto(_ context.Context, id string) error {
	f.calls++
	if f.deletePhotoErr != nil {
		return f.deletePhotoErr
	}
	if _, ok := f.photos[id]; !ok {
		return apperror.NotFound("photo", id)
	}
	delete(f.photos, id)
	return nil
}

// ----- roles -----

func (f *fakeDB) GetRoles(_ context.Context, userID string) ([]string, error) {
	f.calls++
	return append([]string{}, f.roles[userID]...), nil
}

func (f *fakeDB) SetRoles(_ context.Context, userID string, roles []string) error {
	f.calls++
	if f.setRolesErr != nil {
		return f.setRolesErr
	}
	f.roles[userID] = append([]string{}, roles...)
	return nil
}

// ----- helpers -----

// seedUser inserts a user directly, bypassing the call counter.
func (f *fakeDB) seedUser(username string, roles ...string) *model.User {
	u := &model.User{Username: username, KnownAs: username}
	_ = f.CreateUser(context.Background(), u)
	f.roles[u.ID] = roles
	f.calls = 0
	return u
}

// seedPhoto inserts a photo directly. An empty publicID leaves PublicID nil.
func (f *fakeDB) seedPhoto(userID, publicID string, isMain bool) *model.Photo {
	p := &model.Photo{UserID: userID, URL: "https://img.example.com/" + publicID, IsMain: isMain}
	if publicID != "" {
		p.PublicID = &publicID
	}
	if err := f.CreatePhoto(context.Background(), p); err != nil {
		panic(err)
	}
	f.calls = 0
	return p
}

func (f *fakeDB) mainPhotos(userID string) []string {
	var ids []string
	for _, p := range f.photos {
		if p.UserID == userID && p.IsMain {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// =========================================================================
// FAKE MEDIA STORE
// =========================================================================

// fakeMedia records every call so tests can assert ordering and absence.
type fakeMedia struct {
	uploads   []string // filenames
	destroyed []string // public IDs
	nextID    int

	uploadErr     error
	destroyResult string // defaults to "ok"
	destroyErr    error
	onDestroy     func() // runs before Destroy returns
}

var _ media.Store = (*fakeMedia)(nil)

func (m *fakeMedia) Upload(_ context.Context, file io.Reader, filename string, t media.Transform) (*media.UploadResult, error) {
	m.uploads = append(m.uploads, filename)
	if m.uploadErr != nil {
		return nil, m.uploadErr
	}
	if _, err := io.ReadAll(file); err != nil {
		return nil, err
	}
	m.nextID++
	id := fmt.Sprintf("datingapp/asset-%d", m.nextID)
	return &media.UploadResult{URL: "https://res.example.com/" + t.String() + "/" + id + ".jpg", PublicID: id}, nil
}

func (m *fakeMedia) Destroy(_ context.Context, publicID string) (*media.DestroyResult, error) {
	m.destroyed = append(m.destroyed, publicID)
	if m.onDestroy != nil {
		m.onDestroy()
	}
	if m.destroyErr != nil {
		return nil, m.destroyErr
	}
	result := m.destroyResult
	if result == "" {
		result = media.ResultOK
	}
	return &media.DestroyResult{Result: result}, nil
}

func (m *fakeMedia) calls() int {
	return len(m.uploads) + len(m.destroyed)
}

// =========================================================================
// HELPERS
// =========================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func principal(userID string, roles ...string) auth.Principal {
	return auth.Principal{UserID: userID, Roles: roles}
}

func newTestPhotoService(t *testing.T) (*PhotoService, *fakeDB, *fakeMedia) {
	t.Helper()
	db := newFakeDB()
	store := &fakeMedia{}
	svc := NewPhotoService(db, db, db, store, time.Second, testLogger())
	return svc, db, store
}
