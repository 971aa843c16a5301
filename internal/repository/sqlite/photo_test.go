package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
)

func createTestPhoto(t *testing.T, db *DB, userID string, isMain bool) *model.Photo {
	t.Helper()
	publicID := "datingapp/" + userID
	photo := &model.Photo{
		UserID:   userID,
		URL:      "https://media.example.com/" + userID + ".jpg",
		PublicID: &publicID,
		IsMain:   isMain,
	}
	if err := db.Photos().CreatePhoto(context.Background(), photo); err != nil {
		t.Fatalf("failed to create test photo: %v", err)
	}
	return photo
}

func TestPhotoCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "photographer")

	created := createTestPhoto(t, db, user.ID, true)
	if created.ID == "" {
		t.Fatal("CreatePhoto() did not set photo.ID")
	}
	if created.DateAdded.IsZero() {
		t.Error("CreatePhoto() did not set photo.DateAdded")
	}

	found, err := db.Photos().GetPhoto(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetPhoto() error = %v", err)
	}
	if found.UserID != user.ID {
		t.Errorf("UserID = %q, want %q", found.UserID, user.ID)
	}
	if !found.IsMain {
		t.Error("IsMain = false, want true")
	}
	if found.PublicID == nil || *found.PublicID != *created.PublicID {
		t.Errorf("PublicID = %v, want %q", found.PublicID, *created.PublicID)
	}
}

func TestPhotoCreate_NullPublicID(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "imported")

	photo := &model.Photo{UserID: user.ID, URL: "https://randomuser.me/api/portraits/women/1.jpg"}
	if err := db.Photos().CreatePhoto(context.Background(), photo); err != nil {
		t.Fatalf("CreatePhoto() error = %v", err)
	}

	found, err := db.Photos().GetPhoto(context.Background(), photo.ID)
	if err != nil {
		t.Fatalf("GetPhoto() error = %v", err)
	}
	if found.PublicID != nil {
		t.Errorf("PublicID = %q, want nil", *found.PublicID)
	}
}

func TestPhotoGet_NotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.Photos().GetPhoto(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetPhoto() error = %v, want ErrNotFound", err)
	}
}

// The partial unique index refuses a second main photo for the same user.
func TestPhotoCreate_SecondMainRejected(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "twomains")
	createTestPhoto(t, db, user.ID, true)

	second := &model.Photo{UserID: user.ID, URL: "x", IsMain: true}
	err := db.Photos().CreatePhoto(context.Background(), second)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("CreatePhoto() second main error = %v, want ErrConflict", err)
	}

	// Another user's main photo is unaffected by the index.
	other := createTestUser(t, db, "other")
	createTestPhoto(t, db, other.ID, true)
}

func TestPhotoCreate_UnknownUser(t *testing.T) {
	db := newTestDB(t)

	err := db.Photos().CreatePhoto(context.Background(), &model.Photo{UserID: "ghost", URL: "x"})
	if err == nil {
		t.Fatal("CreatePhoto() for a missing user should violate the foreign key")
	}
}

func TestPhotoListAndMain(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "lister")
	a := createTestPhoto(t, db, user.ID, true)
	b := createTestPhoto(t, db, user.ID, false)

	photos, err := db.Photos().ListPhotosForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListPhotosForUser() error = %v", err)
	}
	if len(photos) != 2 || photos[0].ID != a.ID || photos[1].ID != b.ID {
		t.Fatalf("ListPhotosForUser() = %+v, want [a b]", photos)
	}

	main, err := db.Photos().GetMainPhotoForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("GetMainPhotoForUser() error = %v", err)
	}
	if main.ID != a.ID {
		t.Errorf("main photo = %q, want %q", main.ID, a.ID)
	}
}

func TestPhotoList_Empty(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "empty")

	photos, err := db.Photos().ListPhotosForUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListPhotosForUser() error = %v", err)
	}
	if photos == nil || len(photos) != 0 {
		t.Errorf("ListPhotosForUser() = %v, want empty non-nil slice", photos)
	}

	_, err = db.Photos().GetMainPhotoForUser(context.Background(), user.ID)
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetMainPhotoForUser() error = %v, want ErrNotFound", err)
	}
}

func TestPhotoUpdate_SwitchMain(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "switcher")
	a := createTestPhoto(t, db, user.ID, true)
	b := createTestPhoto(t, db, user.ID, false)

	// Setting b first while a is still main trips the index.
	b.IsMain = true
	if err := db.Photos().UpdatePhoto(context.Background(), b); !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("UpdatePhoto() with two mains error = %v, want ErrConflict", err)
	}

	a.IsMain = false
	if err := db.Photos().UpdatePhoto(context.Background(), a); err != nil {
		t.Fatalf("UpdatePhoto(a) error = %v", err)
	}
	if err := db.Photos().UpdatePhoto(context.Background(), b); err != nil {
		t.Fatalf("UpdatePhoto(b) error = %v", err)
	}

	main, _ := db.Photos().GetMainPhotoForUser(context.Background(), user.ID)
	if main == nil || main.ID != b.ID {
		t.Errorf("main photo = %v, want %q", main, b.ID)
	}
}

func TestPhotoUpdate_NotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.Photos().UpdatePhoto(context.Background(), &model.Photo{ID: "missing"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdatePhoto() error = %v, want ErrNotFound", err)
	}
}

func TestPhotoDelete(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "deleter")
	photo := createTestPhoto(t, db, user.ID, false)

	if err := db.Photos().DeletePhoto(context.Background(), photo.ID); err != nil {
		t.Fatalf("DeletePhoto() error = %v", err)
	}
	if _, err := db.Photos().GetPhoto(context.Background(), photo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("after delete: error = %v, want ErrNotFound", err)
	}
	if err := db.Photos().DeletePhoto(context.Background(), photo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second DeletePhoto() error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// TRANSACTION TESTS
// =========================================================================

func TestWithinTx_Commits(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "txcommit")

	var created *model.Photo
	err := db.WithinTx(context.Background(), func(ctx context.Context, s repository.Stores) error {
		created = &model.Photo{UserID: user.ID, URL: "x", IsMain: true}
		return s.Photos.CreatePhoto(ctx, created)
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}

	if _, err := db.Photos().GetPhoto(context.Background(), created.ID); err != nil {
		t.Errorf("photo not committed: %v", err)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "txrollback")
	a := createTestPhoto(t, db, user.ID, true)

	boom := errors.New("boom")
	err := db.WithinTx(context.Background(), func(ctx context.Context, s repository.Stores) error {
		a.IsMain = false
		if err := s.Photos.UpdatePhoto(ctx, a); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithinTx() error = %v, want boom", err)
	}

	found, _ := db.Photos().GetPhoto(context.Background(), a.ID)
	if !found.IsMain {
		t.Error("update inside a failed transaction was not rolled back")
	}
}

func TestDeleteUserCascadesPhotosAndRoles(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "cascade")
	photo := createTestPhoto(t, db, user.ID, true)
	if err := db.Roles().SetRoles(context.Background(), user.ID, []string{model.RoleMember}); err != nil {
		t.Fatalf("SetRoles() error = %v", err)
	}

	if _, err := db.conn.ExecContext(context.Background(), `DELETE FROM users WHERE id = ?`, user.ID); err != nil {
		t.Fatalf("deleting user: %v", err)
	}

	if _, err := db.Photos().GetPhoto(context.Background(), photo.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("photo survived user deletion: %v", err)
	}
	roles, _ := db.Roles().GetRoles(context.Background(), user.ID)
	if len(roles) != 0 {
		t.Errorf("roles survived user deletion: %v", roles)
	}
}
