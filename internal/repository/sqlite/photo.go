package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/repository"
)

var _ repository.PhotoRepository = (*PhotoDB)(nil)

// PhotoDB implements repository.PhotoRepository.
type PhotoDB struct {
	q querier
}

const photoColumns = `id, user_id, url, public_id, description, is_main, date_added`

func scanPhoto(s rowScanner) (*model.Photo, error) {
	var (
		p        model.Photo
		publicID sql.NullString
	)
	if err := s.Scan(
		&p.ID,
		&p.UserID,
		&p.URL,
		&publicID,
		&p.Description,
		&p.IsMain,
		&p.DateAdded,
	); err != nil {
		return nil, err
	}
	if publicID.Valid {
		id := publicID.String
		p.PublicID = &id
	}
	return &p, nil
}

// CreatePhoto inserts a photo. ID and DateAdded are generated here.
//
// A second main photo for the same user violates idx_photos_one_main_per_user
// and comes back as apperror.ErrConflict.
func (r *PhotoDB) CreatePhoto(ctx context.Context, photo *model.Photo) error {
	photo.ID = xid.New().String()
	photo.DateAdded = time.Now()

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO photos (id, user_id, url, public_id, description, is_main, date_added)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		photo.ID,
		photo.UserID,
		photo.URL,
		photo.PublicID,
		photo.Description,
		photo.IsMain,
		photo.DateAdded,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("main photo for user", photo.UserID)
		}
		return fmt.Errorf("sqlite: creating photo for user %s: %w", photo.UserID, err)
	}
	return nil
}

// GetPhoto retrieves a single photo by its ID.
func (r *PhotoDB) GetPhoto(ctx context.Context, id string) (*model.Photo, error) {
	p, err := scanPhoto(r.q.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("photo", id)
		}
		return nil, fmt.Errorf("sqlite: getting photo %s: %w", id, err)
	}
	return p, nil
}

// ListPhotosForUser returns all photos owned by userID, oldest first.
func (r *PhotoDB) ListPhotosForUser(ctx context.Context, userID string) ([]model.Photo, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE user_id = ? ORDER BY date_added, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing photos for user %s: %w", userID, err)
	}
	defer rows.Close()

	photos := []model.Photo{}
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning photo row: %w", err)
		}
		photos = append(photos, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating photos: %w", err)
	}
	return photos, nil
}

// GetMainPhotoForUser returns the user's main photo.
// Returns apperror.ErrNotFound if the user has none.
func (r *PhotoDB) GetMainPhotoForUser(ctx context.Context, userID string) (*model.Photo, error) {
	p, err := scanPhoto(r.q.QueryRowContext(ctx,
		`SELECT `+photoColumns+` FROM photos WHERE user_id = ? AND is_main = 1`, userID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("main photo for user", userID)
		}
		return nil, fmt.Errorf("sqlite: getting main photo for user %s: %w", userID, err)
	}
	return p, nil
}

// UpdatePhoto persists the photo's description and main flag.
//
// When switching the main photo, clear the old one first: setting the new
// flag while the old one is still set trips the partial unique index.
func (r *PhotoDB) UpdatePhoto(ctx context.Context, photo *model.Photo) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE photos SET description = ?, is_main = ? WHERE id = ?`,
		photo.Description,
		photo.IsMain,
		photo.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("main photo for user", photo.UserID)
		}
		return fmt.Errorf("sqlite: updating photo %s: %w", photo.ID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("photo", photo.ID)
	}
	return nil
}

// DeletePhoto removes a photo record by its ID.
func (r *PhotoDB) DeletePhoto(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx,
		`DELETE FROM photos WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting photo %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("photo", id)
	}
	return nil
}
