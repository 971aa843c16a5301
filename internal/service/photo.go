package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/media"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/policy"
	"github.com/sakif/datingapp/internal/repository"
)

// MaxDescriptionLength caps a photo caption.
const MaxDescriptionLength = 500

// DefaultMediaTimeout bounds each media store call when none is configured.
const DefaultMediaTimeout = 30 * time.Second

// PhotoService manages a user's profile photos.
//
// EVERY MUTATION FOLLOWS THE SAME ORDER:
//
//	identity check → repository read → policy → media store → repository write
//
// The identity check comes first and touches nothing, so a caller acting on
// someone else's profile learns nothing and costs nothing.
type PhotoService struct {
	tx           repository.Transactor
	users        repository.UserRepository
	photos       repository.PhotoRepository
	store        media.Store
	mediaTimeout time.Duration
	logger       *slog.Logger
}

// NewPhotoService creates a PhotoService. users and photos are used for reads
// outside a transaction; tx supplies transaction-bound repositories for writes.
func NewPhotoService(
	tx repository.Transactor,
	users repository.UserRepository,
	photos repository.PhotoRepository,
	store media.Store,
	mediaTimeout time.Duration,
	logger *slog.Logger,
) *PhotoService {
	if mediaTimeout <= 0 {
		mediaTimeout = DefaultMediaTimeout
	}
	return &PhotoService{
		tx:           tx,
		users:        users,
		photos:       photos,
		store:        store,
		mediaTimeout: mediaTimeout,
		logger:       logger,
	}
}

// PhotoUpload is the input to AddPhoto.
type PhotoUpload struct {
	File        io.Reader
	Filename    string
	Description string
}

// GetPhoto returns one of userID's photos. Any signed-in member may view it.
// A photo that exists but belongs to someone else is reported as not found.
func (s *PhotoService) GetPhoto(ctx context.Context, p auth.Principal, userID, photoID string) (*model.Photo, error) {
	if p.Anonymous() {
		return nil, apperror.Unauthorized("authentication required")
	}

	photo, err := s.photos.GetPhoto(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("service/photo: fetching photo %s: %w", photoID, err)
	}
	if photo.UserID != userID {
		return nil, apperror.NotFound("photo", photoID)
	}
	return photo, nil
}

// ListPhotos returns userID's photos, oldest first.
func (s *PhotoService) ListPhotos(ctx context.Context, p auth.Principal, userID string) ([]model.Photo, error) {
	if p.Anonymous() {
		return nil, apperror.Unauthorized("authentication required")
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/photo: fetching user %s: %w", userID, err)
	}
	photos, err := s.photos.ListPhotosForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/photo: listing photos for %s: %w", userID, err)
	}
	return photos, nil
}

// AddPhoto uploads an image and records it as one of userID's photos.
// The user's first photo becomes their main photo.
//
// If the record cannot be saved after the upload succeeded, the uploaded
// asset is destroyed again (best effort) so the store doesn't collect orphans.
func (s *PhotoService) AddPhoto(ctx context.Context, p auth.Principal, userID string, in PhotoUpload) (*model.Photo, error) {
	if !policy.Authorize(p.UserID, userID) {
		return nil, apperror.Unauthorized("you can only add photos to your own profile")
	}
	if in.File == nil {
		return nil, apperror.ValidationFailed("file", "a photo file is required")
	}
	description := strings.TrimSpace(in.Description)
	if len(description) > MaxDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or fewer", MaxDescriptionLength))
	}

	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/photo: fetching user %s: %w", userID, err)
	}

	uploadCtx, cancel := context.WithTimeout(ctx, s.mediaTimeout)
	uploaded, err := s.store.Upload(uploadCtx, in.File, in.Filename, media.ProfileTransform)
	cancel()
	if err != nil {
		s.logger.Warn("photo upload failed",
			slog.String("userID", userID),
			slog.String("filename", in.Filename),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.ValidationFailed("file", "the image service timed out, please try again")
		}
		return nil, apperror.ValidationFailed("file", "the image could not be uploaded")
	}

	publicID := uploaded.PublicID
	photo := &model.Photo{
		UserID:      userID,
		URL:         uploaded.URL,
		PublicID:    &publicID,
		Description: description,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		existing, err := st.Photos.ListPhotosForUser(ctx, userID)
		if err != nil {
			return err
		}
		policy.ApplyFirstPhotoRule(existing, photo)
		return st.Photos.CreatePhoto(ctx, photo)
	})
	if err != nil {
		s.discardUpload(ctx, publicID, err)
		return nil, asPersistence("failed to add photo", err)
	}

	s.logger.Info("photo added",
		slog.String("userID", userID),
		slog.String("photoID", photo.ID),
		slog.Bool("isMain", photo.IsMain),
	)
	return photo, nil
}

// discardUpload destroys an asset whose record never made it to the database.
// It runs even if the request context is already cancelled.
func (s *PhotoService) discardUpload(ctx context.Context, publicID string, cause error) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mediaTimeout)
	defer cancel()

	res, err := s.store.Destroy(cleanupCtx, publicID)
	attrs := []any{
		slog.String("publicID", publicID),
		slog.String("cause", cause.Error()),
	}
	switch {
	case err != nil:
		s.logger.Error("orphaned upload could not be removed", append(attrs, slog.String("error", err.Error()))...)
	case !res.OK():
		s.logger.Error("orphaned upload could not be removed", append(attrs, slog.String("result", res.Result))...)
	default:
		s.logger.Warn("removed upload after failed save", attrs...)
	}
}

// SetMain makes photoID userID's main photo, clearing the previous one in the
// same transaction.
func (s *PhotoService) SetMain(ctx context.Context, p auth.Principal, userID, photoID string) error {
	if !policy.Authorize(p.UserID, userID) {
		return apperror.Unauthorized("you can only change your own main photo")
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		photos, err := st.Photos.ListPhotosForUser(ctx, userID)
		if err != nil {
			return err
		}
		if !policy.OwnsPhoto(photos, photoID) {
			return apperror.Unauthorized("photo does not belong to this user")
		}

		var target *model.Photo
		for i := range photos {
			if photos[i].ID == photoID {
				target = &photos[i]
			}
		}
		if err := policy.CanSetMain(target); err != nil {
			return err
		}

		// A user can have photos but no main one (e.g. after an import).
		current, err := st.Photos.GetMainPhotoForUser(ctx, userID)
		if errors.Is(err, apperror.ErrNotFound) {
			current = nil
		} else if err != nil {
			return err
		}

		policy.PromoteToMain(current, target)

		// Clear the old main first; the one-main-per-user index rejects the
		// opposite order.
		if current != nil {
			if err := st.Photos.UpdatePhoto(ctx, current); err != nil {
				return err
			}
		}
		return st.Photos.UpdatePhoto(ctx, target)
	})
	if err != nil {
		return asPersistence("failed to set main photo", err)
	}

	s.logger.Info("main photo changed",
		slog.String("userID", userID),
		slog.String("photoID", photoID),
	)
	return nil
}

// DeletePhoto removes one of userID's photos. The main photo cannot be deleted.
//
// A photo with a remote asset is destroyed in the media store first; the
// record is only removed once the store confirms with "ok". Photos without a
// public ID are removed straight away.
func (s *PhotoService) DeletePhoto(ctx context.Context, p auth.Principal, userID, photoID string) error {
	if !policy.Authorize(p.UserID, userID) {
		return apperror.Unauthorized("you can only delete your own photos")
	}

	photos, err := s.photos.ListPhotosForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/photo: listing photos for %s: %w", userID, err)
	}
	if !policy.OwnsPhoto(photos, photoID) {
		return apperror.Unauthorized("photo does not belong to this user")
	}

	var photo *model.Photo
	for i := range photos {
		if photos[i].ID == photoID {
			photo = &photos[i]
		}
	}
	if err := policy.CanDelete(photo); err != nil {
		return err
	}

	if photo.HasRemoteAsset() {
		if err := s.destroyAsset(ctx, *photo.PublicID); err != nil {
			return err
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, st repository.Stores) error {
		// Re-check under the transaction in case a concurrent set-main
		// promoted this photo after the read above. This keeps the record,
		// but the remote asset is already gone by now: the kept main photo
		// then points at a destroyed asset until the user replaces it.
		current, err := st.Photos.GetPhoto(ctx, photoID)
		if err != nil {
			return err
		}
		if err := policy.CanDelete(current); err != nil {
			return err
		}
		return st.Photos.DeletePhoto(ctx, photoID)
	})
	if err != nil {
		return asPersistence("failed to delete photo", err)
	}

	s.logger.Info("photo deleted",
		slog.String("userID", userID),
		slog.String("photoID", photoID),
	)
	return nil
}

func (s *PhotoService) destroyAsset(ctx context.Context, publicID string) error {
	destroyCtx, cancel := context.WithTimeout(ctx, s.mediaTimeout)
	defer cancel()

	res, err := s.store.Destroy(destroyCtx, publicID)
	if err != nil {
		s.logger.Warn("media destroy failed",
			slog.String("publicID", publicID),
			slog.String("error", err.Error()),
		)
		return apperror.RemoteDeleteFailure(publicID, "error")
	}
	if !res.OK() {
		return apperror.RemoteDeleteFailure(publicID, res.Result)
	}
	return nil
}
