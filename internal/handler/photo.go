package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/datingapp/internal/apperror"
	"github.com/sakif/datingapp/internal/auth"
	"github.com/sakif/datingapp/internal/model"
	"github.com/sakif/datingapp/internal/policy"
	"github.com/sakif/datingapp/internal/service"
)

// PhotoService is the subset of *service.PhotoService the handler calls.
// Handler tests substitute a mock.
type PhotoService interface {
	GetPhoto(ctx context.Context, p auth.Principal, userID, photoID string) (*model.Photo, error)
	ListPhotos(ctx context.Context, p auth.Principal, userID string) ([]model.Photo, error)
	AddPhoto(ctx context.Context, p auth.Principal, userID string, in service.PhotoUpload) (*model.Photo, error)
	SetMain(ctx context.Context, p auth.Principal, userID, photoID string) error
	DeletePhoto(ctx context.Context, p auth.Principal, userID, photoID string) error
}

// allowedImageTypes are the content types accepted for upload, as sniffed
// from the file's first bytes (the client's Content-Type header is ignored).
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PhotoHandler serves /api/users/{userId}/photos.
//
// Routes (all behind RequireAuth):
//
//	GET    /users/{userId}/photos                → HandleList
//	GET    /users/{userId}/photos/{id}           → HandleGet
//	POST   /users/{userId}/photos                → HandleUpload     (multipart "file")
//	POST   /users/{userId}/photos/{id}/setMain   → HandleSetMain
//	DELETE /users/{userId}/photos/{id}           → HandleDelete
type PhotoHandler struct {
	photos         PhotoService
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewPhotoHandler creates a PhotoHandler.
func NewPhotoHandler(photos PhotoService, maxUploadBytes int64, logger *slog.Logger) *PhotoHandler {
	return &PhotoHandler{photos: photos, maxUploadBytes: maxUploadBytes, logger: logger}
}

// principalFrom returns the caller. On a RequireAuth route it is always set;
// an empty Principal makes the service answer Unauthorized.
func principalFrom(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// HandleGet returns one photo.
//
// HTTP: GET /api/users/{userId}/photos/{id}
func (h *PhotoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	photo, err := h.photos.GetPhoto(r.Context(), principalFrom(r), chi.URLParam(r, "userId"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPhotoResponse(photo))
}

// HandleList returns a user's photos, oldest first.
//
// HTTP: GET /api/users/{userId}/photos
func (h *PhotoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	photos, err := h.photos.ListPhotos(r.Context(), principalFrom(r), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toPhotoResponses(photos))
}

// HandleUpload adds a photo to the caller's profile.
//
// HTTP: POST /api/users/{userId}/photos
// BODY: multipart/form-data with "file" and an optional "description"
// RESPONSE: 201 Created, Location: /api/users/{userId}/photos/{id}
//
// UPLOAD LIMITS:
// http.MaxBytesReader stops reading after maxUploadBytes, so an oversized
// upload fails fast instead of being buffered in full.
func (h *PhotoHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	p := principalFrom(r)

	// Identity first, before reading a potentially large body.
	if !policy.Authorize(p.UserID, userID) {
		writeError(w, h.logger, apperror.Unauthorized("you can only add photos to your own profile"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error:   "too_large",
				Message: fmt.Sprintf("photo must be %d bytes or smaller", h.maxUploadBytes),
				Field:   "file",
			})
			return
		}
		writeError(w, h.logger, apperror.ValidationFailed("file", "a photo file is required in the \"file\" field"))
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeError(w, h.logger, apperror.ValidationFailed("file", "the photo file is empty"))
		return
	}

	// Sniff the real type from the first 512 bytes, then stitch them back on.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		writeError(w, h.logger, apperror.ValidationFailed("file", "the photo file could not be read"))
		return
	}
	head = head[:n]
	if contentType := http.DetectContentType(head); !allowedImageTypes[contentType] {
		writeError(w, h.logger, apperror.ValidationFailed("file",
			fmt.Sprintf("unsupported file type %s; use JPEG, PNG, GIF or WebP", contentType)))
		return
	}

	photo, err := h.photos.AddPhoto(r.Context(), p, userID, service.PhotoUpload{
		File:        io.MultiReader(bytes.NewReader(head), file),
		Filename:    header.Filename,
		Description: r.FormValue("description"),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/users/%s/photos/%s", userID, photo.ID))
	writeJSON(w, http.StatusCreated, toPhotoResponse(photo))
}

// HandleSetMain makes a photo the caller's main photo.
//
// HTTP: POST /api/users/{userId}/photos/{id}/setMain → 204 No Content
func (h *PhotoHandler) HandleSetMain(w http.ResponseWriter, r *http.Request) {
	err := h.photos.SetMain(r.Context(), principalFrom(r), chi.URLParam(r, "userId"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelete removes one of the caller's photos.
//
// HTTP: DELETE /api/users/{userId}/photos/{id} → 200 OK
func (h *PhotoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	err := h.photos.DeletePhoto(r.Context(), principalFrom(r), chi.URLParam(r, "userId"), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "photo deleted"})
}
