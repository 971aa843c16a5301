// Package cloudinary implements media.Store on top of the Cloudinary upload API.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/sakif/datingapp/internal/media"
)

// DefaultFolder groups the app's assets in the Cloudinary media library.
const DefaultFolder = "datingapp"

var _ media.Store = (*Store)(nil)

// uploadAPI is the part of uploader.API the store calls. Tests replace it.
type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
	Destroy(ctx context.Context, params uploader.DestroyParams) (*uploader.DestroyResult, error)
}

// Store uploads to a single Cloudinary account.
type Store struct {
	api    uploadAPI
	folder string
}

// New builds a Store from account credentials.
func New(cloudName, apiKey, apiSecret string) (*Store, error) {
	if cloudName == "" || apiKey == "" || apiSecret == "" {
		return nil, errors.New("cloudinary: cloud name, api key and api secret are required")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: creating client: %w", err)
	}
	return &Store{api: &cld.Upload, folder: DefaultFolder}, nil
}

// Upload sends file to Cloudinary with t applied as an incoming transformation,
// so only the cropped version is stored.
//
// Cloudinary reports API-level failures (bad credentials, unsupported file)
// inside the result with a nil error; those are turned into errors here.
func (s *Store) Upload(ctx context.Context, file io.Reader, filename string, t media.Transform) (*media.UploadResult, error) {
	resp, err := s.api.Upload(ctx, file, uploader.UploadParams{
		Folder:         s.folder,
		Transformation: t.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("cloudinary: uploading %s: %w", filename, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary: uploading %s: %s", filename, resp.Error.Message)
	}
	return &media.UploadResult{URL: resp.SecureURL, PublicID: resp.PublicID}, nil
}

// Destroy deletes the asset. Cloudinary answers "ok" or "not found".
func (s *Store) Destroy(ctx context.Context, publicID string) (*media.DestroyResult, error) {
	resp, err := s.api.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return nil, fmt.Errorf("cloudinary: destroying %s: %w", publicID, err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary: destroying %s: %s", publicID, resp.Error.Message)
	}
	return &media.DestroyResult{Result: resp.Result}, nil
}
