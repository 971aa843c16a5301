// Package local stores photos on the local filesystem.
//
// It is the development and test backend for media.Store. Uploaded images are
// decoded, fill-cropped to the requested size and re-encoded as JPEG under
// Dir. The HTTP server exposes Dir at BaseURL so the returned URLs resolve.
//
// FACE GRAVITY:
// Cloudinary can centre a crop on a detected face. There is no face detector
// here, so a "face" focus falls back to a centred crop.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/sakif/datingapp/internal/media"
)

const jpegQuality = 85

// MaxPixels caps the decoded size of an upload. A few hundred KB of
// compressed PNG can declare a canvas that needs gigabytes once decoded.
const MaxPixels = 40_000_000

var _ media.Store = (*Store)(nil)

// ErrInvalidImage means the upload could not be decoded as an image.
var ErrInvalidImage = errors.New("local: invalid image")

// Store is a filesystem-backed media.Store.
type Store struct {
	dir     string
	baseURL string
}

// New creates the directory if needed and returns a Store serving files
// under baseURL (e.g. "/media" or "https://cdn.example.com/media").
func New(dir, baseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("local: creating media dir %s: %w", dir, err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the directory files are written to.
func (s *Store) Dir() string { return s.dir }

// Upload decodes file, applies t and writes the result as <uuid>.jpg.
// Images larger than MaxPixels are rejected with ErrInvalidImage before any
// pixel data is decoded.
// The public ID is the uuid; filename is only used in error messages.
func (s *Store) Upload(ctx context.Context, file io.Reader, filename string, t media.Transform) (*media.UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Read the header first and keep the consumed bytes so the full decode
	// can start from the beginning again.
	var head bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(file, &head))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidImage, filename, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %s: %dx%d exceeds %d pixels",
			ErrInvalidImage, filename, cfg.Width, cfg.Height, MaxPixels)
	}

	src, _, err := image.Decode(io.MultiReader(&head, file))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidImage, filename, err)
	}

	out := src
	if t.Width > 0 && t.Height > 0 {
		out = fillCrop(src, t.Width, t.Height)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	publicID := uuid.New().String()
	dest := s.path(publicID)

	// Write to a temp file and rename so a half-written file is never served.
	tmp, err := os.CreateTemp(s.dir, "upload_*.tmp")
	if err != nil {
		return nil, fmt.Errorf("local: creating temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()
	if err := jpeg.Encode(tmp, out, &jpeg.Options{Quality: jpegQuality}); err != nil {
		_ = tmp.Close()
		return nil, fmt.Errorf("local: encoding %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("local: closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, fmt.Errorf("local: storing %s: %w", filename, err)
	}

	return &media.UploadResult{
		URL:      s.baseURL + "/" + publicID + ".jpg",
		PublicID: publicID,
	}, nil
}

// Destroy removes the file for publicID. A missing file is reported as
// media.ResultNotFound, not as an error.
func (s *Store) Destroy(ctx context.Context, publicID string) (*media.DestroyResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Public IDs are uuids we generated; anything else could escape dir.
	if _, err := uuid.Parse(publicID); err != nil {
		return &media.DestroyResult{Result: media.ResultNotFound}, nil
	}

	err := os.Remove(s.path(publicID))
	if errors.Is(err, os.ErrNotExist) {
		return &media.DestroyResult{Result: media.ResultNotFound}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("local: removing %s: %w", publicID, err)
	}
	return &media.DestroyResult{Result: media.ResultOK}, nil
}

func (s *Store) path(publicID string) string {
	return filepath.Join(s.dir, publicID+".jpg")
}

// fillCrop scales src to cover w x h and crops the overflow evenly from both
// sides, so the output is exactly w x h.
func fillCrop(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()

	// Largest region of src with the target aspect ratio, centred.
	cropW, cropH := sw, sw*h/w
	if cropH > sh {
		cropW, cropH = sh*w/h, sh
	}
	x0 := b.Min.X + (sw-cropW)/2
	y0 := b.Min.Y + (sh-cropH)/2
	region := image.Rect(x0, y0, x0+cropW, y0+cropH)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, region, draw.Src, nil)
	return dst
}
