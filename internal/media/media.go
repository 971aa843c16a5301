// Package media defines the contract between the photo service and the place
// image bytes actually live.
//
// WHY AN INTERFACE?
// Production uploads go to Cloudinary; development and tests write to the
// local disk. The service only ever sees Store, so swapping backends is a
// config change (MEDIA_BACKEND) rather than a code change, and service tests
// use a recording fake instead of a network call.
//
// THE TWO CALLS:
//
//	Upload  → bytes in, (public URL, public ID) out
//	Destroy → public ID in, a result string out ("ok" on success)
//
// Destroy reports a result rather than failing outright because remote stores
// answer "not found" with a 200. The caller decides what a non-"ok" result
// means; for photo deletion it is a refusal to delete the record.
package media

import (
	"context"
	"fmt"
	"io"
)

// ResultOK is the Destroy result that confirms the asset is gone.
const ResultOK = "ok"

// ResultNotFound is returned by Destroy when the store has no such asset.
const ResultNotFound = "not found"

// Transform describes how the store should reshape an uploaded image.
type Transform struct {
	Width  int
	Height int
	Crop   string // "fill" crops to exactly Width x Height
	Focus  string // "face" centres the crop on a detected face where supported
}

// ProfileTransform is applied to every profile photo upload.
var ProfileTransform = Transform{Width: 500, Height: 500, Crop: "fill", Focus: "face"}

// String renders the transform in Cloudinary's URL syntax, e.g. "c_fill,g_face,h_500,w_500".
func (t Transform) String() string {
	s := fmt.Sprintf("c_%s", t.Crop)
	if t.Focus != "" {
		s += ",g_" + t.Focus
	}
	return s + fmt.Sprintf(",h_%d,w_%d", t.Height, t.Width)
}

// UploadResult is what the store hands back after a successful upload.
type UploadResult struct {
	URL      string
	PublicID string
}

// DestroyResult reports the outcome of a Destroy call.
type DestroyResult struct {
	Result string
}

// OK reports whether the store confirmed the deletion.
func (r *DestroyResult) OK() bool {
	return r != nil && r.Result == ResultOK
}

// Store uploads and destroys image assets.
//
// Implementations must honour ctx cancellation: the service bounds every call
// with MEDIA_TIMEOUT so a slow store cannot hold a request forever.
type Store interface {
	Upload(ctx context.Context, file io.Reader, filename string, t Transform) (*UploadResult, error)
	Destroy(ctx context.Context, publicID string) (*DestroyResult, error)
}
