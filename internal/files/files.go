// Package files handles image intake from multipart requests and serves
// stored objects back to clients.
package files

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
)

// MaxImageSize caps uploaded images at 512 KiB.
const MaxImageSize = 512 << 10

// extByMime whitelists accepted image types and picks the stored extension.
var extByMime = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
}

var errBadImage = errors.New("files: unsupported or oversized image")

// Store is the object storage the package reads and writes.
type Store interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// SaveUpload reads the named file field from an already-parsed multipart
// request and stores it under a random object key. Returns ("", nil) when the
// field is absent, since images are optional at creation.
func SaveUpload(ctx context.Context, store Store, r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	if header.Size > MaxImageSize {
		return "", errBadImage
	}

	contentType := header.Header.Get("Content-Type")
	ext, ok := extByMime[contentType]
	if !ok {
		return "", errBadImage
	}

	data, err := io.ReadAll(io.LimitReader(file, MaxImageSize+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxImageSize {
		return "", errBadImage
	}

	key := uuid.New().String() + "." + ext
	if err := store.Upload(ctx, key, data, contentType); err != nil {
		return "", err
	}
	return key, nil
}

// IsBadImage reports whether err means the upload was rejected rather than
// the store failing.
func IsBadImage(err error) bool {
	return errors.Is(err, errBadImage)
}
