// Package storage stores uploaded product images on the configured disk.
//
// Two drivers are available:
//   - "local": the local filesystem, served by the HTTP server under /storage
//   - "s3":    S3-compatible object storage (AWS S3, MinIO, R2, Spaces)
//
//	disk, err := storage.FromConfig(ctx)
//	err = disk.Put(ctx, "products/p1/mug.png", r, "image/png")
//	url := disk.URL("products/p1/mug.png")
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/shashiranjanraj/shopfront/config"
)

// ErrInvalidPath is returned for keys that try to leave the disk root.
var ErrInvalidPath = errors.New("storage: invalid path")

// Disk is the driver interface.
type Disk interface {
	// Put writes r to key, replacing any existing object.
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Get opens key for reading. Caller must close it.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) bool
	// Delete removes key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
	// URL returns the public URL for key.
	URL(key string) string
}

// FromConfig builds the disk named by STORAGE_DISK.
func FromConfig(ctx context.Context) (Disk, error) {
	switch name := config.StorageDefault(); name {
	case "local":
		return NewLocal(config.StorageLocalRoot(), config.StorageURL())
	case "s3":
		return NewS3(ctx, S3Options{
			Bucket:   config.StorageS3Bucket(),
			Region:   config.StorageS3Region(),
			Key:      config.StorageS3Key(),
			Secret:   config.StorageS3Secret(),
			Endpoint: config.StorageS3Endpoint(),
			BaseURL:  config.StorageS3URL(),
		})
	default:
		return nil, fmt.Errorf("storage: unknown disk %q (supported: local, s3)", name)
	}
}

// CleanKey normalises key to a slash-separated relative path.
func CleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.HasPrefix(k, "..") {
		return "", ErrInvalidPath
	}
	return k, nil
}
