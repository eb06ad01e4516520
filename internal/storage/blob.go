// Package storage uploads user media (reference photos, template inputs) and
// returns the public URL that providers fetch it from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidiai/internal/infra"
)

// BlobStore stores data under name and returns its public URL.
type BlobStore interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}

// ErrEmptyUpload is returned for zero-length payloads.
var ErrEmptyUpload = errors.New("storage: empty upload")

// New builds the backend selected by cfg.BlobBackend.
func New(ctx context.Context, cfg *infra.Config) (BlobStore, error) {
	switch cfg.BlobBackend {
	case infra.BlobS3:
		return NewS3Store(ctx, S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
	case infra.BlobRemote:
		return NewRemoteStore(RemoteOptions{Endpoint: cfg.UploadRemoteURL})
	case infra.BlobFilesystem, "":
		return NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
	default:
		return nil, fmt.Errorf("storage: unknown blob backend %q", cfg.BlobBackend)
	}
}

// ObjectKey builds a collision-free key under uploads/<yyyy>/<mm>/ keeping a
// sanitized extension from name (default .jpg).
func ObjectKey(now time.Time, name string) string {
	ext := strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
	if !validExt(ext) {
		ext = ".jpg"
	}
	return fmt.Sprintf("uploads/%s/%d_%s%s", now.UTC().Format("2006/01"), now.Unix(), uuid.NewString(), ext)
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 6 {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
