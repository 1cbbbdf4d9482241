package avatars

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nexora-chat/apiserver/config"
)

// ObjectStore abstracts the bucket operations the avatar pool needs
// across storage backends.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// NewObjectStore constructs the storage backend selected by config.
// Backend must be one of "minio" or "gcs".
func NewObjectStore(ctx context.Context, cfg config.AvatarsConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "minio":
		return NewMinioStore(cfg.Minio)
	case "gcs":
		return NewGCSStore(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown avatar storage backend %q", cfg.Backend)
	}
}

// Key returns the object key for a pool index.
func Key(index int) string {
	return fmt.Sprintf("%d.png", index)
}

// Seed uploads the pool images found in dir (named 1.png .. 100.png)
// into the store and returns the number uploaded.
func Seed(ctx context.Context, store ObjectStore, dir string) (int, error) {
	if err := store.EnsureBucket(ctx); err != nil {
		return 0, err
	}

	uploaded := 0
	for index := 1; index <= PoolSize; index++ {
		name := Key(index)
		path := filepath.Join(dir, name)
		file, err := os.Open(path)
		if err != nil {
			return uploaded, fmt.Errorf("open %s: %w", path, err)
		}
		info, err := file.Stat()
		if err != nil {
			_ = file.Close()
			return uploaded, err
		}
		err = store.Put(ctx, name, file, info.Size(), "image/png")
		_ = file.Close()
		if err != nil {
			return uploaded, fmt.Errorf("upload %s: %w", name, err)
		}
		uploaded++
	}
	return uploaded, nil
}
