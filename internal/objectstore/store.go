// Package objectstore provides the listing and fetch capability the
// object-storage ingestion strategy depends on, with S3 and MinIO backends.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// ObjectInfo describes one listed object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Store lists and fetches objects.
// List performs a single listing call; keys beyond the first page are not returned.
type Store interface {
	List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, bucket, key string) ([]byte, error)
}

// MaxListKeys is the page size of the single listing call.
const MaxListKeys = 1000

var ErrUnknownProvider = errors.New("unknown object store provider")

// New builds the Store selected by cfg.Provider.
func New(ctx context.Context, cfg config.ObjectStoreConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "s3":
		return NewS3(ctx, cfg)
	case "minio":
		return NewMinIO(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
