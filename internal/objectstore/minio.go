package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// MinIOStore implements Store using the minio-go SDK.
type MinIOStore struct {
	client *minio.Client
}

// Compile-time check.
var _ Store = (*MinIOStore)(nil)

// NewMinIO creates a MinIOStore from config. Endpoint and static
// credentials are required.
func NewMinIO(cfg config.ObjectStoreConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("minio credentials are required")
	}

	// Accept both "host:port" and "https://host:port"
	endpoint := cfg.Endpoint
	useSSL := cfg.UseSSL
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		useSSL = u.Scheme == "https"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating minio client: %w", err)
	}

	return &MinIOStore{client: client}, nil
}

// List returns at most MaxListKeys keys under prefix, recursively.
func (m *MinIOStore) List(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel() // Stops the lister goroutine when we return early

	var objects []ObjectInfo
	for obj := range m.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   MaxListKeys,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list minio objects bucket=%q prefix=%q: %w", bucket, prefix, obj.Err)
		}
		objects = append(objects, ObjectInfo{Key: obj.Key, Size: obj.Size})
		if len(objects) >= MaxListKeys {
			break
		}
	}
	return objects, nil
}

// Get reads the full body of one object.
func (m *MinIOStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get minio object key=%q: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read minio object key=%q: %w", key, err)
	}
	return data, nil
}
