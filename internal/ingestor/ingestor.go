// Package ingestor routes an ingestion request to the object-storage,
// local-filesystem or API strategy and returns a uniform table.
//
// Two entry points share the same routing and strategies:
//   - Ingest keeps the compat contract: contained failures become an empty
//     table with a nil error, everything else is returned as an error.
//   - Run is a fault boundary: every failure, including a panic inside a
//     strategy, comes back as a Result tagged with its ErrorKind.
package ingestor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/model"
	"github.com/GabrielNunesIT/flowbase/internal/objectstore"
)

// FileSystem is the local-filesystem capability used by the local strategy.
type FileSystem interface {
	Exists(path string) (bool, error)
	Open(path string) (io.ReadCloser, error)
}

// HTTPDoer abstracts HTTP client operations for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ensure http.Client implements HTTPDoer.
var _ HTTPDoer = (*http.Client)(nil)

// OSFileSystem implements FileSystem on top of the os package.
type OSFileSystem struct{}

// Exists reports whether path exists. Errors other than "not exist"
// (permissions, broken mounts) are returned as-is.
func (OSFileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Open opens path for reading.
func (OSFileSystem) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObjectStore sets the object store used by the s3 strategy.
func WithObjectStore(store objectstore.Store) Option {
	return func(d *Dispatcher) {
		d.store = store
	}
}

// WithFileSystem replaces the OS filesystem.
func WithFileSystem(fsys FileSystem) Option {
	return func(d *Dispatcher) {
		d.fs = fsys
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(d *Dispatcher) {
		d.client = client
	}
}

// Dispatcher selects and runs an ingestion strategy.
// It holds no per-call state; concurrent calls are safe when the injected
// collaborators are.
type Dispatcher struct {
	store  objectstore.Store
	fs     FileSystem
	client HTTPDoer
	logger logger.ILogger
}

// New creates a dispatcher. Without options it reads the OS filesystem,
// uses a plain http.Client, and has no object store.
func New(log logger.ILogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		fs:     OSFileSystem{},
		client: &http.Client{},
		logger: log.SubLogger("Dispatcher"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Ingest runs one ingestion with the compat contract.
//
// The returned table is never nil. The error is non-nil only for faults
// that compat mode does not contain (see Contained); the table is then empty.
func (d *Dispatcher) Ingest(ctx context.Context, cfg config.IngestionConfig, source config.SourceType) (*model.Table, error) {
	tbl, err := d.dispatch(ctx, cfg, source)
	if err == nil {
		return tbl, nil
	}
	if Contained(source, KindOf(err)) {
		return model.Empty(), nil
	}
	return model.Empty(), err
}

// Run runs one ingestion inside a fault boundary and never panics or
// returns an untagged failure.
func (d *Dispatcher) Run(ctx context.Context, cfg config.IngestionConfig, source config.SourceType) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Errorf("ingestion panicked: source=%s panic=%v", source, r)
			res = failedResult(newError(KindInternal, source, "ingest", fmt.Errorf("panic: %v", r)))
		}
	}()

	tbl, err := d.dispatch(ctx, cfg, source)
	if err != nil {
		return failedResult(err)
	}
	return okResult(tbl)
}

// dispatch applies the routing policy. Order matters: s3 and api require
// Enabled, local does not.
func (d *Dispatcher) dispatch(ctx context.Context, cfg config.IngestionConfig, source config.SourceType) (*model.Table, error) {
	switch {
	case source == config.SourceS3 && cfg.Enabled:
	case source == config.SourceLocal:
	case source == config.SourceAPI && cfg.Enabled:
	default:
		d.logger.Errorf("invalid source or source disabled in config: source=%q enabled=%t", source, cfg.Enabled)
		return model.Empty(), newError(KindRejected, source, "route", ErrSourceRejected)
	}

	src, err := cfg.Resolve(source)
	if err != nil {
		d.logger.Errorf("invalid %s configuration: %v", source, err)
		return model.Empty(), newError(KindConfig, source, "configure", err)
	}

	switch s := src.(type) {
	case config.S3Source:
		return d.ingestS3(ctx, s)
	case config.LocalSource:
		return d.ingestLocal(s)
	case config.APISource:
		return d.ingestAPI(ctx, s)
	default:
		return model.Empty(), newError(KindInternal, source, "route", fmt.Errorf("no strategy for %T", src))
	}
}
