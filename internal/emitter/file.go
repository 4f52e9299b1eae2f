package emitter

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/natefinch/lumberjack"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// WriterFactory creates a new WriteCloser.
type WriterFactory func(cfg config.FileEmitterConfig) (io.WriteCloser, error)

// FileOption configures the FileEmitter.
type FileOption func(*FileEmitter)

// WithWriterFactory sets a custom factory for creating the writer.
func WithWriterFactory(f WriterFactory) FileOption {
	return func(e *FileEmitter) {
		e.factory = f
	}
}

// ErrNoPath is returned when the file emitter has no target path.
var ErrNoPath = errors.New("file emitter: path is required")

// FileEmitter appends tables to a size-rotated file.
type FileEmitter struct {
	cfg     config.FileEmitterConfig
	factory WriterFactory
	writer  io.WriteCloser
	mu      sync.Mutex
}

// NewFileEmitter creates a new file emitter.
func NewFileEmitter(cfg config.FileEmitterConfig, opts ...FileOption) *FileEmitter {
	e := &FileEmitter{
		cfg:     cfg,
		factory: rotatingWriter,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func rotatingWriter(cfg config.FileEmitterConfig) (io.WriteCloser, error) {
	if cfg.Path == "" {
		return nil, ErrNoPath
	}
	return &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}, nil
}

// Name returns the emitter identifier.
func (f *FileEmitter) Name() string {
	return "file"
}

// Start opens the rotating file writer.
func (f *FileEmitter) Start(ctx context.Context) error {
	if err := CheckFormat(f.cfg.Format); err != nil {
		return err
	}
	w, err := f.factory(f.cfg)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.writer = w
	f.mu.Unlock()
	return nil
}

// Stop closes the file writer.
func (f *FileEmitter) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return nil
	}
	err := f.writer.Close()
	f.writer = nil
	return err
}

// Emit appends the batch to the file. Emit before Start is a no-op.
func (f *FileEmitter) Emit(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Table.IsEmpty() {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.writer == nil {
		return nil
	}
	return encodeBatch(f.writer, f.cfg.Format, batch)
}
