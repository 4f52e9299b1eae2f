package emitter

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// StdoutEmitter writes tables to standard output.
type StdoutEmitter struct {
	cfg    config.StdoutEmitterConfig
	writer io.Writer
	mu     sync.Mutex
	logger logger.ILogger
}

// NewStdoutEmitter creates a new stdout emitter.
func NewStdoutEmitter(cfg config.StdoutEmitterConfig, log logger.ILogger) *StdoutEmitter {
	return NewStdoutEmitterWithWriter(cfg, os.Stdout, log)
}

// NewStdoutEmitterWithWriter creates a stdout emitter with a custom writer (for testing).
func NewStdoutEmitterWithWriter(cfg config.StdoutEmitterConfig, w io.Writer, log logger.ILogger) *StdoutEmitter {
	return &StdoutEmitter{
		cfg:    cfg,
		writer: w,
		logger: log.SubLogger("StdoutEmitter"),
	}
}

// Name returns the emitter identifier.
func (s *StdoutEmitter) Name() string {
	return "stdout"
}

// Start validates the output format.
func (s *StdoutEmitter) Start(ctx context.Context) error {
	if err := CheckFormat(s.cfg.Format); err != nil {
		return err
	}
	s.logger.Debugf("stdout emitter started: format=%s", s.cfg.Format)
	return nil
}

// Stop is a no-op for stdout.
func (s *StdoutEmitter) Stop(ctx context.Context) error {
	s.logger.Debug("stdout emitter stopped")
	return nil
}

// Emit writes the batch to stdout.
func (s *StdoutEmitter) Emit(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Table.IsEmpty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return encodeBatch(s.writer, s.cfg.Format, batch)
}
