package emitter

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/GabrielNunesIT/go-libs/logger"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/model"
)

const defaultBatchSize = 500

// HTTPEmitter pushes rows as newline-delimited JSON to a downstream endpoint.
type HTTPEmitter struct {
	cfg    config.HTTPEmitterConfig
	client HTTPDoer
	logger logger.ILogger
}

// HTTPOption configures an HTTPEmitter.
type HTTPOption func(*HTTPEmitter)

// WithHTTPClient sets a custom HTTP client for testing.
func WithHTTPClient(client HTTPDoer) HTTPOption {
	return func(h *HTTPEmitter) {
		h.client = client
	}
}

// NewHTTPEmitter creates a new HTTP push emitter.
func NewHTTPEmitter(cfg config.HTTPEmitterConfig, log logger.ILogger, opts ...HTTPOption) *HTTPEmitter {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultAPITimeout
	}
	h := &HTTPEmitter{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: log.SubLogger("HTTPEmitter"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Name returns the emitter identifier.
func (h *HTTPEmitter) Name() string {
	return "http"
}

// Start checks that a target URL is configured.
func (h *HTTPEmitter) Start(ctx context.Context) error {
	if h.cfg.URL == "" {
		return fmt.Errorf("http emitter: url is required")
	}
	h.logger.Infof("pushing tables to: url=%s batch_size=%d", h.cfg.URL, h.cfg.BatchSize)
	return nil
}

// Stop is a no-op; Emit sends synchronously.
func (h *HTTPEmitter) Stop(ctx context.Context) error {
	return nil
}

// Emit posts the rows in chunks of BatchSize. The first failed chunk aborts
// the remaining ones.
func (h *HTTPEmitter) Emit(ctx context.Context, batch *Batch) error {
	if batch == nil || batch.Table.IsEmpty() {
		return nil
	}

	rows := batch.Table.Rows
	for start := 0; start < len(rows); start += h.cfg.BatchSize {
		end := min(start+h.cfg.BatchSize, len(rows))
		chunk := &Batch{
			RunID:      batch.RunID,
			Source:     batch.Source,
			IngestedAt: batch.IngestedAt,
			Table:      &model.Table{Columns: batch.Table.Columns, Rows: rows[start:end]},
		}
		if err := h.push(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (h *HTTPEmitter) push(ctx context.Context, chunk *Batch) error {
	var buf bytes.Buffer
	if err := encodeJSONLines(&buf, chunk); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	req.Header.Set("X-Run-Id", chunk.RunID)
	if h.cfg.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.cfg.AuthToken)
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Debugf("push failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		h.logger.Debugf("push failed: status=%d", resp.StatusCode)
		return fmt.Errorf("http push failed with status: %d", resp.StatusCode)
	}

	h.logger.Debugf("pushed %d rows in %s", chunk.Table.Len(), time.Since(start))
	return nil
}
