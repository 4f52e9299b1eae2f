// Package emitter defines the interface and implementations for table destinations.
package emitter

import (
	"context"
	"net/http"
	"time"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/model"
)

// Batch is one ingestion run's output handed to the emitters.
type Batch struct {
	RunID      string
	Source     config.SourceType
	IngestedAt time.Time
	Table      *model.Table
}

// Emitter defines the contract for table destinations.
type Emitter interface {
	// Start initializes the emitter (writers, clients).
	// Called once before Emit is called.
	Start(ctx context.Context) error

	// Emit writes every row of the batch.
	// Must be safe to call concurrently. An empty table is a no-op.
	Emit(ctx context.Context, batch *Batch) error

	// Stop releases resources and flushes pending output.
	Stop(ctx context.Context) error

	// Name returns a unique identifier for this emitter.
	Name() string
}

// HTTPDoer abstracts HTTP client operations for testing.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Ensure http.Client implements HTTPDoer.
var _ HTTPDoer = (*http.Client)(nil)
