package ingestor

import (
	"errors"
	"fmt"

	"github.com/GabrielNunesIT/flowbase/internal/config"
	"github.com/GabrielNunesIT/flowbase/internal/model"
)

// ErrorKind classifies why an ingestion produced no data.
type ErrorKind string

// Error kinds.
const (
	KindNone ErrorKind = "none"

	// KindRejected: the source is disabled or its tag is not supported.
	KindRejected ErrorKind = "rejected"

	// KindConfig: a required option or collaborator is missing.
	KindConfig ErrorKind = "config"

	// KindNotFound: the local file does not exist or the listing was empty.
	KindNotFound ErrorKind = "not_found"

	// KindStatus: the API answered with a non-200 status.
	KindStatus ErrorKind = "status"

	// KindTransport: network, timeout or object-store client failure.
	KindTransport ErrorKind = "transport"

	// KindIO: local filesystem failure other than a missing file.
	KindIO ErrorKind = "io"

	// KindParse: the payload could not be decoded into a table.
	KindParse ErrorKind = "parse"

	// KindInternal: anything else, including a recovered panic.
	KindInternal ErrorKind = "internal"
)

// Sentinel causes carried inside *Error.
var (
	ErrSourceRejected   = errors.New("invalid source or source disabled in config")
	ErrNoObjectStore    = errors.New("no object store configured")
	ErrNoObjects        = errors.New("no objects found")
	ErrFileNotFound     = errors.New("file does not exist")
	ErrUnexpectedStatus = errors.New("unexpected http status")
)

// Error describes a failed ingestion.
type Error struct {
	Kind       ErrorKind
	Source     config.SourceType
	Op         string
	StatusCode int // set for KindStatus
	Err        error
}

func (e *Error) Error() string {
	src := string(e.Source)
	if src == "" {
		src = "unknown"
	}
	return fmt.Sprintf("%s ingestion: %s failed (%s): %v", src, e.Op, e.Kind, e.Err)
}

// Unwrap returns the underlying cause for errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, source config.SourceType, op string, err error) *Error {
	return &Error{Kind: kind, Source: source, Op: op, Err: err}
}

// KindOf extracts the kind of an ingestion error.
// nil yields KindNone; errors that are not *Error yield KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var ierr *Error
	if errors.As(err, &ierr) {
		return ierr.Kind
	}
	return KindInternal
}

// Contained reports whether compat mode swallows an error of this kind for
// this source. The API strategy contains everything it anticipates; the
// file-based strategies contain only missing-resource conditions.
func Contained(source config.SourceType, kind ErrorKind) bool {
	switch kind {
	case KindNone, KindRejected, KindNotFound, KindStatus:
		return true
	case KindConfig, KindTransport, KindParse:
		return source == config.SourceAPI
	default:
		return false
	}
}

// Result is the outcome of a bounded ingestion run.
// Exactly one of these holds: Kind == KindNone and Err == nil, or
// Kind != KindNone and Err != nil. Table is never nil.
type Result struct {
	Table *model.Table
	Kind  ErrorKind
	Err   error
}

// OK reports whether the ingestion succeeded (possibly with zero rows).
func (r Result) OK() bool {
	return r.Kind == KindNone
}

// Failed reports whether the ingestion failed.
func (r Result) Failed() bool {
	return !r.OK()
}

func okResult(t *model.Table) Result {
	if t == nil {
		t = model.Empty()
	}
	return Result{Table: t, Kind: KindNone}
}

func failedResult(err error) Result {
	return Result{Table: model.Empty(), Kind: KindOf(err), Err: err}
}
