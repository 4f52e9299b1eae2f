package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// SourceType tags which retrieval strategy handles an ingestion request.
type SourceType string

// Supported source types.
const (
	SourceS3    SourceType = "s3"
	SourceLocal SourceType = "local"
	SourceAPI   SourceType = "api"
)

// Mode selects how ingestion failures reach the caller.
type Mode string

const (
	// ModeCompat returns an empty table for contained failures and an error
	// only for faults outside the documented conditions.
	ModeCompat Mode = "compat"

	// ModeStrict reports every failure with its kind.
	ModeStrict Mode = "strict"
)

var (
	ErrUnknownSource = errors.New("unknown source type")
	ErrUnknownMode   = errors.New("unknown ingestion mode")
	ErrMissingField  = errors.New("required field is missing")
)

// ParseSourceType normalizes a source tag.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s3", "object-storage", "objectstorage":
		return SourceS3, nil
	case "local", "local-filesystem", "filesystem", "file":
		return SourceLocal, nil
	case "api", "http":
		return SourceAPI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// ParseMode normalizes an ingestion mode. Empty means compat.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "compat":
		return ModeCompat, nil
	case "strict":
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Source is a resolved ingestion request carrying only the fields its
// strategy reads. The concrete types are S3Source, LocalSource and APISource.
type Source interface {
	Type() SourceType
}

// S3Source lists and fetches objects under Bucket/Prefix.
type S3Source struct {
	Bucket string
	Prefix string
	Suffix string
}

// Type implements Source.
func (S3Source) Type() SourceType { return SourceS3 }

// LocalSource reads one delimited text file.
type LocalSource struct {
	Path string
}

// Type implements Source.
func (LocalSource) Type() SourceType { return SourceLocal }

// APISource performs a single GET against URL.
type APISource struct {
	URL       string
	AuthToken string
	Timeout   time.Duration
}

// Type implements Source.
func (APISource) Type() SourceType { return SourceAPI }

// Resolve builds the source variant for t from the flat option set.
// A missing required key is reported as ErrMissingField naming the key.
// Resolve does not look at Enabled; routing is the dispatcher's job.
func (c IngestionConfig) Resolve(t SourceType) (Source, error) {
	switch t {
	case SourceS3:
		if strings.TrimSpace(c.Bucket) == "" {
			return nil, missing("bucket")
		}
		suffix := c.Suffix
		if suffix == "" {
			suffix = DefaultSuffix
		}
		return S3Source{Bucket: c.Bucket, Prefix: c.Prefix, Suffix: suffix}, nil

	case SourceLocal:
		if strings.TrimSpace(c.FilePath) == "" {
			return nil, missing("file_path")
		}
		return LocalSource{Path: c.FilePath}, nil

	case SourceAPI:
		if strings.TrimSpace(c.URL) == "" {
			return nil, missing("url")
		}
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = DefaultAPITimeout
		}
		return APISource{URL: c.URL, AuthToken: c.AuthToken, Timeout: timeout}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, string(t))
	}
}

func missing(key string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, key)
}
