// Package config provides configuration loading with layered overrides.
// Load order: defaults -> YAML/JSON file -> environment variables.
package config

import (
	"os"
	"time"

	configloader "github.com/GabrielNunesIT/go-libs/config-loader"
)

// EnvPrefix is the prefix for environment variable overrides.
// FLOWBASE_INGESTION_ENABLED maps to ingestion.enabled.
const EnvPrefix = "FLOWBASE_"

// DefaultAPITimeout bounds a single API request.
const DefaultAPITimeout = 10 * time.Second

// DefaultSuffix selects delimited-text objects in a bucket listing.
const DefaultSuffix = ".csv"

// Config is the root configuration structure for flowbase.
type Config struct {
	LogLevel    string            `koanf:"loglevel" json:"log_level"`
	Logging     LoggingConfig     `koanf:"logging"`
	Ingestion   IngestionConfig   `koanf:"ingestion"`
	ObjectStore ObjectStoreConfig `koanf:"objectstore" json:"object_store"`
	Emitters    EmitterConfig     `koanf:"emitters"`
}

// LoggingConfig controls where diagnostics are written besides stderr.
type LoggingConfig struct {
	Dir        string `koanf:"dir"` // empty disables the log file
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"maxsizemb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// IngestionConfig is the per-call option set read by the dispatcher.
// Which keys matter depends on the source type; see Resolve.
type IngestionConfig struct {
	Source    string        `koanf:"source"` // "s3", "local" or "api"
	Mode      string        `koanf:"mode"`   // "compat" or "strict"
	Enabled   bool          `koanf:"enabled"`
	Bucket    string        `koanf:"bucket"`
	Prefix    string        `koanf:"prefix"`
	Suffix    string        `koanf:"suffix"`
	FilePath  string        `koanf:"filepath" json:"file_path"`
	URL       string        `koanf:"url"`
	AuthToken string        `koanf:"authtoken" json:"auth_token"`
	Timeout   time.Duration `koanf:"timeout"`
}

// ObjectStoreConfig configures the object-storage client.
// Credentials left empty fall back to the provider's default chain.
type ObjectStoreConfig struct {
	Provider        string `koanf:"provider"` // "s3" or "minio"
	Region          string `koanf:"region"`
	Endpoint        string `koanf:"endpoint"`
	AccessKeyID     string `koanf:"accesskeyid" json:"access_key_id"`
	SecretAccessKey string `koanf:"secretaccesskey" json:"secret_access_key"`
	UsePathStyle    bool   `koanf:"usepathstyle" json:"use_path_style"`
	UseSSL          bool   `koanf:"usessl" json:"use_ssl"`
}

// EmitterConfig holds configuration for all table destinations.
type EmitterConfig struct {
	Stdout StdoutEmitterConfig `koanf:"stdout"`
	File   FileEmitterConfig   `koanf:"file"`
	HTTP   HTTPEmitterConfig   `koanf:"http"`
}

// StdoutEmitterConfig configures the stdout emitter.
type StdoutEmitterConfig struct {
	Enabled bool   `koanf:"enabled"`
	Format  string `koanf:"format"` // "json", "text" or "csv"
}

// FileEmitterConfig configures the rotating file emitter.
type FileEmitterConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	Format     string `koanf:"format"` // "json" or "csv"
	MaxSizeMB  int    `koanf:"maxsizemb" json:"max_size_mb"`
	MaxBackups int    `koanf:"maxbackups" json:"max_backups"`
	MaxAgeDays int    `koanf:"maxagedays" json:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// HTTPEmitterConfig configures the NDJSON push emitter.
type HTTPEmitterConfig struct {
	Enabled   bool          `koanf:"enabled"`
	URL       string        `koanf:"url"`
	AuthToken string        `koanf:"authtoken" json:"auth_token"`
	BatchSize int           `koanf:"batchsize" json:"batch_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

// defaults returns the default configuration values.
func defaults() Config {
	return Config{
		LogLevel: "info",
		Logging: LoggingConfig{
			Dir:        "logs",
			File:       "flowbase.log",
			MaxSizeMB:  5,
			MaxBackups: 5,
			MaxAgeDays: 0,
			Compress:   false,
		},
		Ingestion: IngestionConfig{
			Mode:    string(ModeCompat),
			Enabled: false,
			Suffix:  DefaultSuffix,
			Timeout: DefaultAPITimeout,
		},
		ObjectStore: ObjectStoreConfig{
			Provider: "s3",
			UseSSL:   true,
		},
		Emitters: EmitterConfig{
			Stdout: StdoutEmitterConfig{
				Enabled: true,
				Format:  "json",
			},
			File: FileEmitterConfig{
				Enabled:    false,
				Format:     "json",
				MaxSizeMB:  100,
				MaxBackups: 3,
				MaxAgeDays: 7,
				Compress:   true,
			},
			HTTP: HTTPEmitterConfig{
				Enabled:   false,
				BatchSize: 500,
				Timeout:   DefaultAPITimeout,
			},
		},
	}
}

// Defaults returns a copy of the built-in configuration.
func Defaults() *Config {
	cfg := defaults()
	return &cfg
}

// Load reads configuration from all sources with proper override order.
// Order: defaults -> config file -> environment variables.
func Load(configPath string) (*Config, error) {
	opts := []configloader.Option[Config]{
		configloader.WithDefaults[Config](defaults()),
	}

	if configPath != "" {
		opts = append(opts, configloader.WithFile[Config](configPath))
	} else {
		for _, path := range []string{"./flowbase.yaml", "/etc/flowbase/flowbase.yaml"} {
			if _, err := os.Stat(path); err == nil {
				opts = append(opts, configloader.WithFile[Config](path))
				break
			}
		}
	}

	opts = append(opts, configloader.WithEnv[Config](EnvPrefix))

	loader := configloader.NewConfigLoader[Config](opts...)
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Redacted returns a copy with secrets masked, suitable for printing.
func (c Config) Redacted() Config {
	const mask = "******"
	if c.Ingestion.AuthToken != "" {
		c.Ingestion.AuthToken = mask
	}
	if c.ObjectStore.SecretAccessKey != "" {
		c.ObjectStore.SecretAccessKey = mask
	}
	if c.Emitters.HTTP.AuthToken != "" {
		c.Emitters.HTTP.AuthToken = mask
	}
	if c.ObjectStore.AccessKeyID != "" {
		c.ObjectStore.AccessKeyID = mask
	}
	return c
}
