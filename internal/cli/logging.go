package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/GabrielNunesIT/go-libs/logger"
	"github.com/natefinch/lumberjack"

	"github.com/GabrielNunesIT/flowbase/internal/config"
)

// SetupLogging creates and configures a logger with the specified level.
// When cfg.Dir is set, output is mirrored to a size-rotated file in that
// directory. The returned closer releases the file.
func SetupLogging(level string, cfg config.LoggingConfig) (logger.ILogger, io.Closer) {
	var (
		out    io.Writer = os.Stderr
		closer io.Closer = io.NopCloser(nil)
	)

	if cfg.Dir != "" {
		file := cfg.File
		if file == "" {
			file = "flowbase.log"
		}
		rotating := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, file),
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		out = io.MultiWriter(os.Stderr, rotating)
		closer = rotating
	}

	log := logger.NewConsoleLogger(out)

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		log.SetLevel(logger.LevelTrace)
	case "debug":
		log.SetLevel(logger.LevelDebug)
	case "warn", "warning":
		log.SetLevel(logger.LevelWarning)
	case "error":
		log.SetLevel(logger.LevelError)
	default:
		log.SetLevel(logger.LevelInfo)
	}

	// Set as default logger for global access if needed
	logger.SetDefaultLogger(log)
	logger.SetCtxFallbackLogger(log)

	return log, closer
}

// effectiveLevel prefers the --log-level flag over the config value.
func effectiveLevel(flag string, cfg *config.Config) string {
	if flag != "" {
		return flag
	}
	return cfg.LogLevel
}
