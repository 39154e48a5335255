// Package ui provides terminal UI components, styling and logging setup for lrag.
package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"

	"github.com/nickcecere/lrag/internal/config"
)

// InitLogger initializes the charm logger with default settings.
func InitLogger() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	log.SetReportCaller(false)
	log.SetReportTimestamp(false)
}

// SetDebug enables debug logging.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// InitFileLogger tees log output to a time-rotated file in addition to stderr.
// The file name is a strftime pattern such as "lrag-%Y-%m-%d.log".
// An empty pattern leaves logging unchanged and returns a no-op closer.
func InitFileLogger(cfg config.LoggingConfig) (io.Closer, error) {
	if cfg.File == "" {
		return io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	rotation := cfg.Rotation
	if rotation <= 0 {
		rotation = config.DefaultLogRotation
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = config.DefaultLogMaxAge
	}

	w, err := rotatelogs.New(
		cfg.File,
		rotatelogs.WithRotationTime(rotation),
		rotatelogs.WithMaxAge(maxAge),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	log.SetOutput(io.MultiWriter(os.Stderr, w))
	log.SetReportTimestamp(true)
	log.Debug("Logging to file", "pattern", cfg.File, "rotation", rotation, "max_age", maxAge)

	return w, nil
}
