// Package logging builds the logrus logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Format     string // text | json
	FilePath   string // empty disables file output
	MaxSize    int    // megabytes
	MaxBackups int
	MaxAge     int // days
	Console    io.Writer
}

// DefaultLogConfig returns text logging at info level to stderr.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "text",
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Console:    os.Stderr,
	}
}

// New creates a logger from cfg. The returned closer flushes and closes the
// rotating file, if one was opened.
func New(cfg LogConfig) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.TrimSpace(cfg.Level))
	if err != nil {
		return nil, nil, fmt.Errorf("parsing log level: %w", err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	var closer io.Closer = nopCloser{}
	if cfg.FilePath != "" {
		// Ensure log directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		}
		logger.SetOutput(io.MultiWriter(console, file))
		closer = file
	} else {
		logger.SetOutput(console)
	}

	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
