package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gra-pca/sentinel/pkg/config"
)

// LogFormat represents the output format for logs.
type LogFormat string

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON LogFormat = "json"
	// FormatText outputs logs in logfmt-style text.
	FormatText LogFormat = "text"
)

// Config contains configuration for New.
type Config struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string

	// Format is the output format ("json", "text")
	Format string

	// AddSource includes file and line number in logs
	AddSource bool

	// Redact masks TINs, TSA references and other identifiers
	Redact bool

	// RedactPatterns are appended to the built-in patterns
	RedactPatterns []config.RedactPattern

	// Writer is the output writer (defaults to os.Stderr)
	Writer io.Writer
}

// New builds a *slog.Logger whose handler adds context fields and, when
// enabled, redacts sensitive values.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	format, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid log format: %w", err)
	}

	writer := cfg.Writer
	if writer == nil {
		writer = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var base slog.Handler
	switch format {
	case FormatText:
		base = slog.NewTextHandler(writer, opts)
	default:
		base = slog.NewJSONHandler(writer, opts)
	}

	var redactor *Redactor
	if cfg.Redact {
		redactor = NewRedactor(cfg.RedactPatterns)
	}
	return slog.New(newContextHandler(base, redactor)), nil
}

// FromConfig builds a logger from the telemetry section of the configuration.
func FromConfig(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	return New(Config{
		Level:          cfg.Level,
		Format:         cfg.Format,
		AddSource:      cfg.AddSource,
		Redact:         config.BoolValue(cfg.Redact, config.DefaultLoggingRedact),
		RedactPatterns: cfg.RedactPatterns,
		Writer:         w,
	})
}

// ParseLevel parses a log level string into slog.Level.
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

func parseFormat(formatStr string) (LogFormat, error) {
	switch strings.ToLower(formatStr) {
	case "json", "":
		return FormatJSON, nil
	case "text", "console":
		return FormatText, nil
	default:
		return FormatJSON, fmt.Errorf("unknown log format: %s", formatStr)
	}
}
