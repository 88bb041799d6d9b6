// Package logging configures structured JSON logging for the whole process.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: debug, info, warn or error.
	Level string `yaml:"level"`

	// File, when set, routes output through a size-rotated log file
	// instead of stdout.
	File string `yaml:"file"`

	// MaxSizeMB caps one log file before rotation. Zero means 100.
	MaxSizeMB int `yaml:"max_size_mb"`

	// MaxBackups is how many rotated files to keep. Zero means 5.
	MaxBackups int `yaml:"max_backups"`
}

// ParseLevel maps a level name to its slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup configures the process-wide slog default and bridges the standard
// library logger onto it, so packages still using log.Printf emit structured
// lines too. Returns the base logger for explicit use.
func Setup(service string, config Config) *slog.Logger {
	var out io.Writer = os.Stdout
	if config.File != "" {
		maxSize := config.MaxSizeMB
		if maxSize == 0 {
			maxSize = 100
		}
		maxBackups := config.MaxBackups
		if maxBackups == 0 {
			maxBackups = 5
		}
		out = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   true,
		}
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: ParseLevel(config.Level),
	})

	base := slog.New(handler).With(slog.String("service", service))
	slog.SetDefault(base)

	stdBridge := slog.NewLogLogger(handler.WithAttrs([]slog.Attr{slog.String("service", service)}), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}
