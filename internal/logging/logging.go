// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging configures the application-wide zerolog logger.
//
// One log file is created per process run under the configured log
// directory (logs/genstudio_YYYYMMDD_HHMMSS.log), optionally mirrored to
// stderr with console formatting.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/genstudio-tui/internal/config"
)

// Setup builds the application logger from config. The returned closer
// flushes and closes the log file; call it on shutdown.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func() error, error) {
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := "genstudio_" + time.Now().Format("20060102_150405") + ".log"
	f, err := os.OpenFile(filepath.Join(cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var w io.Writer = f
	if cfg.Console {
		console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		w = zerolog.MultiLevelWriter(f, console)
	}

	logger := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()
	return logger, f.Close, nil
}

// ParseLevel maps a config level string to a zerolog level. Unknown
// values fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
