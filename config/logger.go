package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger builds the process logger on stdout
func SetupLogger(cfg LogConfig) zerolog.Logger {
	return NewLogger(cfg, os.Stdout)
}

// NewLogger writes console or JSON lines to out, plus a rotating file when
// cfg.File is set. It also replaces the global zerolog logger.
func NewLogger(cfg LogConfig, out io.Writer) zerolog.Logger {
	var stdout io.Writer = out
	if cfg.Format != "json" {
		stdout = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{stdout}
	if cfg.File != "" {
		_ = os.MkdirAll(filepath.Dir(cfg.File), 0o755)
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50, // MB
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		})
	}

	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(lvl).
		With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
