package utils

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger provides leveled, printf-style logging throughout the application.
type Logger struct {
	zl zerolog.Logger
}

// NewLogger creates a Logger writing human-readable lines to stdout at the
// given level (debug, info, warn, error). Unknown levels fall back to info.
func NewLogger(level string) *Logger {
	out := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}
	return NewLoggerWithWriter(out, level)
}

// NewLoggerWithWriter creates a Logger emitting to w.
func NewLoggerWithWriter(w io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return &Logger{zl: zerolog.New(w).Level(lvl).With().Timestamp().Logger()}
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func (l *Logger) Info(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}
