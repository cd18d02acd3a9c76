package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/whoisalfaz/site-audit/internal/platform/config"
)

// New returns a structured JSON logger with source location enabled.
// Level should be a valid slog level string: DEBUG, INFO, WARN, ERROR.
// Unrecognized values default to ERROR.
func New(level string) *slog.Logger {
	return newLogger(os.Stdout, level)
}

// NewWithFile behaves like New and additionally writes every record to a
// size-rotated file when lf.Path is set. The returned closer releases the file.
func NewWithFile(level string, lf config.LogFile) (*slog.Logger, io.Closer) {
	if lf.Path == "" {
		return New(level), io.NopCloser(nil)
	}

	sink := &lumberjack.Logger{
		Filename:   lf.Path,
		MaxSize:    lf.MaxSizeMB,
		MaxBackups: lf.MaxBackups,
		MaxAge:     lf.MaxAgeDays,
		Compress:   true,
	}
	return newLogger(io.MultiWriter(os.Stdout, sink), level), sink
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelError
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	}))
}
