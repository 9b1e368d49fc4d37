package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where and how verbosely the logger writes.
type Options struct {
	Filename   string // log file path, empty disables file output
	Level      string // "debug", "info", "warn", "error" or a numeric slog level
	MaxSizeMB  int    // rotate after this many megabytes
	MaxBackups int    // rotated files to keep
	MaxAgeDays int    // days to keep rotated files
	Compress   bool   // gzip rotated files
	AlsoStderr bool   // mirror warnings and errors to stderr
}

// Logger is a leveled, printf-style logger backed by slog with file rotation.
// Errors are optionally mirrored to stderr so they stay visible when the
// editor host swallows the log file.
type Logger struct {
	slog       *slog.Logger
	stderr     *slog.Logger
	alsoStderr bool
	closer     io.Closer
}

// New creates a Logger writing to a rotating log file.
func New(opts Options) (*Logger, error) {
	level := parseLevel(opts.Level, slog.LevelWarn)

	var writer io.Writer = io.Discard
	var closer io.Closer
	if opts.Filename != "" {
		if dir := filepath.Dir(opts.Filename); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		lj := &lumberjack.Logger{
			Filename:   opts.Filename,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
			MaxAge:     orDefault(opts.MaxAgeDays, 28),
			Compress:   opts.Compress,
		}
		writer = lj
		closer = lj
	}

	handler := slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level})
	l := &Logger{
		slog:       slog.New(handler),
		alsoStderr: opts.AlsoStderr,
		closer:     closer,
	}
	if opts.AlsoStderr {
		l.stderr = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	}
	return l, nil
}

// NewNop returns a logger that discards everything. Useful in tests.
func NewNop() *Logger {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Debug logs a formatted debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.slog.Debug(fmt.Sprintf(format, args...))
}

// Info logs a formatted info message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.slog.Info(fmt.Sprintf(format, args...))
}

// Warn logs a formatted warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.slog.Warn(msg)
	if l.alsoStderr && l.stderr != nil {
		l.stderr.Warn(msg)
	}
}

// Error logs a formatted error message.
func (l *Logger) Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.slog.Error(msg)
	if l.alsoStderr && l.stderr != nil {
		l.stderr.Error(msg)
	}
}

// Close flushes and closes the underlying log file, if any.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func parseLevel(value string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(n)
	}
	return fallback
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
