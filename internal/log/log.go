package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var (
	logger     atomic.Pointer[slog.Logger]
	loggerOnce sync.Once
	minLevel   = new(slog.LevelVar)
)

// initLogger initializes the global logger to write text records to stderr.
func initLogger() {
	loggerOnce.Do(func() {
		logger.CompareAndSwap(nil, newLogger(os.Stderr))
	})
}

func newLogger(w io.Writer) *slog.Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: minLevel})
	return slog.New(NewContextHandler(h))
}

// SetOutput redirects the global logger. Used by tests and the CLI.
func SetOutput(w io.Writer) {
	initLogger()
	logger.Store(newLogger(w))
}

func SetLevel(l Level) {
	initLogger()
	minLevel.Set(l.slogLevel())
}

// ParseLevel maps a config/env string such as "debug" to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug
	case "WARN", "WARNING":
		return LevelWarn
	case "ERROR":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger returns the underlying slog logger, e.g. for libraries that accept one.
func Logger() *slog.Logger {
	initLogger()
	return logger.Load()
}

func Debug(msg string, kv ...any) {
	logWithLevel(context.Background(), slog.LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	logWithLevel(context.Background(), slog.LevelInfo, msg, kv...)
}

func Warn(msg string, kv ...any) {
	logWithLevel(context.Background(), slog.LevelWarn, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	// Prepend error into key-value list.
	extended := append([]any{"err", err}, kv...)
	logWithLevel(context.Background(), slog.LevelError, msg, extended...)
}

// InfoContext is Info with interaction attributes taken from ctx.
func InfoContext(ctx context.Context, msg string, kv ...any) {
	logWithLevel(ctx, slog.LevelInfo, msg, kv...)
}

func WarnContext(ctx context.Context, msg string, kv ...any) {
	logWithLevel(ctx, slog.LevelWarn, msg, kv...)
}

// ErrorContext is Error with interaction attributes taken from ctx.
func ErrorContext(ctx context.Context, msg string, err error, kv ...any) {
	extended := append([]any{"err", err}, kv...)
	logWithLevel(ctx, slog.LevelError, msg, extended...)
}

func logWithLevel(ctx context.Context, level slog.Level, msg string, kv ...any) {
	initLogger()
	logger.Load().Log(ctx, level, msg, kv...)
}
