package logging

import (
	"log/slog"
	"os"
	"sync/atomic"
)

// opLogger is the single process-wide logger used by every package in this
// tree: store, queue, ack tracker, producer, consumer, and the CLI. There is
// no per-request logger; one message flows through one handler invocation,
// and that invocation's outcome is logged through Op() like everything else.
var (
	opLogger atomic.Pointer[slog.Logger]
	logLevel = new(slog.LevelVar)
)

func init() {
	logLevel.Set(slog.LevelInfo)
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	opLogger.Store(slog.New(handler))
}

// Op returns the current operational logger. Swapped out wholesale by
// InitStructured once the embedder's format/level flags are known, so
// callers must not cache the result across a long-lived goroutine.
func Op() *slog.Logger {
	return opLogger.Load()
}

// SetLevel changes the active log level directly.
func SetLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLevelFromString sets the log level from a CLI-flag-style string.
// Unrecognized values are ignored and the level is left unchanged.
func SetLevelFromString(level string) {
	switch level {
	case "debug", "DEBUG":
		logLevel.Set(slog.LevelDebug)
	case "info", "INFO":
		logLevel.Set(slog.LevelInfo)
	case "warn", "WARN", "warning", "WARNING":
		logLevel.Set(slog.LevelWarn)
	case "error", "ERROR":
		logLevel.Set(slog.LevelError)
	}
}
