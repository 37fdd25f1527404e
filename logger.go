package resman

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the package logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the default logger for resman.
// By default, resman produces no log output.
//
// A Manager picks up the logger current at [New] and passes it on to its
// scheduler tasks. Use [WithLogger] to give one Manager its own logger.
//
// SetLogger is safe for concurrent use. Pass nil to restore silence.
//
// Log levels used by resman:
//   - [slog.LevelDebug]: task stage timing, stale completions
//   - [slog.LevelInfo]: loads that landed, renderer attach and detach
//   - [slog.LevelWarn]: joint truncation, unsupported model units
//   - [slog.LevelError]: unresolvable paths, decode and upload failures
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
