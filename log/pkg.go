package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

var defaultLog atomic.Pointer[Logger]

func init() {
	l := Make(os.Stderr)
	defaultLog.Store(&l)
}

// Config applies opts to the default logger. Loggers already returned by
// [Default] keep their settings.
func Config(opts ...Option) {
	for {
		old := defaultLog.Load()
		next := old.Wrap(opts...)

		if defaultLog.CompareAndSwap(old, &next) {
			return
		}
	}
}

// Default returns the default logger, which writes to stderr.
func Default() Logger { return *defaultLog.Load() }

// TraceContext logs at trace level with the default logger.
func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelTrace, msg, attrs)
}

// DebugContext logs at debug level with the default logger.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelDebug, msg, attrs)
}

// WarnContext logs at warn level with the default logger.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().emit(ctx, LevelWarn, msg, attrs)
}

// Error logs at error level with the default logger. It is meant for main,
// after every context has been cancelled.
func Error(msg string, attrs ...slog.Attr) {
	Default().emit(context.Background(), LevelError, msg, attrs)
}
