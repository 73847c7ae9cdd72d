package log

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"
)

// Logger writes leveled records through an immutable slog handler. The zero
// Logger discards everything, so components can hold one unconditionally.
type Logger struct {
	handler slog.Handler
	config
}

// Make returns a Logger writing to w, configured by opts over the defaults.
func Make(w io.Writer, opts ...Option) Logger {
	return build(makeConfig(w, opts...))
}

func build(c config) Logger {
	return Logger{handler: c.handler(), config: c}
}

// IsZero reports whether l is the zero Logger.
func (l Logger) IsZero() bool { return l.handler == nil }

// Wrap returns a copy of l with opts applied. Wrapping the zero Logger
// starts from the defaults with output discarded.
func (l Logger) Wrap(opts ...Option) Logger {
	if l.IsZero() {
		return Make(io.Discard, opts...)
	}

	return build(l.with(opts...))
}

// Level returns the minimum level l writes.
func (l Logger) Level() Level {
	if l.IsZero() {
		return DefaultLevel
	}

	return l.level
}

// Enabled reports whether a record at level would be written.
func (l Logger) Enabled(ctx context.Context, level Level) bool {
	return !l.IsZero() && l.handler.Enabled(ctx, slog.Level(level))
}

func (l Logger) TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelTrace, msg, attrs)
}

func (l Logger) DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelDebug, msg, attrs)
}

func (l Logger) WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelWarn, msg, attrs)
}

func (l Logger) ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.emit(ctx, LevelError, msg, attrs)
}

// callerSkip drops runtime.Callers, emit and the exported method or
// function, leaving the frame that called it.
const callerSkip = 3

// emit builds and handles one record. It must be called directly by an
// exported logging function for the source position to name its caller.
func (l Logger) emit(ctx context.Context, level Level, msg string, attrs []slog.Attr) {
	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr

	if l.caller {
		var pcs [1]uintptr

		runtime.Callers(callerSkip, pcs[:])
		pc = pcs[0]
	}

	r := slog.NewRecord(time.Now(), slog.Level(level), msg, pc)
	r.AddAttrs(attrs...)

	_ = l.handler.Handle(ctx, r)
}
