// Package log is the structured logger shared by the orml packages. It wraps
// a [log/slog] handler with a [LevelTrace] level below debug, lipgloss
// styled output and a process-wide default configured from command line
// flags.
//
// A [Logger] is immutable. [Make] builds one from functional options and
// [Logger.Wrap] derives a copy with more options applied:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatJSON),
//		log.WithCaller(true))
//	logger.TraceContext(ctx, "eval statement", slog.Int("index", 0))
//
// The zero Logger discards every record. The evaluator holds one until
// [lang.WithLogger] supplies a real one, so tracing costs nothing when it
// is not wanted.
//
// [Config] replaces the default logger returned by [Default]; the package
// functions [TraceContext], [DebugContext], [WarnContext] and [Error] write
// through it. Loggers obtained from [Default] earlier are unaffected.
//
// Timestamps use [WithTimeLayout], which accepts the named layouts of the
// [time] package ignoring case and punctuation, or a custom layout. "none"
// drops them. [WithPretty] renders either format with colors when the
// output is a terminal.
//
// [lang.WithLogger]: https://pkg.go.dev/github.com/ardnew/orml/lang#WithLogger
package log
