package log_test

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/orml/log"
)

func Example() {
	logger := log.Make(os.Stdout,
		log.WithPretty(false),
		log.WithTimeLayout("none"),
		log.WithLevel(log.LevelTrace))

	ctx := context.Background()

	logger.TraceContext(ctx, "eval statement", slog.Int("index", 0), slog.String("kind", "Int"))
	logger.WarnContext(ctx, "could not load history", slog.String("path", "history"))

	// Output:
	// level=TRACE msg="eval statement" index=0 kind=Int
	// level=WARN msg="could not load history" path=history
}

func Example_json() {
	logger := log.Make(os.Stdout,
		log.WithFormat(log.FormatJSON),
		log.WithPretty(false),
		log.WithTimeLayout(""))

	logger.DebugContext(context.Background(), "filtered")
	logger.ErrorContext(context.Background(), "run failed", slog.String("error", "name error"))

	// Output:
	// {"level":"ERROR","msg":"run failed","error":"name error"}
}
