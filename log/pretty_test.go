package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPretty_Text(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf,
		WithFormat(FormatText),
		WithTimeLayout("none"),
		WithLevel(LevelTrace))

	h := logger.handler.WithAttrs([]slog.Attr{slog.String("component", "lang")})
	Logger{handler: h, config: logger.config}.TraceContext(t.Context(),
		"eval statement",
		slog.Int("index", 2),
		slog.Bool("cached", false),
		slog.Duration("elapsed", time.Second))

	out := buf.String()

	for _, want := range []string{
		"level=TRACE",
		"eval statement",
		"component=lang",
		"index=2",
		"cached=false",
		"elapsed=1s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}

	if strings.Contains(out, "time=") {
		t.Errorf("expected no timestamp, got: %s", out)
	}

	if strings.Count(out, "\n") != 1 {
		t.Errorf("expected one line, got: %q", out)
	}
}

func TestPretty_JSON(t *testing.T) {
	var buf bytes.Buffer

	logger := Make(&buf, WithFormat(FormatJSON), WithTimeLayout("none"))

	h := logger.handler.WithGroup("store")
	Logger{handler: h, config: logger.config}.WarnContext(context.Background(),
		"resolve", slog.String("path", "tests.testmodel"))

	out := buf.String()

	if !strings.HasPrefix(out, "{\n") || !strings.HasSuffix(out, "\n}\n") {
		t.Errorf("expected an indented object, got: %q", out)
	}

	for _, want := range []string{"level: WARN", "msg: resolve", "store.path: tests.testmodel"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got: %s", want, out)
		}
	}
}

func TestPretty_Timestamp(t *testing.T) {
	var buf bytes.Buffer

	Make(&buf, WithTimeLayout("Kitchen")).WarnContext(t.Context(), "history")

	if !strings.Contains(buf.String(), "time=") {
		t.Errorf("expected a timestamp, got: %q", buf.String())
	}
}
