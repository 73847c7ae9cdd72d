package log

import (
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"
)

// Level is the severity of a message. It extends [slog.Level] with
// [LevelTrace], which the evaluator uses for per-statement detail.
type Level slog.Level

const (
	LevelTrace = Level(slog.LevelDebug - 4)
	LevelDebug = Level(slog.LevelDebug)
	LevelInfo  = Level(slog.LevelInfo)
	LevelWarn  = Level(slog.LevelWarn)
	LevelError = Level(slog.LevelError)
)

// DefaultLevel is the level of a new [Logger].
const DefaultLevel = LevelInfo

// levelNames lists the named levels from most to least severe.
var levelNames = []struct {
	level Level
	name  string
}{
	{LevelError, "error"},
	{LevelWarn, "warn"},
	{LevelInfo, "info"},
	{LevelDebug, "debug"},
	{LevelTrace, "trace"},
}

// String returns the lowercase level name. A level between two names is
// written as an offset from the lower one, as in "info+2".
func (l Level) String() string {
	for _, n := range levelNames {
		switch {
		case l == n.level:
			return n.name
		case l > n.level:
			return fmt.Sprintf("%s+%d", n.name, l-n.level)
		}
	}

	return fmt.Sprintf("trace%d", l-LevelTrace)
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseLevel].
func (l *Level) UnmarshalText(text []byte) error {
	*l = ParseLevel(string(text))

	return nil
}

// Levels yields the level names accepted by --log-level, least severe first.
func Levels() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, n := range slices.Backward(levelNames) {
			if !yield(n.name) {
				return
			}
		}
	}
}

// ParseLevel returns the level named by s, ignoring case. Offsets such as
// "debug+1" are accepted for every name but trace. Unknown names yield
// [DefaultLevel].
func ParseLevel(s string) Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "trace") {
		return LevelTrace
	}

	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return DefaultLevel
	}

	return Level(l)
}

// Format selects the record encoding.
type Format uint8

const (
	FormatText Format = iota
	FormatJSON
)

// DefaultFormat is the format of a new [Logger].
const DefaultFormat = FormatText

var formatNames = [...]string{
	FormatText: "text",
	FormatJSON: "json",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}

	return fmt.Sprintf("Format(%d)", f)
}

// UnmarshalText implements [encoding.TextUnmarshaler] using [ParseFormat].
func (f *Format) UnmarshalText(text []byte) error {
	*f = ParseFormat(string(text))

	return nil
}

// Formats yields the format names accepted by --log-format.
func Formats() iter.Seq[string] {
	return slices.Values(formatNames[:])
}

// ParseFormat returns the format named by s, ignoring case. Unknown names
// yield [DefaultFormat].
func ParseFormat(s string) Format {
	for f, name := range formatNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Format(f)
		}
	}

	return DefaultFormat
}
