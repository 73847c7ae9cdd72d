package lang

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
)

// Predefined errors (sentinel values). Test with [errors.Is].
var (
	ErrLex              = NewError("lex error")
	ErrParse            = NewError("parse error")
	ErrName             = NewError("name error")
	ErrEntityResolution = NewError("entity resolution error")
	ErrArgument         = NewError("argument error")
	ErrType             = NewError("type error")
	ErrIndex            = NewError("index error")
	ErrArithmetic       = NewError("arithmetic error")
	ErrStore            = NewError("record store error")
	ErrReadInput        = NewError("failed to read input")

	// ErrNotFound is wrapped by a [Registry] when a path is not registered.
	ErrNotFound = NewError("not found")
)

// Error represents an error with optional structured logging attributes.
// It implements both error and slog.LogValuer interfaces.
//
// Errors derived from a sentinel via [Error.Wrap] or [Error.With] match the
// sentinel with [errors.Is].
type Error struct {
	msg   string
	err   error       // Wrapped error (for errors.Unwrap)
	base  *Error      // Sentinel this error was derived from
	attrs []slog.Attr // Attributes for structured logging
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError wraps a standard error into an Error.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface.
func (e *Error) Error() string {
	// "<msg>: <err>", "<msg>", or "<err>" depending on which fields are set,
	// followed by any position attribute.
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	s := strings.Join(part, ": ")

	if pos, ok := e.position(); ok {
		s += " (" + pos + ")"
	}

	return s
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel this error was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	for b := e; b != nil; b = b.base {
		if b == t {
			return true
		}
	}

	return false
}

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Attr returns the value of the attribute with the given key.
func (e *Error) Attr(key string) (slog.Value, bool) {
	for i := len(e.attrs) - 1; i >= 0; i-- {
		if e.attrs[i].Key == key {
			return e.attrs[i].Value, true
		}
	}

	return slog.Value{}, false
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		base:  e.root(),
		attrs: e.attrs, // Share attrs
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		base:  e.root(),
		attrs: newAttrs,
	}
}

// WithPosition attaches a source position to the error.
func (e *Error) WithPosition(pos Position) *Error {
	return e.With(
		slog.Int("offset", pos.Offset),
		slog.Int("line", pos.Line),
		slog.Int("column", pos.Column),
	)
}

// Offset returns the source offset attached to the error, or -1.
func (e *Error) Offset() int {
	if v, ok := e.Attr("offset"); ok {
		return int(v.Int64())
	}

	return -1
}

// root returns the sentinel at the base of a derivation chain.
func (e *Error) root() *Error {
	if e.base != nil {
		return e.base
	}

	return e
}

func (e *Error) position() (string, bool) {
	line, ok := e.Attr("line")
	if !ok {
		return "", false
	}

	col, _ := e.Attr("column")

	return "line " + strconv.FormatInt(line.Int64(), 10) +
		", column " + strconv.FormatInt(col.Int64(), 10), true
}

// Snippet renders the source line containing the error position followed by a
// caret marker. It returns "" when err carries no position.
func Snippet(source string, err error) string {
	ee := &Error{}
	if !errors.As(err, &ee) {
		return ""
	}

	line, ok := ee.Attr("line")
	if !ok {
		return ""
	}

	col, _ := ee.Attr("column")

	lines := strings.Split(source, "\n")
	n := int(line.Int64())

	if n <= 0 || n > len(lines) {
		return ""
	}

	var src strings.Builder

	// Print the line with line number
	src.WriteString("  ")
	src.WriteString(strconv.Itoa(n))
	src.WriteString(" | ")
	src.WriteString(lines[n-1])
	src.WriteRune('\n')

	// +5 accounts for: 2 leading spaces + " | " (3 chars)
	padding := strings.Repeat(" ", len(strconv.Itoa(n))+5)

	if c := int(col.Int64()); c > 0 {
		padding += strings.Repeat(" ", c-1)
	}

	src.WriteString(padding + "^\n")

	return src.String()
}
