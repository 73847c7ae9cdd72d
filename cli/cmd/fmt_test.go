package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/orml/lang"
)

const fmtScript = "x=1+2\n# comment\ny = tests.testmodel{t:'T1'}[id]\n"

func TestFmtNative(t *testing.T) {
	ctx, stdout, _ := testRuntime(t)

	f := Native{Script{Source: writeScript(t, t.TempDir(), "s.orml", fmtScript)}}
	if err := f.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "x = 1 + 2\ny = tests.testmodel{t: \"T1\"}[id]\n"
	if got := stdout.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFmtNative_Idempotent(t *testing.T) {
	ctx, stdout, _ := testRuntime(t)

	f := Native{Script{Source: writeScript(t, t.TempDir(), "s.orml", fmtScript)}}
	if err := f.Run(ctx); err != nil {
		t.Fatal(err)
	}

	first := stdout.String()
	stdout.Reset()

	f = Native{Script{Source: writeScript(t, t.TempDir(), "s.orml", first)}}
	if err := f.Run(ctx); err != nil {
		t.Fatal(err)
	}

	if second := stdout.String(); second != first {
		t.Errorf("format is not stable:\n%s\n%s", first, second)
	}
}

func TestFmtJSON(t *testing.T) {
	ctx, stdout, _ := testRuntime(t)

	f := JSON{Indent: 0, Script: Script{Source: writeScript(t, t.TempDir(), "s.orml", "x = 1 + 2")}}
	if err := f.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := `[{"node":"Assign","line":1,"column":1,"name":"x","value":` +
		`{"node":"Binary","line":1,"column":5,"op":"+",` +
		`"left":{"node":"Number","line":1,"column":5,"literal":"1"},` +
		`"right":{"node":"Number","line":1,"column":9,"literal":"2"}}}]` + "\n"

	if got := stdout.String(); got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestFmtYAML(t *testing.T) {
	ctx, stdout, _ := testRuntime(t)

	f := YAML{Indent: 2, Script: Script{Source: writeScript(t, t.TempDir(), "s.orml", "x = 1")}}
	if err := f.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{"node: Assign", "name: x", "literal: \"1\""} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestFmtAST(t *testing.T) {
	ctx, stdout, _ := testRuntime(t)

	f := AST{Script{Source: writeScript(t, t.TempDir(), "s.orml", "x = 1")}}
	if err := f.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out := stdout.String(); !strings.Contains(out, "Number") {
		t.Errorf("output = %q, want a Number node", out)
	}
}

func TestFmt_InvalidSyntax(t *testing.T) {
	src := "x = (1,"

	runs := map[string]func(Script) error{
		"native": func(s Script) error { f := Native{s}; return f.Run(t.Context()) },
		"json":   func(s Script) error { f := JSON{Script: s}; return f.Run(t.Context()) },
		"yaml":   func(s Script) error { f := YAML{Script: s}; return f.Run(t.Context()) },
		"ast":    func(s Script) error { f := AST{s}; return f.Run(t.Context()) },
	}

	for name, run := range runs {
		t.Run(name, func(t *testing.T) {
			err := run(Script{Source: writeScript(t, t.TempDir(), "bad.orml", src)})
			if !errors.Is(err, ErrFormat) || !errors.Is(err, lang.ErrParse) {
				t.Errorf("err = %v, want ErrFormat wrapping ErrParse", err)
			}
		})
	}
}
