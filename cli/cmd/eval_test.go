package cmd

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/pkg"
)

func TestEvalRun(t *testing.T) {
	tests := []struct {
		name   string
		eval   Eval
		script string
		want   string
	}{
		{
			name: "aggregate",
			eval: Eval{Statements: []string{"SUM(tests.testmodel[val])"}},
			want: "116\n",
		},
		{
			name: "block",
			eval: Eval{Statements: []string{"ids = tests.testmodel{t:'T1'}[id]", "COUNT(ids)"}},
			want: "2\n",
		},
		{
			name:   "script_then_statement",
			eval:   Eval{Statements: []string{"x * 3"}},
			script: "# setup\nx = 2\n",
			want:   "6\n",
		},
		{
			name: "projection",
			eval: Eval{Statements: []string{"tests.testmodel{t:'T1'}[id]"}},
			want: "(1, 2)\n",
		},
		{
			name: "json",
			eval: Eval{Statements: []string{"tests.testmodel{id:3}[note]"}, Output: OutputJSON},
			want: `["Test 3"]` + "\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, stdout, _ := testRuntime(t)

			if tt.script != "" {
				tt.eval.Source = []string{writeScript(t, t.TempDir(), "s.orml", tt.script)}
			}

			if err := tt.eval.Run(ctx); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if got := stdout.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEvalRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		eval Eval
		want []error
	}{
		{"no_input", Eval{}, []error{ErrNoInput}},
		{"unknown_name", Eval{Statements: []string{"nope + 1"}}, []error{ErrEval, lang.ErrName}},
		{"unknown_entity", Eval{Statements: []string{"tests.missing"}}, []error{ErrEval, lang.ErrName}},
		{"arithmetic", Eval{Statements: []string{"1 / 0"}}, []error{ErrEval, lang.ErrArithmetic}},
		{"parse", Eval{Statements: []string{"x = (1,"}}, []error{ErrEval, lang.ErrParse}},
		{"bad_output", Eval{Statements: []string{"1"}, Output: "xml"}, []error{pkg.ErrInvalidFormat}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, _, _ := testRuntime(t)

			err := tt.eval.Run(ctx)
			for _, want := range tt.want {
				if !errors.Is(err, want) {
					t.Errorf("err = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestEvalRun_Snippet(t *testing.T) {
	ctx, _, stderr := testRuntime(t)

	e := Eval{Statements: []string{"a = 1", "a + nope"}}

	err := e.Run(ctx)
	if !errors.Is(err, lang.ErrName) {
		t.Fatalf("err = %v, want ErrName", err)
	}

	if out := stderr.String(); !strings.Contains(out, "2 | a + nope") || !strings.Contains(out, "^") {
		t.Errorf("stderr = %q, want a snippet of line 2", out)
	}
}
