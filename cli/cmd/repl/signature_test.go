package repl

import (
	"strings"
	"testing"
)

func TestDetectCall(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		cursor    int
		wantName  string
		wantIndex int
		wantOK    bool
	}{
		{"no_call", "total", 5, "", 0, false},
		{"open", "SUM(", 4, "SUM", 0, true},
		{"first_arg", "SUM(1", 5, "SUM", 0, true},
		{"second_arg", "SUM(1, ", 7, "SUM", 1, true},
		{"third_arg", "AVG(a, b, c", 11, "AVG", 2, true},
		{"grouping", "(1 + 2", 6, "", 0, false},
		{"closed", "SUM(1, 2) + 3", 13, "", 0, false},
		{"nested_tuple", "SUM((1, 2), ", 12, "SUM", 1, true},
		{"inner_call", "SUM(COUNT(x", 11, "COUNT", 0, true},
		{"after_inner_call", "SUM(COUNT(x), ", 14, "SUM", 1, true},
		{"inside_filter", "COUNT(a{b: 1, ", 14, "", 0, false},
		{"after_filter", "COUNT(a{b: 1, c: 2}, ", 21, "COUNT", 1, true},
		{"cursor_mid", "SUM(1, 2)", 5, "SUM", 0, true},
		{"cursor_past_end", "MAX(", 99, "MAX", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := detectCall(tt.input, tt.cursor)
			if ok != tt.wantOK {
				t.Fatalf("detectCall(%q, %d) ok = %v, want %v", tt.input, tt.cursor, ok, tt.wantOK)
			}

			if got.name != tt.wantName || got.argIndex != tt.wantIndex {
				t.Errorf("detectCall(%q, %d) = %+v, want {name:%s argIndex:%d}",
					tt.input, tt.cursor, got, tt.wantName, tt.wantIndex)
			}
		})
	}
}

func TestLookupSignature(t *testing.T) {
	aggregates := []string{"AVG", "COUNT", "MAX", "MEDIAN", "MIN", "SUM"}

	sig, ok := lookupSignature("SUM", aggregates)
	if !ok || sig.doc == "" || len(sig.params) != 1 {
		t.Errorf("SUM: got (%+v, %v), want documented builtin", sig, ok)
	}

	sig, ok = lookupSignature("MEDIAN", aggregates)
	if !ok || sig.doc != "" || sig.params[0] != "...values" {
		t.Errorf("MEDIAN: got (%+v, %v), want undocumented variadic", sig, ok)
	}

	if _, ok := lookupSignature("NOPE", aggregates); ok {
		t.Error("NOPE: want not found")
	}
}

func TestRenderSignatureHint(t *testing.T) {
	sig := signature{params: []string{"a", "...rest"}, doc: "example"}

	for _, idx := range []int{0, 1, 4} {
		out := renderSignatureHint("F", sig, idx)
		for _, want := range []string{"F", "(", "a", "...rest", ")", "example"} {
			if !strings.Contains(out, want) {
				t.Errorf("argIndex %d: %q does not contain %q", idx, out, want)
			}
		}
	}
}

func TestBuiltinSignatures(t *testing.T) {
	for _, name := range []string{"SUM", "AVG", "MIN", "MAX", "COUNT"} {
		if _, ok := builtinSignatures[name]; !ok {
			t.Errorf("missing signature for %s", name)
		}
	}
}
