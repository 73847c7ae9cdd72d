package lang

import (
	"errors"
	"strconv"
	"strings"
	"testing"
)

func TestParseCached_SharesStatements(t *testing.T) {
	lines := []string{"cached_a = 1", "", "cached_a + 1"}
	cfg := makeConfig(WithCache(true))

	first, err := parseCached(t.Context(), lines, false, cfg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	second, err := parseCached(t.Context(), lines, false, cfg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if first.Len() != 2 || second.Len() != 2 {
		t.Fatalf("expected 2 statements, got %d and %d", first.Len(), second.Len())
	}

	for i := range first.Stmts {
		if first.Stmts[i] != second.Stmts[i] {
			t.Errorf("statement %d was parsed twice", i)
		}
	}
}

func TestParseCached_LineNumbersDistinct(t *testing.T) {
	cfg := makeConfig(WithCache(true))

	a, err := parseCached(t.Context(), []string{"cached_b"}, true, cfg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	b, err := parseCached(t.Context(), []string{"x = 1", "cached_b"}, false, cfg)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if got := a.Stmts[0].Pos().Line; got != 1 {
		t.Errorf("expected line 1, got %d", got)
	}

	if got := b.Stmts[1].Pos().Line; got != 2 {
		t.Errorf("expected line 2, got %d", got)
	}
}

func TestParseCached_Errors(t *testing.T) {
	cfg := makeConfig(WithCache(true))

	for range 2 {
		_, err := parseCached(t.Context(), []string{"cached_c +"}, true, cfg)
		if !errors.Is(err, ErrParse) {
			t.Fatalf("expected parse error, got %v", err)
		}
	}

	// A single blank statement is an error, as with ParseString.
	if _, err := parseCached(t.Context(), []string{" "}, true, cfg); !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestReadLines(t *testing.T) {
	lines, err := ReadLines(strings.NewReader("a\r\nb\n\nc"))
	if err != nil {
		t.Fatalf("read error: %v", err)
	}

	want := []string{"a", "b", "", "c"}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d", len(want), len(lines))
	}

	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func BenchmarkEval_Cached(b *testing.B) {
	ev := New(newTestRegistry(), WithCache(true))
	lines := []string{
		"ids = tests.testmodel{t:'x'}[id]",
		"SUM(tests.testmodel{id__in: ids}[val])",
	}

	for b.Loop() {
		if _, err := ev.EvalBlock(b.Context(), lines); err != nil {
			b.Fatal(err)
		}
	}
}

func TestParseCached_Bounded(t *testing.T) {
	ClearCache()
	t.Cleanup(ClearCache)

	lines := make([]string, MaxCacheEntries+1)
	for i := range lines {
		lines[i] = "bounded_" + strconv.Itoa(i)
	}

	b, err := parseCached(t.Context(), lines, false, makeConfig())
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if b.Len() != len(lines) {
		t.Errorf("expected %d statements, got %d", len(lines), b.Len())
	}

	if n := CacheLen(); n >= MaxCacheEntries {
		t.Errorf("cache holds %d entries, want fewer than %d", n, MaxCacheEntries)
	}
}

func TestMakeConfig_CacheDefault(t *testing.T) {
	if !makeConfig().cache {
		t.Error("parse cache should be enabled by default")
	}

	if makeConfig(WithCache(false)).cache {
		t.Error("WithCache(false) should disable the parse cache")
	}
}
