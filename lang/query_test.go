package lang

import (
	"testing"
)

func ids(t *testing.T, v Value) []int64 {
	t.Helper()

	if rs, ok := v.AsRecordSet(); ok {
		xs, err := rs.Values(t.Context(), "id")
		if err != nil {
			t.Fatalf("values error: %v", err)
		}

		v = FromNative(xs)
	}

	l, ok := v.AsList()
	if !ok {
		t.Fatalf("expected list or record set, got %v", v.Kind())
	}

	out := make([]int64, len(l))

	for i, e := range l {
		n, ok := e.AsInt()
		if !ok {
			t.Fatalf("expected int id, got %v", e.Kind())
		}

		out[i] = n
	}

	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}

func TestQuery_Filter(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		want  []int64
	}{
		{name: "exact", lines: []string{"tests.testmodel{t:'x'}"}, want: []int64{1, 3}},
		{name: "in", lines: []string{"tests.testmodel{id__in:(1,3)}"}, want: []int64{1, 3}},
		{name: "in keeps store order", lines: []string{"tests.testmodel{id__in:(3,1)}"}, want: []int64{1, 3}},
		{name: "empty filter", lines: []string{"tests.testmodel{}"}, want: []int64{1, 2, 3, 4}},
		{name: "no match", lines: []string{"tests.testmodel{t:'nope'}"}, want: []int64{}},
		{name: "and", lines: []string{"tests.testmodel{t:'x', val__gt:10}"}, want: []int64{3}},
		{name: "chain", lines: []string{"tests.testmodel{t:'x'} | val__gt:10"}, want: []int64{3}},
		{name: "braced chain", lines: []string{"tests.testmodel{t:'x'} | {val__gt:10}"}, want: []int64{3}},
		{name: "chain only", lines: []string{"tests.testmodel | val__lt:12"}, want: []int64{1, 2}},
		{name: "null", lines: []string{"tests.testmodel{note__isnull:true}"}, want: []int64{2}},
		{name: "computed value", lines: []string{"tests.testmodel{val:5*3}"}, want: []int64{3}},
		{name: "projection", lines: []string{"tests.testmodel{id__in:(1,3)}[id]"}, want: []int64{1, 3}},
		{name: "projection without filter", lines: []string{"tests.testmodel[id]"}, want: []int64{1, 2, 3, 4}},
		{
			name:  "bound entity",
			lines: []string{"m = tests.testmodel", "m{t:'x'}"},
			want:  []int64{1, 3},
		},
		{
			name:  "bound record set refined",
			lines: []string{"qs = tests.testmodel{t:'x'}", "qs | val:15"},
			want:  []int64{3},
		},
		{
			name:  "bound record set filtered",
			lines: []string{"qs = tests.testmodel{t:'x'}", "qs{val:5}"},
			want:  []int64{1},
		},
		{
			name:  "bound pipeline",
			lines: []string{"p = t:'x' | val__gt:10", "tests.testmodel | p"},
			want:  []int64{3},
		},
		{
			name:  "bound map as chain stage",
			lines: []string{"f = t:'x', val:5", "tests.testmodel{} | f"},
			want:  []int64{1},
		},
		{
			name:  "related records by record set",
			lines: []string{"tests.testmodelchild{parent__in: tests.testmodel{t:'x'}}[id]"},
			want:  []int64{1, 2},
		},
		{
			name:  "related records by record",
			lines: []string{"r = tests.testmodel{id:2}[0]", "tests.testmodelchild{parent: r}"},
			want:  []int64{3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			v, err := New(newTestRegistry()).EvalBlock(t.Context(), tt.lines)
			if err != nil {
				t.Fatalf("evaluate error: %v", err)
			}

			if got := ids(t, v); !equalIDs(got, tt.want) {
				t.Errorf("expected ids %v, got %v", tt.want, got)
			}
		})
	}
}

func TestQuery_MultiFieldProjection(t *testing.T) {
	v := evalOne(t, "tests.testmodel{id__in:(1,3)}[t,val,note]")

	rows, ok := v.AsList()
	if !ok || len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %s", v)
	}

	want := []Value{
		mapOf("t", String("x"), "val", Int(5), "note", String("first")),
		mapOf("t", String("x"), "val", Int(15), "note", String("third")),
	}

	for i, row := range rows {
		m, ok := row.AsMap()
		if !ok {
			t.Fatalf("row %d: expected map, got %v", i, row.Kind())
		}

		if keys := m.Keys(); len(keys) != 3 || keys[0] != "t" || keys[1] != "val" || keys[2] != "note" {
			t.Errorf("row %d: expected keys [t val note], got %v", i, keys)
		}

		mustEqual(t, want[i], row)
	}
}

// A nested projection used as a filter value gives the same result as
// binding it first and referencing the name.
func TestQuery_NestedEquivalence(t *testing.T) {
	ev := New(newTestRegistry())

	nested, err := ev.Eval(t.Context(),
		"tests.testmodelchild{parent__in: tests.testmodel{t:'x'}[id]}")
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	bound, err := ev.EvalBlock(t.Context(), []string{
		"parents = tests.testmodel{t:'x'}[id]",
		"tests.testmodelchild{parent__in: parents}",
	})
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	mustEqual(t, nested, bound)

	if got := ids(t, nested); !equalIDs(got, []int64{1, 2}) {
		t.Errorf("expected ids [1 2], got %v", got)
	}
}

// Chained stages are AND-combined: a | b equals {a, b}.
func TestQuery_ChainEquivalence(t *testing.T) {
	ev := New(newTestRegistry())

	chained, err := ev.Eval(t.Context(), "tests.testmodel{t:'x'} | id:3")
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	combined, err := ev.Eval(t.Context(), "tests.testmodel{t:'x', id:3}")
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	mustEqual(t, chained, combined)

	eq, err := ev.Eval(t.Context(), "(tests.testmodel{t:'x'} | id:3) == tests.testmodel{id:3}")
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	mustEqual(t, Bool(true), eq)
}

func TestQuery_Pipeline(t *testing.T) {
	v := evalOne(t, "id:3 | val:15, id:2 | id:1")

	if v.Kind() != KindPipeline {
		t.Fatalf("expected pipeline, got %v", v.Kind())
	}

	if got := Format(v); got != "id: 3 | val: 15, id: 2 | id: 1" {
		t.Errorf("unexpected pipeline text %q", got)
	}

	// Applied to an entity the groups are AND-combined, so nothing matches.
	got, err := New(newTestRegistry()).EvalBlock(t.Context(), []string{
		"p = id:3 | val:15, id:2 | id:1",
		"COUNT(tests.testmodel | p)",
	})
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	mustEqual(t, Int(0), got)
}

func TestSplitKey(t *testing.T) {
	tests := []struct {
		key    string
		field  string
		lookup Lookup
	}{
		{"id", "id", LookupExact},
		{"id__in", "id", LookupIn},
		{"parent__name", "parent__name", LookupExact},
		{"parent__name__icontains", "parent__name", LookupIContains},
		{"__in", "__in", LookupExact},
		{"val__gte", "val", LookupGte},
		{"note__isnull", "note", LookupIsNull},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()

			field, lookup := SplitKey(tt.key)
			if field != tt.field || lookup != tt.lookup {
				t.Errorf("expected (%q, %q), got (%q, %q)", tt.field, tt.lookup, field, lookup)
			}
		})
	}

	p := Predicate{Field: "parent__name"}
	if path := p.Path(); len(path) != 2 || path[0] != "parent" || path[1] != "name" {
		t.Errorf("unexpected path %v", path)
	}
}

func TestLookups(t *testing.T) {
	names := Lookups()

	if len(names) != 16 {
		t.Fatalf("expected 16 lookups, got %d", len(names))
	}

	if names[0] != "contains" || names[len(names)-1] != "startswith" {
		t.Errorf("unexpected order %v", names)
	}

	for _, n := range names {
		if !IsLookup(n) {
			t.Errorf("%q is not a lookup", n)
		}
	}
}
