package lang

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"int", Int(42), "42"},
		{"negative int", Int(-7), "-7"},
		{"float", Float(1.49), "1.49"},
		{"whole float", Float(2), "2.0"},
		{"string", String("a \"b\"\n"), `"a \"b\"\n"`},
		{"bool", Bool(false), "false"},
		{"unit", Unit(), "null"},
		{"empty list", List(), "()"},
		{"one-element list", List(Int(1)), "(1,)"},
		{"list", List(Int(1), Float(2.5), String("x")), `(1, 2.5, "x")`},
		{"map", mapOf("a", Int(1), "b", List(Int(2), Int(3))), "a: 1, b: (2, 3)"},
		{"nested map", mapOf("a", mapOf("b", Int(1))), "a: (b: 1)"},
		{"quoted key", mapOf("my key", Int(1), "true", Int(2)), `"my key": 1, "true": 2`},
		{"list of maps", List(mapOf("a", Int(1)), mapOf("a", Int(2))), "((a: 1), (a: 2))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Format(tt.value); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	values := []Value{
		Int(0),
		Int(-12),
		Int(math.MaxInt64),
		Int(math.MinInt64),
		List(Int(math.MinInt64), Int(1)),
		Float(1.49),
		Float(-0.25),
		Float(3),
		Float(1e21),
		String(""),
		String("tab\tquote\"'"),
		Bool(true),
		List(),
		List(Int(1)),
		List(Int(1), Int(2), Int(3)),
		List(List(Int(1), Int(2)), List()),
		mapOf("a", Int(1), "b", Int(2), "c", Int(3)),
		mapOf("a", List(Int(1), Int(2), Int(3)), "b", List(Int(2), Int(3), Int(4))),
		mapOf("x", mapOf("y", mapOf("z", String("deep")))),
		List(mapOf("k", Bool(false)), Float(0.5)),
		mapOf("SUM", Int(1), "with space", Int(2)),
	}

	for _, v := range values {
		t.Run(Format(v), func(t *testing.T) {
			t.Parallel()

			got, err := Evaluate(t.Context(), nil, Format(v))
			if err != nil {
				t.Fatalf("evaluate error: %v", err)
			}

			if got.Kind() != v.Kind() {
				t.Fatalf("expected %v, got %v", v.Kind(), got.Kind())
			}

			mustEqual(t, v, got)
		})
	}
}

func TestFormatNode_RoundTrip(t *testing.T) {
	inputs := []string{
		"1, 2, 3",
		"a: 1, b: (1, 2)",
		"x = SUM(1, 2) * -3",
		"tests.testmodel{id__in: (1, 3)}[id]",
		"tests.testmodel{t: \"x\"} | val: 15, id: 3 | id: 3 [t, val]",
		"qs | p",
		"a: 1 | b: 2",
		"(1,)",
		"m[\"k\"][0]",
		"-9223372036854775808",
		"x - -9223372036854775808 * 2",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()

			first := FormatNode(parseOne(t, input))
			second := FormatNode(parseOne(t, first))

			if first != second {
				t.Errorf("format is not stable:\n%s\n%s", first, second)
			}
		})
	}
}

func TestFormatJSON(t *testing.T) {
	v := mapOf("z", Int(1), "a", List(Float(1.5), Unit()), "m", mapOf("k", String("v")))

	var buf bytes.Buffer

	if err := FormatJSON(t.Context(), &buf, v, 0); err != nil {
		t.Fatalf("format error: %v", err)
	}

	want := `{"z":1,"a":[1.5,null],"m":{"k":"v"}}` + "\n"
	if buf.String() != want {
		t.Errorf("expected %s, got %s", want, buf.String())
	}
}

func TestFormatJSON_Strings(t *testing.T) {
	v := mapOf("esc", String("\x1b[0m\a\t<b>"), "nested", mapOf("q", String(`"`)))

	var buf bytes.Buffer

	if err := FormatJSON(t.Context(), &buf, v, 0); err != nil {
		t.Fatalf("format error: %v", err)
	}

	want := `{"esc":"\u001b[0m\u0007\t\u003cb\u003e","nested":{"q":"\""}}` + "\n"
	if buf.String() != want {
		t.Errorf("expected %s, got %s", want, buf.String())
	}

	var back map[string]any
	if err := json.Unmarshal(buf.Bytes(), &back); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if back["esc"] != "\x1b[0m\a\t<b>" {
		t.Errorf("expected escapes to round-trip, got %q", back["esc"])
	}
}

func TestFormatJSON_Records(t *testing.T) {
	v, err := Evaluate(t.Context(), newTestRegistry(), "tests.testmodel{id:1}")
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	var buf bytes.Buffer

	if err := FormatJSON(t.Context(), &buf, v, 0); err != nil {
		t.Fatalf("format error: %v", err)
	}

	want := `[{"entity":"tests.testmodel","id":1,"note":"first","t":"x","val":5}]` + "\n"
	if buf.String() != want {
		t.Errorf("expected %s, got %s", want, buf.String())
	}
}

func TestFormatYAML(t *testing.T) {
	v := mapOf("z", Int(1), "a", List(Int(2), Int(3)))

	var buf bytes.Buffer

	if err := FormatYAML(t.Context(), &buf, v, 2); err != nil {
		t.Fatalf("format error: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "z: 1\n") {
		t.Errorf("expected key order preserved, got:\n%s", out)
	}

	if !strings.Contains(out, "a:\n") {
		t.Errorf("expected nested list under a, got:\n%s", out)
	}
}

func TestFormatNative_Records(t *testing.T) {
	v, err := Evaluate(t.Context(), newTestRegistry(), "tests.testmodel{t:'x'}")
	if err != nil {
		t.Fatalf("evaluate error: %v", err)
	}

	var buf bytes.Buffer

	if err := FormatNative(t.Context(), &buf, v); err != nil {
		t.Fatalf("format error: %v", err)
	}

	want := "(<tests.testmodel 1>, <tests.testmodel 3>)\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}
