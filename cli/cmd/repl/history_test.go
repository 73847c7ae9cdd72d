package repl

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestHistory_AddAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}

	for _, e := range []HistoryEntry{
		{"x = 1", modeEval},
		{"list", modeCtrl},
		{"x + 1", modeEval},
		{"x + 1", modeEval}, // repeated, ignored
		{"  ", modeEval},    // blank, ignored
	} {
		if err := h.Add(e.Line, e.Mode); err != nil {
			t.Fatalf("Add(%q): %v", e.Line, err)
		}
	}

	want := []HistoryEntry{
		{"x = 1", modeEval},
		{"list", modeCtrl},
		{"x + 1", modeEval},
	}

	if got := h.Entries(); !slices.Equal(got, want) {
		t.Fatalf("Entries = %v, want %v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := string(data), "E:x = 1\nC:list\nE:x + 1\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}

	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}

	if got := reloaded.Entries(); !slices.Equal(got, want) {
		t.Errorf("reloaded = %v, want %v", got, want)
	}
}

func TestHistory_MoveDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)
	h := NewHistory(path)

	for _, line := range []string{"a", "b", "c", "a"} {
		if err := h.Add(line, modeEval); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := string(data), "E:b\nE:c\nE:a\n"; got != want {
		t.Errorf("file = %q, want %q", got, want)
	}

	// Same line in another mode is a distinct entry.
	if err := h.Add("a", modeCtrl); err != nil {
		t.Fatal(err)
	}

	if h.Len() != 4 {
		t.Errorf("Len = %d, want 4", h.Len())
	}
}

func TestHistory_Entry(t *testing.T) {
	h := NewHistory("")

	if err := h.Add("x", modeEval); err != nil {
		t.Fatal(err)
	}

	e, err := h.Entry(0)
	if err != nil || e.Line != "x" {
		t.Errorf("Entry(0) = (%v, %v), want x", e, err)
	}

	for _, i := range []int{-1, 1} {
		if _, err := h.Entry(i); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Entry(%d) err = %v, want ErrOutOfBounds", i, err)
		}
	}
}

func TestDecodeHistoryEntry(t *testing.T) {
	tests := []struct {
		in   string
		want HistoryEntry
	}{
		{"E:a + b", HistoryEntry{"a + b", modeEval}},
		{"C:quit", HistoryEntry{"quit", modeCtrl}},
		{"bare", HistoryEntry{"bare", modeEval}},
	}

	for _, tt := range tests {
		if got := decodeHistoryEntry(tt.in); got != tt.want {
			t.Errorf("decodeHistoryEntry(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
