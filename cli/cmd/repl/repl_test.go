package repl

import (
	"errors"
	"slices"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/log"
)

func newTestModel(t *testing.T) model {
	t.Helper()

	return newModel(t.Context(), Config{
		Evaluator: lang.New(nil),
		Catalog:   testCatalog,
	}, NewHistory(""))
}

func typeText(m model, s string) model {
	for _, r := range s {
		m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	return m
}

func TestModel_EvalBindsNames(t *testing.T) {
	m := newTestModel(t)

	m = typeText(m, "x = 2 + 3")
	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})

	if v, ok := m.session.Lookup("x"); !ok || lang.Format(v) != "5" {
		t.Fatalf("x = (%v, %v), want 5", v, ok)
	}

	if !slices.Equal(m.transcript, []string{"x = 2 + 3"}) {
		t.Errorf("transcript = %q", m.transcript)
	}

	if m.history.Len() != 1 || m.input.Value() != "" {
		t.Errorf("history len %d, input %q", m.history.Len(), m.input.Value())
	}

	// Failed statements are recorded in history only.
	m = typeText(m, "x / 0")
	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.transcript) != 1 || m.history.Len() != 2 {
		t.Errorf("transcript %q, history len %d", m.transcript, m.history.Len())
	}

	if !slices.Contains(m.completer.names(), "x") {
		t.Errorf("completer names = %q, want x", m.completer.names())
	}
}

func TestModel_ResetCommand(t *testing.T) {
	m := newTestModel(t)

	m = typeText(m, "y = 1")
	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	if m.mode != modeCtrl {
		t.Fatal("Esc did not enter command mode")
	}

	m = typeText(m, "reset")
	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})

	if _, ok := m.session.Lookup("y"); ok {
		t.Error("y survived reset")
	}

	if len(m.completer.names()) != 0 || m.transcript != nil {
		t.Errorf("names %q, transcript %q", m.completer.names(), m.transcript)
	}
}

func TestModel_HistoryRecall(t *testing.T) {
	m := newTestModel(t)

	for _, e := range []HistoryEntry{{"1", modeEval}, {"list", modeCtrl}, {"2", modeEval}} {
		if err := m.history.Add(e.Line, e.Mode); err != nil {
			t.Fatal(err)
		}
	}

	m.historyIdx = m.history.Len()

	m = m.recall(-1, nil)
	m = m.recall(-1, nil)

	if m.input.Value() != "list" || m.mode != modeCtrl {
		t.Fatalf("got (%q, %v), want list in command mode", m.input.Value(), m.mode)
	}

	m = m.switchMode(modeEval)
	m.historyIdx = m.history.Len()

	m = m.recall(-1, m.inMode(modeEval))
	m = m.recall(-1, m.inMode(modeEval))

	if m.input.Value() != "1" || m.historyIdx != 0 {
		t.Errorf("got (%q, %d), want (1, 0)", m.input.Value(), m.historyIdx)
	}

	m = m.recall(1, nil)
	m = m.recall(1, nil)
	m = m.recall(1, nil)

	if m.input.Value() != "" || m.historyIdx != m.history.Len() {
		t.Errorf("got (%q, %d), want cleared input", m.input.Value(), m.historyIdx)
	}
}

func TestModel_TabCycle(t *testing.T) {
	m := newTestModel(t)

	m = typeText(m, "tests.")
	if len(m.matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(m.matches))
	}

	m = m.cycle(1)
	if m.input.Value() != "tests.testmodel" {
		t.Errorf("after tab: %q", m.input.Value())
	}

	m = m.cycle(1)
	if m.input.Value() != "tests.testmodelchild" {
		t.Errorf("after second tab: %q", m.input.Value())
	}

	m, _ = m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	if m.input.Value() != "tests." || m.mode != modeEval {
		t.Errorf("after esc: (%q, %v)", m.input.Value(), m.mode)
	}
}

func TestReplay(t *testing.T) {
	ev := lang.New(nil)

	s, _, err := replay(t.Context(), ev, []string{"a = 1", "", "b = a + 1"})
	if err != nil {
		t.Fatal(err)
	}

	if v, _ := s.Lookup("b"); lang.Format(v) != "2" {
		t.Errorf("b = %v, want 2", v)
	}

	_, failed, err := replay(t.Context(), ev, []string{"a = 1", "b = nope"})
	if !errors.Is(err, lang.ErrName) || failed != 1 {
		t.Errorf("got (%d, %v), want name error on line 1", failed, err)
	}
}

func TestNewModel_DefaultLogger(t *testing.T) {
	m := newTestModel(t)

	if m.logger.IsZero() {
		t.Error("model without a Logger should use log.Default()")
	}

	custom := log.Make(nil, log.WithLevel(log.LevelTrace))

	m = newModel(t.Context(), Config{
		Evaluator: lang.New(nil),
		Catalog:   testCatalog,
		Logger:    custom,
	}, NewHistory(""))

	if m.logger.Level() != log.LevelTrace {
		t.Errorf("logger level = %v, want trace", m.logger.Level())
	}
}
