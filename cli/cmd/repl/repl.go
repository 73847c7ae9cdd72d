package repl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/log"
)

// sessionMsg is sent when an edit replaced the session.
type sessionMsg struct {
	session *lang.Session
	lines   []string
}

type (
	editCancelledMsg struct{}
	editDeclinedMsg  struct{}
	editErrorMsg     struct{ err error }
)

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

var helpMessage = `
: Commands (press Esc to toggle mode):

  help     Print this help
  list     List bound names with a preview of their values
  paths    List the entity paths of the store
  edit     Edit the session transcript in $EDITOR and replay it
  reset    Discard every binding
  clear    Clear screen
  quit     Exit REPL

Usage:
  Type a statement to evaluate it; assignments persist for the session
  Completions appear automatically as you type
  Press Tab / Shift-Tab to cycle through candidates
  Press Esc to toggle between eval and command modes
  Use Up/Down arrows for history navigation (mode switches automatically)
  Use Shift+Up/Shift+Down for history navigation within the current mode
  Press Ctrl+C on empty line or Ctrl+D to exit
`

// inputMode is the mode a line is submitted in.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	selectedStyle   = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
)

// Config configures an interactive session.
type Config struct {
	// Evaluator evaluates every statement.
	Evaluator *lang.Evaluator

	// Catalog supplies entity paths and fields for completion. Optional.
	Catalog Catalog

	// CacheDir holds the history file. Empty keeps history in memory.
	CacheDir string

	// Logger receives trace output. The zero Logger means log.Default().
	Logger log.Logger

	// Preload statements are evaluated before the prompt is shown.
	Preload []string
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctx       context.Context
	evaluator *lang.Evaluator
	session   *lang.Session
	catalog   Catalog
	completer completer
	logger    log.Logger
	history   *History
	// transcript holds the statements that evaluated successfully.
	transcript []string

	input      textinput.Model
	historyIdx int
	mode       inputMode
	stash      [2]stashed // per-mode input saved across toggles

	matches      fuzzy.Matches
	candidates   []string
	wordStart    int
	wordEnd      int
	suggIdx      int
	tabActive    bool
	preTabText   string
	preTabCursor int

	width    int
	quitting bool
}

type stashed struct {
	text   string
	cursor int
}

// Run starts an interactive session and blocks until the user quits.
func Run(ctx context.Context, cfg Config) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	if cfg.Logger.IsZero() {
		cfg.Logger = log.Default()
	}

	var path string
	if cfg.CacheDir != "" {
		path = filepath.Join(cfg.CacheDir, baseHistory)
	}

	history := NewHistory(path)
	if err := history.Load(); err != nil {
		cfg.Logger.WarnContext(ctx, "could not load history",
			slog.String("path", path), slog.Any("error", err))
	}

	m := newModel(ctx, cfg, history)

	var out []string

	for _, line := range cfg.Preload {
		v, err := m.session.Eval(ctx, line)
		if err != nil {
			return err
		}

		text, err := render(ctx, v)
		if err != nil {
			return err
		}

		m.transcript = append(m.transcript, line)
		out = append(out, formatCommand(line), resultStyle.Render(text))
	}

	cfg.Logger.TraceContext(ctx, "repl start",
		slog.String("history", path),
		slog.Int("history_len", history.Len()),
		slog.Int("preload", len(cfg.Preload)))

	if len(out) > 0 {
		fmt.Println(strings.Join(out, "\n"))
	}

	_, err = tea.NewProgram(m, tea.WithContext(ctx)).Run()

	return err
}

const defaultWidth = 80

func newModel(ctx context.Context, cfg Config, history *History) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = defaultWidth

	logger := cfg.Logger
	if logger.IsZero() {
		logger = log.Default()
	}

	m := model{
		ctx:        ctx,
		evaluator:  cfg.Evaluator,
		session:    cfg.Evaluator.NewSession(),
		catalog:    cfg.Catalog,
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		input:      ti,
		suggIdx:    -1,
		width:      defaultWidth,
	}

	m.completer = completer{
		catalog:    cfg.Catalog,
		names:      m.session.Names,
		aggregates: cfg.Evaluator.Aggregates(),
	}

	return m
}

func (m model) Init() tea.Cmd { return textinput.Blink }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - lipgloss.Width(evalPrompt) - 2

		return m, nil

	case sessionMsg:
		m.setSession(msg.session)
		m.transcript = msg.lines

		return m, tea.Println(resultStyle.Render(
			fmt.Sprintf("✔ replayed %d lines", len(msg.lines))))

	case editCancelledMsg:
		return m, tea.Println(hintStyle.Render("edit cancelled"))

	case editDeclinedMsg:
		m.quitting = true

		return m, tea.Quit

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

// setSession replaces the session and rebinds the completer to it.
func (m *model) setSession(s *lang.Session) {
	m.session = s
	m.completer.names = s.Names
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	return m.input.View() + "\n" + m.hintLine() + "\n"
}

// hintLine renders the line below the prompt: the history position, a usage
// hint, an aggregate signature, or the completion bar.
func (m model) hintLine() string {
	input := m.input.Value()

	if total := m.history.Len(); m.historyIdx < total {
		pos := lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx + 1))

		return hintStyle.Render(fmt.Sprintf("%s/%d", pos, total))
	}

	if strings.TrimSpace(input) == "" {
		if m.mode == modeCtrl {
			return hintStyle.Render("Type: " + strings.Join(ctrlCommands, ", ") + " (press Esc to return)")
		}

		return hintStyle.Render("Type a statement or press Esc for commands")
	}

	if m.mode == modeEval && !m.tabActive {
		if call, ok := detectCall(input, m.input.Position()); ok {
			if sig, ok := lookupSignature(call.name, m.completer.aggregates); ok {
				return renderSignatureHint(call.name, sig, call.argIndex)
			}
		}
	}

	return renderCandidateBar(m.matches, m.suggIdx, m.tabActive, m.width, m.isAggregate)
}

func (m model) isAggregate(name string) bool {
	return slices.Contains(m.completer.aggregates, name)
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.Len()
		m.refreshMatches(false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if m.tabActive && len(m.matches) > 0 {
			m.tabActive = false
			m.refreshMatches(true)

			return m, nil
		}

		return m.submit()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.recall(-1, nil), nil

	case tea.KeyDown:
		return m.recall(1, nil), nil

	case tea.KeyShiftUp:
		return m.recall(-1, m.inMode(m.mode)), nil

	case tea.KeyShiftDown:
		return m.recall(1, m.inMode(m.mode)), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			m.refreshMatches(false)

			return m, nil
		}

		if m.mode == modeEval {
			return m.switchMode(modeCtrl), nil
		}

		return m.switchMode(modeEval), nil
	}

	var cmd tea.Cmd

	typed := msg.Type == tea.KeyRunes

	if !typed || msg.String() == " " {
		m.tabActive = false
	}

	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refreshMatches(typed)

	return m, cmd
}

// cycle moves the tab selection by step, wrapping at either end. A single
// match is accepted immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)

	switch {
	case n == 0:
		return m

	case n == 1:
		m.replaceWord(m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m

	case !m.tabActive:
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		if step > 0 {
			m.suggIdx = 0
		} else {
			m.suggIdx = n - 1
		}

	default:
		m.suggIdx = (m.suggIdx + step + n) % n
	}

	m.replaceWord(m.matches[m.suggIdx].Str)

	return m
}

// replaceWord substitutes s for the current word and moves the cursor after
// it.
func (m *model) replaceWord(s string) {
	input := m.input.Value()

	m.input.SetValue(input[:m.wordStart] + s + input[m.wordEnd:])
	m.input.SetCursor(m.wordStart + len(s))
	m.wordEnd = m.wordStart + len(s)
}

// refreshMatches recomputes the completion matches. With accept set, a word
// already equal to its only match is accepted.
func (m *model) refreshMatches(accept bool) {
	m.matches, m.candidates, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !accept || len(m.matches) != 1 {
		return
	}

	if m.input.Value()[m.wordStart:m.wordEnd] == m.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

// inMode returns a history filter keeping entries submitted in mode.
func (m model) inMode(mode inputMode) func(HistoryEntry) bool {
	return func(e HistoryEntry) bool { return e.Mode == mode }
}

// recall moves through history by dir, skipping entries rejected by keep.
// Moving past the newest entry clears the input.
func (m model) recall(dir int, keep func(HistoryEntry) bool) model {
	for i := m.historyIdx + dir; i >= 0 && i < m.history.Len(); i += dir {
		e, err := m.history.Entry(i)
		if err != nil || (keep != nil && !keep(e)) {
			continue
		}

		if e.Mode != m.mode {
			m = m.switchMode(e.Mode)
		}

		m.historyIdx = i
		m.input.SetValue(e.Line)
		m.input.SetCursor(len(e.Line))
		m.refreshMatches(false)

		return m
	}

	if dir > 0 && m.historyIdx < m.history.Len() {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		m.refreshMatches(false)
	}

	return m
}

// switchMode changes the input mode, keeping each mode's pending input.
func (m model) switchMode(mode inputMode) model {
	m.stash[m.mode] = stashed{m.input.Value(), m.input.Position()}
	m.mode = mode

	if mode == modeEval {
		m.input.Prompt = promptStyle.Render(evalPrompt)
	} else {
		m.input.Prompt = ctrlPromptStyle.Render(ctrlPrompt)
	}

	m.input.SetValue(m.stash[mode].text)
	m.input.SetCursor(m.stash[mode].cursor)
	m.refreshMatches(false)

	return m
}

func (m model) submit() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	m.stash = [2]stashed{}
	m.input.SetValue("")
	m.matches = nil

	if err := m.history.Add(input, m.mode); err != nil {
		m.logger.WarnContext(m.ctx, "could not write history", slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if m.mode == modeCtrl {
		return m.command(input)
	}

	return m.eval(input)
}

func (m model) eval(input string) (model, tea.Cmd) {
	echo := tea.Println(formatCommand(input))

	v, err := m.session.Eval(m.ctx, input)
	if err != nil {
		m.logger.TraceContext(m.ctx, "repl eval", slog.String("input", input), slog.Any("error", err))

		out := errorStyle.Render("error: " + err.Error())
		if snip := lang.Snippet(input, err); snip != "" {
			out += "\n" + hintStyle.Render(strings.TrimRight(snip, "\n"))
		}

		return m, tea.Sequence(echo, tea.Println(out))
	}

	m.transcript = append(m.transcript, input)

	m.logger.TraceContext(m.ctx, "repl eval",
		slog.String("input", input),
		slog.String("kind", v.Kind().String()))

	text, err := render(m.ctx, v)
	if err != nil {
		return m, tea.Sequence(echo, tea.Println(errorStyle.Render("error: "+err.Error())))
	}

	return m, tea.Sequence(echo, tea.Println(resultStyle.Render(text)))
}

// render returns the canonical text of v with record sets read in full.
func render(ctx context.Context, v lang.Value) (string, error) {
	var sb strings.Builder

	if err := lang.FormatNative(ctx, &sb, v); err != nil {
		return "", err
	}

	return strings.TrimSuffix(sb.String(), "\n"), nil
}

func (m model) command(input string) (model, tea.Cmd) {
	fields := strings.Fields(input)
	echo := tea.Println(ctrlPromptStyle.Render(ctrlPrompt) + inputStyle.Render(input))

	m.logger.TraceContext(m.ctx, "repl command", slog.Any("args", fields))

	switch fields[0] {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echo, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echo, tea.Println(helpMessage))

	case "l", "list":
		return m, tea.Sequence(echo, tea.Println(m.listNames()))

	case "p", "paths":
		return m, tea.Sequence(echo, tea.Println(m.listPaths()))

	case "r", "reset":
		m.setSession(m.evaluator.NewSession())
		m.transcript = nil

		return m, tea.Sequence(echo, tea.Println(hintStyle.Render("session reset")))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		return m, tea.Sequence(echo, m.edit())

	default:
		return m, tea.Println(errorStyle.Render("unknown command: " + fields[0] + " (try 'help')"))
	}
}

func (m model) edit() tea.Cmd {
	cmd := &editCommand{
		ctx:        m.ctx,
		evaluator:  m.evaluator,
		logger:     m.logger,
		transcript: slices.Clone(m.transcript),
	}

	return tea.Exec(cmd, func(err error) tea.Msg {
		switch {
		case errors.Is(err, ErrEditDeclined):
			return editDeclinedMsg{}
		case err != nil:
			return editErrorMsg{err: err}
		case cmd.session == nil:
			return editCancelledMsg{}
		}

		return sessionMsg{session: cmd.session, lines: cmd.lines}
	})
}

func (m model) listNames() string {
	names := m.session.Names()
	if len(names) == 0 {
		return hintStyle.Render("  (no bindings)")
	}

	var b strings.Builder

	for _, name := range names {
		v, _ := m.session.Lookup(name)
		fmt.Fprintf(&b, "  %s %s\n", name, hintStyle.Render(preview(v)))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func (m model) listPaths() string {
	if m.catalog == nil {
		return hintStyle.Render("  (no store)")
	}

	var b strings.Builder

	for _, p := range m.catalog.Paths() {
		fmt.Fprintf(&b, "  %s %s\n", p,
			hintStyle.Render(strings.Join(m.catalog.Fields(p), ", ")))
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func formatCommand(input string) string {
	return promptStyle.Render(evalPrompt) + inputStyle.Render(input)
}
