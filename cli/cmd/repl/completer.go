package repl

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/orml/lang"
)

// Catalog lists the entities a session can query.
type Catalog interface {
	// Paths returns the dotted paths of all entities.
	Paths() []string

	// Fields returns the fields of the entity at path, or nil.
	Fields(path string) []string
}

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "list", "paths", "edit", "reset", "clear", "quit"}

// isWordBoundary reports whether r delimits a completion word. Underscores
// are part of words so that "val__gt" completes as one filter key.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '=',
		',', ':', '|', '\'', '"':
		return true
	}

	return false
}

// wordBounds returns the word at cursor and its byte boundaries within
// input. The word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the dotted path leading up to the word at wordStart.
// For "x + tests.test" with the word "test", the parent path is "tests".
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")
	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return prefix[pos:]
}

// bracketScope describes the innermost unclosed '{' or '[' before a word.
type bracketScope struct {
	open  rune   // '{' or '['
	path  string // entity path immediately before the bracket
	value bool   // word follows a ':' within the bracket
}

// enclosingScope finds the innermost unclosed bracket before wordStart.
// It reports false when the word is not inside one, or when the innermost
// bracket is a parenthesis.
func enclosingScope(input string, wordStart int) (bracketScope, bool) {
	var (
		depth   int
		value   bool
		decided bool // the nearest ':' or ',' has been seen
		quote   rune
	)

	// Quotes are tracked forward so delimiters inside strings are ignored.
	inString := make([]bool, wordStart)

	for i, r := range input[:wordStart] {
		switch {
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '\'' || r == '"'):
			quote = r
		}

		inString[i] = quote != 0
	}

	for i := wordStart - 1; i >= 0; i-- {
		if inString[i] {
			continue
		}

		switch r := rune(input[i]); r {
		case ')', ']', '}':
			depth++

		case '(':
			if depth == 0 {
				return bracketScope{}, false
			}

			depth--

		case '[', '{':
			if depth > 0 {
				depth--

				continue
			}

			word, start, _ := wordBounds(input, i)
			path := word

			if p := parentPath(input, start); p != "" {
				path = p + "." + word
			}

			return bracketScope{open: r, path: path, value: value}, true

		case ':', ',':
			if depth == 0 && !decided {
				value = r == ':'
				decided = true
			}
		}
	}

	return bracketScope{}, false
}

// completer computes completion candidates for a session.
type completer struct {
	catalog    Catalog
	names      func() []string
	aggregates []string
}

// candidates returns the completions valid for the word starting at
// wordStart.
func (c completer) candidates(input string, wordStart int) []string {
	if scope, ok := enclosingScope(input, wordStart); ok && !scope.value {
		if fields := c.fields(scope.path); fields != nil {
			if scope.open == '[' {
				return fields
			}

			return filterKeys(fields)
		}
	}

	if parent := parentPath(input, wordStart); parent != "" {
		return c.segments(parent + ".")
	}

	var out []string

	if c.names != nil {
		out = append(out, c.names()...)
	}

	out = append(out, c.aggregates...)

	return append(out, c.segments("")...)
}

func (c completer) fields(path string) []string {
	if c.catalog == nil || path == "" {
		return nil
	}

	return c.catalog.Fields(path)
}

// segments returns the distinct next path segments of every entity path
// starting with prefix.
func (c completer) segments(prefix string) []string {
	if c.catalog == nil {
		return nil
	}

	var out []string

	for _, p := range c.catalog.Paths() {
		rest, ok := strings.CutPrefix(p, strings.ToLower(prefix))
		if !ok || rest == "" {
			continue
		}

		seg, _, _ := strings.Cut(rest, ".")
		if !slices.Contains(out, seg) {
			out = append(out, seg)
		}
	}

	return out
}

// filterKeys returns every field followed by every field__lookup pair.
func filterKeys(fields []string) []string {
	out := slices.Clone(fields)

	for _, f := range fields {
		for _, l := range lang.Lookups() {
			out = append(out, f+"__"+l)
		}
	}

	return out
}

// computeMatches ranks the candidates for the word at the cursor. An empty
// word matches nothing at the top level and everything after a dot or inside
// a bracket.
func (m model) computeMatches() (
	matches fuzzy.Matches,
	candidates []string,
	wordStart, wordEnd int,
) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	if m.mode == modeCtrl {
		candidates = ctrlCommands
	} else {
		candidates = m.completer.candidates(input, wordStart)
	}

	if len(candidates) == 0 {
		return nil, nil, wordStart, wordEnd
	}

	if word == "" {
		if m.mode == modeCtrl || wordStart == 0 || !opensScope(input[wordStart-1]) {
			return nil, nil, wordStart, wordEnd
		}

		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, candidates, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), candidates, wordStart, wordEnd
}

// opensScope reports whether b starts a context in which every candidate is
// listed before anything is typed.
func opensScope(b byte) bool {
	return b == '.' || b == '{' || b == '['
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within width.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
	isFunc func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx, isFunc(match.Str))

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a candidate with its matched characters
// highlighted. Aggregates are shown with a "()" suffix.
func renderCandidate(match fuzzy.Match, selected, isFunc bool) string {
	base := suggestionStyle
	highlight := lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true)

	if selected {
		base = selectedStyle
		highlight = highlight.Foreground(lipgloss.Color("0")).Background(lipgloss.Color("4"))
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if isFunc {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}

// preview renders a short description of a bound value.
func preview(v lang.Value) string {
	s := lang.Format(v)

	if utf8.RuneCountInString(s) > 40 {
		s = string([]rune(s)[:37]) + "..."
	}

	return v.Kind().String() + " " + s
}
