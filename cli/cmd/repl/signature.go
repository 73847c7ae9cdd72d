package repl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

// signature describes the arguments of an aggregate.
type signature struct {
	params []string
	doc    string
}

// builtinSignatures documents the aggregates every evaluator provides.
var builtinSignatures = map[string]signature{
	"SUM":   {[]string{"...values"}, "sum of numbers; Int unless any Float"},
	"AVG":   {[]string{"...values"}, "arithmetic mean as Float"},
	"MIN":   {[]string{"...values"}, "smallest number"},
	"MAX":   {[]string{"...values"}, "largest number"},
	"COUNT": {[]string{"...values"}, "number of values or records"},
}

// lookupSignature returns the signature of the aggregate name. Aggregates
// registered without documentation take any number of values.
func lookupSignature(name string, aggregates []string) (signature, bool) {
	if sig, ok := builtinSignatures[name]; ok {
		return sig, true
	}

	for _, a := range aggregates {
		if a == name {
			return signature{params: []string{"...values"}}, true
		}
	}

	return signature{}, false
}

// Hint styles.
var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// callSite is the aggregate call enclosing the cursor.
type callSite struct {
	name     string
	argIndex int
}

// detectCall reports the innermost aggregate call whose argument list holds
// the cursor. Parenthesized groupings and tuples are not calls.
func detectCall(input string, cursor int) (callSite, bool) {
	cursor = min(cursor, len(input))

	depth := 0
	open := -1

scan:
	for i := cursor; i > 0; {
		r, size := utf8.DecodeLastRuneInString(input[:i])
		i -= size

		switch r {
		case ')', ']', '}':
			depth++
		case '[', '{':
			if depth == 0 {
				return callSite{}, false
			}

			depth--
		case '(':
			if depth == 0 {
				open = i

				break scan
			}

			depth--
		}
	}

	if open < 0 {
		return callSite{}, false
	}

	start := open
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}

		start -= size
	}

	name := input[start:open]
	if name == "" {
		return callSite{}, false
	}

	arg := 0
	depth = 0

	for _, r := range input[open+1 : cursor] {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				arg++
			}
		}
	}

	return callSite{name: name, argIndex: arg}, true
}

// renderSignatureHint renders name with its parameters, highlighting the one
// at argIndex. A variadic parameter stays highlighted for every later index.
func renderSignatureHint(name string, sig signature, argIndex int) string {
	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(name))
	b.WriteString(signatureStyle.Render("("))

	for i, p := range sig.params {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		variadic := strings.HasPrefix(p, "...")
		if argIndex == i || (variadic && argIndex > i) {
			b.WriteString(currentParamStyle.Render(p))
		} else {
			b.WriteString(signatureStyle.Render(p))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	if sig.doc != "" {
		b.WriteString(signatureStyle.Render("  " + sig.doc))
	}

	return b.String()
}
