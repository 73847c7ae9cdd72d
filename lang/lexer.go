package lang

import (
	"log/slog"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer converts source text into a stream of tokens.
type Lexer struct {
	input []byte
	pos   int
	line  int
	col   int
}

// NewLexer returns a Lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: []byte(input),
		line:  1,
		col:   1,
	}
}

// Tokenize scans all of input. The final token is always TokenEOF.
func Tokenize(input string) ([]Token, error) {
	l := NewLexer(input)
	toks := make([]Token, 0, len(input)/2+1)

	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}

		toks = append(toks, tok)

		if tok.Kind == TokenEOF {
			return toks, nil
		}
	}
}

// Next returns the next token. At end of input it returns TokenEOF for all
// subsequent calls.
func (l *Lexer) Next() (Token, error) {
	l.skipWhitespaceAndComments()

	start := l.position()

	if l.eof() {
		return Token{Kind: TokenEOF, Pos: start}, nil
	}

	ch := l.peek()

	switch {
	case ch == '=':
		l.advance()

		if l.peek() == '=' {
			l.advance()

			return Token{Kind: TokenEqual, Literal: "==", Pos: start}, nil
		}

		return Token{Kind: TokenAssign, Literal: "=", Pos: start}, nil

	case ch == '"' || ch == '\'':
		return l.scanString(start)

	case isDigit(ch):
		return l.scanNumber(start), nil

	case isIdentStart(ch):
		return l.scanIdent(start), nil
	}

	if kind, ok := symbols[ch]; ok {
		l.advance()

		return Token{Kind: kind, Literal: string(ch), Pos: start}, nil
	}

	return Token{}, ErrLex.WithPosition(start).
		With(slog.String("char", strconv.QuoteRune(ch)))
}

// scanNumber reads an integer or a float. A float has a decimal point
// followed by at least one digit.
func (l *Lexer) scanNumber(start Position) Token {
	for isDigit(l.peek()) {
		l.advance()
	}

	kind := TokenInt

	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		kind = TokenFloat

		l.advance() // skip '.'

		for isDigit(l.peek()) {
			l.advance()
		}
	}

	return Token{
		Kind:    kind,
		Literal: string(l.input[start.Offset:l.pos]),
		Pos:     start,
	}
}

// scanIdent reads an identifier, which may contain '.' between segments and
// "__" lookup delimiters.
func (l *Lexer) scanIdent(start Position) Token {
	l.advance()

	for !l.eof() {
		ch := l.peek()

		if isIdentContinue(ch) {
			l.advance()

			continue
		}

		// A dot joins path segments only when followed by an identifier char.
		if ch == '.' && isIdentContinue(l.peekAt(1)) {
			l.advance()

			continue
		}

		break
	}

	lit := string(l.input[start.Offset:l.pos])

	kind := TokenIdent

	switch {
	case lit == "true":
		kind = TokenTrue
	case lit == "false":
		kind = TokenFalse
	case isFuncName(lit):
		kind = TokenFunc
	}

	return Token{Kind: kind, Literal: lit, Pos: start}
}

// scanString reads a quoted string literal using Go escape rules.
func (l *Lexer) scanString(start Position) (Token, error) {
	quote := l.peek()

	l.advance() // skip opening quote

	var sb strings.Builder

	for {
		if l.eof() || l.peek() == '\n' {
			return Token{}, ErrLex.WithPosition(start).
				With(slog.String("issue", "unterminated string"))
		}

		ch := l.peek()

		if ch == quote {
			l.advance()

			break
		}

		if ch == '\\' {
			tail := string(l.input[l.pos:])

			r, _, rest, err := strconv.UnquoteChar(tail, byte(quote))
			if err != nil {
				return Token{}, ErrLex.WithPosition(l.position()).
					With(slog.String("issue", "invalid escape sequence"))
			}

			for range len(tail) - len(rest) {
				l.advanceByte()
			}

			sb.WriteRune(r)

			continue
		}

		sb.WriteRune(ch)
		l.advance()
	}

	return Token{Kind: TokenString, Literal: sb.String(), Pos: start}, nil
}

// Helper methods

func (l *Lexer) peek() rune {
	return l.peekAt(0)
}

// peekAt returns the rune n runes ahead of the current position.
func (l *Lexer) peekAt(n int) rune {
	pos := l.pos

	for i := 0; ; i++ {
		if pos >= len(l.input) {
			return 0
		}

		r, size := utf8.DecodeRune(l.input[pos:])
		if i == n {
			return r
		}

		pos += size
	}
}

func (l *Lexer) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRune(l.input[l.pos:])

	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

// advanceByte moves forward one byte, counting columns only at rune starts.
func (l *Lexer) advanceByte() {
	if l.eof() {
		return
	}

	if utf8.RuneStart(l.input[l.pos]) {
		l.col++
	}

	l.pos++
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for !l.eof() {
		ch := l.peek()

		switch {
		case unicode.IsSpace(ch):
			l.advance()

		case ch == '#':
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}

		default:
			return
		}
	}
}

// Character classification

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentContinue(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// isFuncName reports whether s is spelled like an aggregate function name:
// an uppercase letter followed by uppercase letters, digits, or underscores.
func isFuncName(s string) bool {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return false
	}

	for i := 1; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}

	return true
}
