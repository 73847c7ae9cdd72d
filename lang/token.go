package lang

import "strconv"

// TokenKind represents the type of a lexical token.
type TokenKind uint8

const (
	// Special tokens
	TokenEOF TokenKind = iota

	// Literals
	TokenInt    // 123
	TokenFloat  // 1.49
	TokenString // "text" or 'text'
	TokenIdent  // name, app.model, field__in
	TokenFunc   // SUM
	TokenTrue   // true
	TokenFalse  // false

	// Punctuation
	TokenComma        // ,
	TokenColon        // :
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenPipe         // |
	TokenAssign       // =
	TokenEqual        // ==
	TokenPlus         // +
	TokenMinus        // -
	TokenMult         // *
	TokenDiv          // /
)

// String returns a string representation of the token kind.
func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "(eof)"
	case TokenInt:
		return "(integer)"
	case TokenFloat:
		return "(float)"
	case TokenString:
		return "(string)"
	case TokenIdent:
		return "(identifier)"
	case TokenFunc:
		return "(function)"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenComma:
		return ","
	case TokenColon:
		return ":"
	case TokenParenOpen:
		return "("
	case TokenParenClose:
		return ")"
	case TokenBraceOpen:
		return "{"
	case TokenBraceClose:
		return "}"
	case TokenBracketOpen:
		return "["
	case TokenBracketClose:
		return "]"
	case TokenPipe:
		return "|"
	case TokenAssign:
		return "="
	case TokenEqual:
		return "=="
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenMult:
		return "*"
	case TokenDiv:
		return "/"
	default:
		return "(unknown)"
	}
}

// Position identifies a location in source text.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in runes
}

// Token is a lexical token.
type Token struct {
	Kind    TokenKind
	Literal string
	Pos     Position
}

// String describes the token for diagnostics.
func (t Token) String() string {
	switch t.Kind {
	case TokenEOF:
		return t.Kind.String()
	case TokenInt, TokenFloat, TokenIdent, TokenFunc:
		return t.Kind.String() + " " + t.Literal
	case TokenString:
		return t.Kind.String() + " " + strconv.Quote(t.Literal)
	default:
		return strconv.Quote(t.Literal)
	}
}

// symbols maps single-character punctuation to its token kind.
var symbols = map[rune]TokenKind{
	',': TokenComma,
	':': TokenColon,
	'(': TokenParenOpen,
	')': TokenParenClose,
	'{': TokenBraceOpen,
	'}': TokenBraceClose,
	'[': TokenBracketOpen,
	']': TokenBracketClose,
	'|': TokenPipe,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenMult,
	'/': TokenDiv,
}
