package lang

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ParseString parses input as a single statement and returns it as a
// one-statement [Block].
// Options other than logging and nesting depth are ignored.
func ParseString(ctx context.Context, input string, opts ...Option) (*Block, error) {
	return parseString(ctx, input, makeConfig(opts...))
}

func parseString(ctx context.Context, input string, cfg config) (*Block, error) {
	cfg.logger.TraceContext(ctx, "parse start",
		slog.Int("source_length", len(input)))

	stmt, err := parseStatement(input, 1, cfg.maxDepth)
	if err != nil {
		return nil, err
	}

	cfg.logger.TraceContext(ctx, "parse complete",
		slog.Int("statement_count", 1))

	return &Block{Stmts: []Stmt{stmt}}, nil
}

// ParseBlock parses each line as one statement of a [Block], preserving
// order. Lines that are blank or hold only a comment are skipped.
func ParseBlock(ctx context.Context, lines []string, opts ...Option) (*Block, error) {
	return parseBlock(ctx, lines, makeConfig(opts...))
}

func parseBlock(ctx context.Context, lines []string, cfg config) (*Block, error) {
	cfg.logger.TraceContext(ctx, "parse start",
		slog.Int("line_count", len(lines)))

	b := &Block{Stmts: make([]Stmt, 0, len(lines))}

	for i, line := range lines {
		if isBlank(line) {
			continue
		}

		stmt, err := parseStatement(line, i+1, cfg.maxDepth)
		if err != nil {
			return nil, err
		}

		b.Stmts = append(b.Stmts, stmt)
	}

	cfg.logger.TraceContext(ctx, "parse complete",
		slog.Int("statement_count", len(b.Stmts)))

	return b, nil
}

// ParseExpr parses input as a single expression. Assignments and pipelines
// are rejected.
func ParseExpr(input string) (Node, error) {
	toks, err := tokenizeLine(input, 1)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks, maxDepth: DefaultMaxDepth}

	n, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenEOF, "end of expression"); err != nil {
		return nil, err
	}

	return n, nil
}

// minIntMagnitude is the decimal magnitude of math.MinInt64.
const minIntMagnitude = "9223372036854775808"

// parser holds the parser state for one statement.
type parser struct {
	toks []Token
	pos  int

	depth    int
	maxDepth int

	// bare is set while parsing the values of a brace-less chain stage. It
	// keeps trailing '[' and '|' attached to the enclosing query.
	bare bool
}

// isBlank reports whether a line holds no tokens.
func isBlank(line string) bool {
	l := NewLexer(line)
	l.skipWhitespaceAndComments()

	return l.eof()
}

// tokenizeLine tokenizes one statement line, reporting positions on the given
// line number.
func tokenizeLine(input string, line int) ([]Token, error) {
	l := NewLexer(input)
	l.line = line

	var toks []Token

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

// parseStatement parses: Assignment | Collection Pipeline?.
func parseStatement(input string, line, maxDepth int) (Stmt, error) {
	toks, err := tokenizeLine(input, line)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks, maxDepth: maxDepth}

	var stmt Stmt

	// Upper-case names lex as TokenFunc but are still assignable.
	if (p.at(TokenIdent) || p.at(TokenFunc)) && p.peek(1).Kind == TokenAssign {
		stmt, err = p.parseAssign()
	} else {
		stmt, err = p.parseCollection()
		if err == nil && p.at(TokenPipe) {
			stmt, err = p.parsePipeline(stmt)
		}
	}

	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenEOF, "end of statement"); err != nil {
		return nil, err
	}

	return stmt, nil
}

// parseAssign parses: IDENT '=' Collection Pipeline?.
func (p *parser) parseAssign() (Stmt, error) {
	name := p.next()
	p.next() // skip '='

	value, err := p.parseCollection()
	if err == nil && p.at(TokenPipe) {
		value, err = p.parsePipeline(value)
	}

	if err != nil {
		return nil, err
	}

	return &Assign{Start: name.Pos, Name: name.Literal, Value: value}, nil
}

// parsePipeline parses ('|' Stage)+ following a leading filter map.
func (p *parser) parsePipeline(head Node) (Node, error) {
	m, ok := head.(*MapLit)
	if !ok {
		return nil, p.errorf("filter map before '|'")
	}

	pipe := &PipelineExpr{
		Start:  m.Start,
		Stages: []*FilterMap{{Start: m.Start, Pairs: m.Pairs}},
	}

	for p.at(TokenPipe) {
		p.next()

		var (
			fm  *FilterMap
			err error
		)

		if p.at(TokenBraceOpen) {
			fm, err = p.parseFilterBraces()
		} else {
			fm, err = p.parseFilterBare()
		}

		if err != nil {
			return nil, err
		}

		pipe.Stages = append(pipe.Stages, fm)
	}

	return pipe, nil
}

// collection is the outcome of the Collection rule before it is reduced to a
// node.
type collection struct {
	start  Position
	items  []Node
	pairs  []Pair
	commas int
}

// parseCollection parses: Item (',' Item)* ','?.
//
// A collection whose items are all key:value pairs is a map; one whose items
// are all expressions is a list, unless it is a single expression with no
// comma, which stands for itself. Mixing pairs and expressions is an error.
func (p *parser) parseCollection() (Node, error) {
	c, err := p.collect()
	if err != nil {
		return nil, err
	}

	switch {
	case len(c.pairs) > 0:
		return &MapLit{Start: c.start, Pairs: c.pairs}, nil

	case len(c.items) == 1 && c.commas == 0:
		return c.items[0], nil

	default:
		return &ListLit{Start: c.start, Elems: c.items}, nil
	}
}

func (p *parser) collect() (*collection, error) {
	c := &collection{start: p.cur().Pos}
	seen := make(map[string]struct{})

	for {
		if p.isPairStart() {
			if len(c.items) > 0 {
				return nil, p.errorf("expression (cannot mix list items and key:value pairs)")
			}

			pair, err := p.parsePair(seen)
			if err != nil {
				return nil, err
			}

			c.pairs = append(c.pairs, pair)
		} else {
			if len(c.pairs) > 0 {
				return nil, p.errorf("key:value pair (cannot mix list items and key:value pairs)")
			}

			n, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			c.items = append(c.items, n)
		}

		if !p.at(TokenComma) {
			return c, nil
		}

		p.next()
		c.commas++

		if p.atCollectionEnd() {
			return c, nil
		}
	}
}

// atCollectionEnd reports whether the current token closes a collection,
// allowing a trailing comma.
func (p *parser) atCollectionEnd() bool {
	switch p.cur().Kind {
	case TokenEOF, TokenParenClose, TokenBraceClose, TokenBracketClose, TokenPipe:
		return true
	default:
		return false
	}
}

// isPairStart reports whether the next two tokens begin a key:value pair.
func (p *parser) isPairStart() bool {
	switch p.cur().Kind {
	case TokenIdent, TokenFunc, TokenString:
		return p.peek(1).Kind == TokenColon
	default:
		return false
	}
}

// parsePair parses: Key ':' Expression.
func (p *parser) parsePair(seen map[string]struct{}) (Pair, error) {
	key := p.next()

	if _, dup := seen[key.Literal]; dup {
		return Pair{}, ErrParse.WithPosition(key.Pos).With(
			slog.String("issue", "duplicate key"),
			slog.String("key", key.Literal),
		)
	}

	seen[key.Literal] = struct{}{}

	p.next() // skip ':'

	value, err := p.parseExpression()
	if err != nil {
		return Pair{}, err
	}

	return Pair{KeyPos: key.Pos, Key: key.Literal, Value: value}, nil
}

// parseFilterBraces parses: '{' (Pair (',' Pair)* ','?)? '}'.
func (p *parser) parseFilterBraces() (*FilterMap, error) {
	open := p.next()
	fm := &FilterMap{Start: open.Pos}
	seen := make(map[string]struct{})

	bare := p.bare
	p.bare = false

	defer func() { p.bare = bare }()

	for !p.at(TokenBraceClose) {
		if !p.isPairStart() {
			return nil, p.errorf("key:value pair")
		}

		pair, err := p.parsePair(seen)
		if err != nil {
			return nil, err
		}

		fm.Pairs = append(fm.Pairs, pair)

		if !p.at(TokenComma) {
			break
		}

		p.next()
	}

	if err := p.expect(TokenBraceClose, "'}'"); err != nil {
		return nil, err
	}

	return fm, nil
}

// parseFilterBare parses: Pair (',' Pair)*. A comma not followed by a pair
// ends the group and is left for the enclosing collection.
func (p *parser) parseFilterBare() (*FilterMap, error) {
	if !p.isPairStart() {
		return nil, p.errorf("key:value pair")
	}

	fm := &FilterMap{Start: p.cur().Pos}
	seen := make(map[string]struct{})

	bare := p.bare
	p.bare = true

	defer func() { p.bare = bare }()

	for {
		pair, err := p.parsePair(seen)
		if err != nil {
			return nil, err
		}

		fm.Pairs = append(fm.Pairs, pair)

		if !p.at(TokenComma) || !p.isPairStartAt(1) {
			return fm, nil
		}

		p.next() // skip ','
	}
}

func (p *parser) isPairStartAt(n int) bool {
	switch p.peek(n).Kind {
	case TokenIdent, TokenFunc, TokenString:
		return p.peek(n+1).Kind == TokenColon
	default:
		return false
	}
}

// parseExpression parses: Additive ('==' Additive)*.
func (p *parser) parseExpression() (Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	for p.at(TokenEqual) {
		op := p.next()

		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Op: op.Kind, OpPos: op.Pos, Left: left, Right: right}
	}

	return left, nil
}

// parseAdditive parses: Mult (('+' | '-') Mult)*.
func (p *parser) parseAdditive() (Node, error) {
	left, err := p.parseMult()
	if err != nil {
		return nil, err
	}

	for p.at(TokenPlus) || p.at(TokenMinus) {
		op := p.next()

		right, err := p.parseMult()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Op: op.Kind, OpPos: op.Pos, Left: left, Right: right}
	}

	return left, nil
}

// parseMult parses: Unary (('*' | '/') Unary)*.
func (p *parser) parseMult() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.at(TokenMult) || p.at(TokenDiv) {
		op := p.next()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		left = &BinaryExpr{Op: op.Kind, OpPos: op.Pos, Left: left, Right: right}
	}

	return left, nil
}

// parseUnary parses: '-' Unary | Postfix. Every nested construct passes
// through here, so it also enforces the nesting limit.
func (p *parser) parseUnary() (Node, error) {
	if p.depth >= p.maxDepth {
		return nil, ErrParse.WithPosition(p.cur().Pos).With(
			slog.String("issue", "nesting too deep"),
			slog.Int("max_depth", p.maxDepth),
		)
	}

	p.depth++
	defer func() { p.depth-- }()

	// The magnitude of the smallest integer does not fit in an int64, so
	// its negation is read as one literal.
	if lit := p.peek(1); p.at(TokenMinus) && lit.Kind == TokenInt && lit.Literal == minIntMagnitude {
		op := p.next()
		p.next()

		return &NumberLit{Start: op.Pos, Literal: "-" + lit.Literal, Int: math.MinInt64}, nil
	}

	if p.at(TokenMinus) {
		op := p.next()

		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		return &UnaryExpr{Op: op.Kind, Start: op.Pos, Operand: operand}, nil
	}

	return p.parsePostfix()
}

// parsePostfix parses: Primary ('[' Expression ']')*.
func (p *parser) parsePostfix() (Node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for p.at(TokenBracketOpen) && !p.bare {
		open := p.next()

		idx, err := p.parseNested(p.parseExpression)
		if err != nil {
			return nil, err
		}

		if err := p.expect(TokenBracketClose, "']'"); err != nil {
			return nil, err
		}

		n = &IndexExpr{Start: open.Pos, Target: n, Index: idx}
	}

	return n, nil
}

// parsePrimary parses: Number | String | Boolean | Grouping | Call | Query |
// Identifier.
func (p *parser) parsePrimary() (Node, error) {
	tok := p.cur()

	switch tok.Kind {
	case TokenInt:
		p.next()

		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, ErrParse.WithPosition(tok.Pos).With(
				slog.String("issue", "integer out of range"),
				slog.String("found", tok.Literal),
			)
		}

		return &NumberLit{Start: tok.Pos, Literal: tok.Literal, Int: i}, nil

	case TokenFloat:
		p.next()

		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, ErrParse.WithPosition(tok.Pos).With(
				slog.String("issue", "float out of range"),
				slog.String("found", tok.Literal),
			)
		}

		return &NumberLit{
			Start:   tok.Pos,
			Literal: tok.Literal,
			IsFloat: true,
			Float:   f,
		}, nil

	case TokenString:
		p.next()

		return &StringLit{Start: tok.Pos, Value: tok.Literal}, nil

	case TokenTrue, TokenFalse:
		p.next()

		return &BoolLit{Start: tok.Pos, Value: tok.Kind == TokenTrue}, nil

	case TokenParenOpen:
		return p.parseGroup()

	case TokenFunc:
		if p.peek(1).Kind == TokenParenOpen {
			return p.parseCall()
		}

		return p.parseIdentOrQuery()

	case TokenIdent:
		return p.parseIdentOrQuery()

	default:
		return nil, p.errorf("expression")
	}
}

// parseGroup parses: '(' Collection? ')'.
func (p *parser) parseGroup() (Node, error) {
	open := p.next()

	if p.at(TokenParenClose) {
		p.next()

		return &ListLit{Start: open.Pos}, nil
	}

	var c *collection

	_, err := p.parseNested(func() (Node, error) {
		var err error

		c, err = p.collect()

		return nil, err
	})
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenParenClose, "')'"); err != nil {
		return nil, err
	}

	switch {
	case len(c.pairs) > 0:
		return &MapLit{Start: open.Pos, Pairs: c.pairs}, nil

	case len(c.items) == 1 && c.commas == 0:
		return &Grouping{Start: open.Pos, Inner: c.items[0]}, nil

	default:
		return &ListLit{Start: open.Pos, Elems: c.items}, nil
	}
}

// parseCall parses: FUNC '(' (Expression (',' Expression)* ','?)? ')'.
func (p *parser) parseCall() (Node, error) {
	name := p.next()
	p.next() // skip '('

	call := &CallExpr{Start: name.Pos, Name: name.Literal}

	_, err := p.parseNested(func() (Node, error) {
		for !p.at(TokenParenClose) {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}

			call.Args = append(call.Args, arg)

			if !p.at(TokenComma) {
				break
			}

			p.next()
		}

		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	if err := p.expect(TokenParenClose, "')'"); err != nil {
		return nil, err
	}

	return call, nil
}

// parseIdentOrQuery parses an identifier, which begins a query when followed
// by '{', '|', or (for a dotted path) a projection or index.
func (p *parser) parseIdentOrQuery() (Node, error) {
	tok := p.cur()

	isQuery := false

	switch p.peek(1).Kind {
	case TokenBraceOpen:
		isQuery = true

	case TokenPipe:
		isQuery = !p.bare

	case TokenBracketOpen:
		isQuery = !p.bare &&
			strings.Contains(tok.Literal, ".") &&
			p.isQueryBracket(1)
	}

	if !isQuery {
		p.next()

		return &Ident{Start: tok.Pos, Name: tok.Literal}, nil
	}

	return p.parseQuery()
}

// isQueryBracket reports whether the '[' at offset n opens a projection or an
// integer index.
func (p *parser) isQueryBracket(n int) bool {
	switch p.peek(n + 1).Kind {
	case TokenIdent, TokenFunc:
		return true

	case TokenInt:
		return p.peek(n+2).Kind == TokenBracketClose

	default:
		return false
	}
}

// parseQuery parses: IDENT QueryTail+.
func (p *parser) parseQuery() (Node, error) {
	tok := p.next()

	q := &QueryExpr{
		Entity: &EntityRef{
			Start:    tok.Pos,
			Segments: strings.Split(tok.Literal, "."),
		},
	}

	for {
		switch {
		case p.at(TokenBraceOpen):
			fm, err := p.parseFilterBraces()
			if err != nil {
				return nil, err
			}

			kind := StageChain
			if len(q.Stages) == 0 {
				kind = StageFilter
			}

			q.Stages = append(q.Stages, Stage{Kind: kind, Start: fm.Start, Filter: fm})

		case p.at(TokenPipe) && !p.bare:
			st, err := p.parseChainStage()
			if err != nil {
				return nil, err
			}

			q.Stages = append(q.Stages, st)

		case p.at(TokenBracketOpen) && !p.bare && p.isQueryBracket(0):
			st, err := p.parseBracketStage()
			if err != nil {
				return nil, err
			}

			q.Stages = append(q.Stages, st)

		default:
			return q, nil
		}
	}
}

// parseChainStage parses: '|' ('{' FilterPairs? '}' | FilterPairs | IDENT).
func (p *parser) parseChainStage() (Stage, error) {
	bar := p.next()

	switch {
	case p.at(TokenBraceOpen):
		fm, err := p.parseFilterBraces()
		if err != nil {
			return Stage{}, err
		}

		return Stage{Kind: StageChain, Start: bar.Pos, Filter: fm}, nil

	case p.isPairStart():
		fm, err := p.parseFilterBare()
		if err != nil {
			return Stage{}, err
		}

		return Stage{Kind: StageChain, Start: bar.Pos, Filter: fm}, nil

	case p.at(TokenIdent):
		ref := p.next()

		return Stage{
			Kind:  StageChain,
			Start: bar.Pos,
			Ref:   &Ident{Start: ref.Pos, Name: ref.Literal},
		}, nil

	default:
		return Stage{}, p.errorf("filter map or pipeline name after '|'")
	}
}

// parseBracketStage parses: '[' INT ']' | '[' IDENT (',' IDENT)* ']'.
func (p *parser) parseBracketStage() (Stage, error) {
	open := p.next()

	if p.at(TokenInt) {
		idx, err := p.parsePrimary()
		if err != nil {
			return Stage{}, err
		}

		if err := p.expect(TokenBracketClose, "']'"); err != nil {
			return Stage{}, err
		}

		return Stage{Kind: StageIndex, Start: open.Pos, Index: idx}, nil
	}

	st := Stage{Kind: StageProject, Start: open.Pos}

	for {
		if !p.at(TokenIdent) && !p.at(TokenFunc) {
			return Stage{}, p.errorf("field name")
		}

		st.Fields = append(st.Fields, p.next().Literal)

		if !p.at(TokenComma) {
			break
		}

		p.next()
	}

	if err := p.expect(TokenBracketClose, "']'"); err != nil {
		return Stage{}, err
	}

	return st, nil
}

// parseNested runs fn with the bare-stage restriction lifted, as inside any
// bracketing pair.
func (p *parser) parseNested(fn func() (Node, error)) (Node, error) {
	bare := p.bare
	p.bare = false

	defer func() { p.bare = bare }()

	return fn()
}

// Helper methods

func (p *parser) cur() Token {
	return p.peek(0)
}

func (p *parser) peek(n int) Token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}

	return p.toks[len(p.toks)-1] // EOF
}

func (p *parser) at(kind TokenKind) bool {
	return p.cur().Kind == kind
}

func (p *parser) next() Token {
	tok := p.cur()

	if p.pos < len(p.toks)-1 {
		p.pos++
	}

	return tok
}

func (p *parser) expect(kind TokenKind, what string) error {
	if p.at(kind) {
		p.next()

		return nil
	}

	return p.errorf(what)
}

// errorf returns a ParseError describing the expected construct and the
// token actually found.
func (p *parser) errorf(expected string) *Error {
	tok := p.cur()

	return ErrParse.WithPosition(tok.Pos).With(
		slog.String("expected", expected),
		slog.String("found", tok.String()),
	)
}
