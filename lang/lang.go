package lang

import (
	"context"
	"log/slog"
	"time"

	"github.com/ardnew/orml/log"
)

// Observer receives measurements of an evaluation. Implementations must be
// safe for concurrent use.
type Observer interface {
	// ObserveStore is called after each data access adapter call.
	ObserveStore(op string, elapsed time.Duration, err error)

	// ObserveEval is called after each complete invocation.
	ObserveEval(result Kind, elapsed time.Duration, err error)
}

// Option configures an [Evaluator] or a parse function.
type Option func(*config)

type config struct {
	logger     log.Logger
	observer   Observer
	aggregates map[string]Aggregate
	maxDepth   int
	cache      bool
}

// DefaultMaxDepth is the deepest nesting of groups, calls, filters and
// unary operators a statement may contain.
const DefaultMaxDepth = 256

func makeConfig(opts ...Option) config {
	cfg := config{
		aggregates: builtinAggregates(),
		maxDepth:   DefaultMaxDepth,
		cache:      true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// WithLogger sets the logger used to trace parsing and evaluation.
func WithLogger(logger log.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithObserver sets the observer notified of store calls and invocations.
func WithObserver(obs Observer) Option {
	return func(c *config) { c.observer = obs }
}

// WithAggregate registers fn under name, replacing any aggregate of the same
// name. Names must be spelled like function names (uppercase).
func WithAggregate(name string, fn Aggregate) Option {
	return func(c *config) {
		// Copy on write so the shared builtin table is never modified.
		next := make(map[string]Aggregate, len(c.aggregates)+1)
		for k, v := range c.aggregates {
			next[k] = v
		}

		next[name] = fn
		c.aggregates = next
	}
}

// WithCache selects whether statements are parsed through the process-wide
// parse cache. It is enabled by default.
func WithCache(enable bool) Option {
	return func(c *config) { c.cache = enable }
}

// WithMaxDepth sets the deepest nesting a statement may contain. Deeper
// input is rejected with [ErrParse]. Values below one select
// [DefaultMaxDepth].
func WithMaxDepth(depth int) Option {
	return func(c *config) {
		if depth < 1 {
			depth = DefaultMaxDepth
		}

		c.maxDepth = depth
	}
}

// Evaluator evaluates statements against a [Registry]. It is immutable after
// construction and safe for concurrent use; every invocation gets its own
// [Env].
type Evaluator struct {
	reg Registry
	cfg config
}

// New returns an Evaluator resolving entity paths through reg.
func New(reg Registry, opts ...Option) *Evaluator {
	return &Evaluator{reg: reg, cfg: makeConfig(opts...)}
}

// Aggregates returns the names of the registered aggregate functions.
func (e *Evaluator) Aggregates() []string {
	return aggregateNames(e.cfg.aggregates)
}

// Eval parses and evaluates a single statement.
func (e *Evaluator) Eval(ctx context.Context, src string) (Value, error) {
	b, err := e.parse(ctx, src)
	if err != nil {
		return Value{}, err
	}

	return e.Run(ctx, b)
}

// EvalBlock parses and evaluates lines as one block, one statement per line.
func (e *Evaluator) EvalBlock(ctx context.Context, lines []string) (Value, error) {
	b, err := e.parseBlock(ctx, lines)
	if err != nil {
		return Value{}, err
	}

	return e.Run(ctx, b)
}

// Run evaluates a parsed block in a fresh environment and returns the value
// of its last expression statement, or Unit if it has none.
func (e *Evaluator) Run(ctx context.Context, b *Block) (Value, error) {
	return e.run(ctx, NewEnv(), b)
}

func (e *Evaluator) run(ctx context.Context, env *Env, b *Block) (v Value, err error) {
	start := time.Now()

	defer func() {
		if e.cfg.observer != nil {
			e.cfg.observer.ObserveEval(v.Kind(), time.Since(start), err)
		}
	}()

	in := &interp{Evaluator: e, env: env}

	for i, stmt := range b.Stmts {
		if err := ctx.Err(); err != nil {
			return Value{}, err
		}

		e.cfg.logger.TraceContext(ctx, "eval statement",
			slog.Int("index", i),
			slog.String("source", FormatNode(stmt)))

		if a, ok := stmt.(*Assign); ok {
			val, err := in.eval(ctx, a.Value)
			if err != nil {
				return Value{}, err
			}

			env.Bind(a.Name, val)

			continue
		}

		val, err := in.eval(ctx, stmt)
		if err != nil {
			return Value{}, err
		}

		v = val
	}

	e.cfg.logger.TraceContext(ctx, "eval complete",
		slog.String("kind", v.Kind().String()))

	return v, nil
}

func (e *Evaluator) parse(ctx context.Context, src string) (*Block, error) {
	if e.cfg.cache {
		return parseCached(ctx, []string{src}, true, e.cfg)
	}

	return parseString(ctx, src, e.cfg)
}

func (e *Evaluator) parseBlock(ctx context.Context, lines []string) (*Block, error) {
	if e.cfg.cache {
		return parseCached(ctx, lines, false, e.cfg)
	}

	return parseBlock(ctx, lines, e.cfg)
}

// Evaluate evaluates input against reg. A single string is one statement;
// several strings are the lines of one block.
func Evaluate(
	ctx context.Context,
	reg Registry,
	input ...string,
) (Value, error) {
	e := New(reg)

	if len(input) == 1 {
		return e.Eval(ctx, input[0])
	}

	return e.EvalBlock(ctx, input)
}

// Session evaluates statements supplied one at a time against one shared
// environment, as in an interactive shell. A failed statement leaves the
// environment as it was before that statement.
//
// A Session is not safe for concurrent use.
type Session struct {
	ev  *Evaluator
	env *Env
}

// NewSession returns a Session with an empty environment.
func (e *Evaluator) NewSession() *Session {
	return &Session{ev: e, env: NewEnv()}
}

// Eval parses and evaluates one statement. Blank input yields Unit.
func (s *Session) Eval(ctx context.Context, src string) (Value, error) {
	b, err := s.ev.parseBlock(ctx, []string{src})
	if err != nil {
		return Value{}, err
	}

	return s.ev.run(ctx, s.env, b)
}

// Names returns the names bound in the session.
func (s *Session) Names() []string { return s.env.Names() }

// Lookup returns the value bound to name.
func (s *Session) Lookup(name string) (Value, bool) { return s.env.Lookup(name) }
