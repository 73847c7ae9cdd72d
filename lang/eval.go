package lang

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// interp evaluates nodes of one invocation against its environment.
type interp struct {
	*Evaluator

	env *Env
}

// eval evaluates an expression node to a Value.
func (in *interp) eval(ctx context.Context, n Node) (Value, error) {
	switch n := n.(type) {
	case *NumberLit:
		if n.IsFloat {
			return Float(n.Float), nil
		}

		return Int(n.Int), nil

	case *StringLit:
		return String(n.Value), nil

	case *BoolLit:
		return Bool(n.Value), nil

	case *Grouping:
		return in.eval(ctx, n.Inner)

	case *ListLit:
		vs := make([]Value, len(n.Elems))

		for i, e := range n.Elems {
			v, err := in.eval(ctx, e)
			if err != nil {
				return Value{}, err
			}

			vs[i] = v
		}

		return List(vs...), nil

	case *MapLit:
		m := NewMap(len(n.Pairs))

		for _, p := range n.Pairs {
			v, err := in.eval(ctx, p.Value)
			if err != nil {
				return Value{}, err
			}

			m.Set(p.Key, v)
		}

		return MapValue(m), nil

	case *UnaryExpr:
		return in.evalUnary(ctx, n)

	case *BinaryExpr:
		return in.evalBinary(ctx, n)

	case *CallExpr:
		return in.evalCall(ctx, n)

	case *Ident:
		return in.evalIdent(ctx, n)

	case *IndexExpr:
		return in.evalIndex(ctx, n)

	case *QueryExpr:
		return in.evalQuery(ctx, n)

	case *PipelineExpr:
		return in.evalPipeline(ctx, n)

	case *Assign:
		return Value{}, ErrParse.WithPosition(n.Start).
			With(slog.String("issue", "assignment is not an expression"))

	default:
		return Value{}, ErrType.WithPosition(n.Pos()).
			With(slog.String("issue", "unsupported node"))
	}
}

// evalIdent resolves a name in the environment, then in the registry.
func (in *interp) evalIdent(ctx context.Context, n *Ident) (Value, error) {
	if v, ok := in.env.Lookup(n.Name); ok {
		return v, nil
	}

	et, err := in.resolve(ctx, n.Name)
	if err == nil {
		return Entity(et), nil
	}

	if isNotFound(err) {
		return Value{}, ErrName.WithPosition(n.Start).
			With(slog.String("name", n.Name))
	}

	return Value{}, ErrStore.Wrap(err).WithPosition(n.Start).
		With(slog.String("name", n.Name))
}

func (in *interp) evalUnary(ctx context.Context, n *UnaryExpr) (Value, error) {
	v, err := in.eval(ctx, n.Operand)
	if err != nil {
		return Value{}, err
	}

	switch v.Kind() {
	case KindInt:
		if v.i == math.MinInt64 {
			return Value{}, ErrArithmetic.WithPosition(n.Start).
				With(slog.String("issue", "overflow"))
		}

		return Int(-v.i), nil
	case KindFloat:
		return Float(-v.f), nil
	default:
		return Value{}, ErrType.WithPosition(n.Start).With(
			slog.String("operator", n.Op.String()),
			slog.String("operand", v.Kind().String()),
		)
	}
}

func (in *interp) evalBinary(ctx context.Context, n *BinaryExpr) (Value, error) {
	l, err := in.eval(ctx, n.Left)
	if err != nil {
		return Value{}, err
	}

	r, err := in.eval(ctx, n.Right)
	if err != nil {
		return Value{}, err
	}

	if n.Op == TokenEqual {
		eq, err := Equal(ctx, l, r)
		if err != nil {
			return Value{}, positioned(err, n.OpPos)
		}

		return Bool(eq), nil
	}

	return arith(n.Op, l, r, n.OpPos)
}

// arith applies an arithmetic operator. Int op Int stays Int except for
// division, which always yields a Float; any Float operand yields a Float.
func arith(op TokenKind, l, r Value, pos Position) (Value, error) {
	if !l.IsNumber() || !r.IsNumber() {
		return Value{}, ErrType.WithPosition(pos).With(
			slog.String("operator", op.String()),
			slog.String("left", l.Kind().String()),
			slog.String("right", r.Kind().String()),
		)
	}

	if op == TokenDiv {
		x, _ := l.AsNumber()
		y, _ := r.AsNumber()

		if y == 0 {
			return Value{}, ErrArithmetic.WithPosition(pos).
				With(slog.String("issue", "division by zero"))
		}

		return Float(x / y), nil
	}

	if l.kind == KindInt && r.kind == KindInt {
		i, ok := checkedInt(op, l.i, r.i)
		if !ok {
			return Value{}, ErrArithmetic.WithPosition(pos).With(
				slog.String("issue", "overflow"),
				slog.String("operator", op.String()),
			)
		}

		return Int(i), nil
	}

	x, _ := l.AsNumber()
	y, _ := r.AsNumber()

	var f float64

	switch op {
	case TokenPlus:
		f = x + y
	case TokenMinus:
		f = x - y
	case TokenMult:
		f = x * y
	default:
		return Value{}, ErrType.WithPosition(pos).
			With(slog.String("operator", op.String()))
	}

	if math.IsInf(f, 0) {
		return Value{}, ErrArithmetic.WithPosition(pos).
			With(slog.String("issue", "overflow"))
	}

	return Float(f), nil
}

// checkedInt applies an integer operator, reporting false when the result
// does not fit in an int64.
func checkedInt(op TokenKind, a, b int64) (int64, bool) {
	switch op {
	case TokenPlus:
		c := a + b

		return c, (c > a) == (b > 0)

	case TokenMinus:
		c := a - b

		return c, (c < a) == (b > 0)

	case TokenMult:
		if a == 0 || b == 0 {
			return 0, true
		}

		if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
			return 0, false
		}

		c := a * b

		return c, c/b == a

	default:
		return 0, false
	}
}

func (in *interp) evalCall(ctx context.Context, n *CallExpr) (Value, error) {
	fn, ok := in.cfg.aggregates[n.Name]
	if !ok {
		return Value{}, ErrName.WithPosition(n.Start).With(
			slog.String("name", n.Name),
			slog.String("issue", "unknown function"),
		)
	}

	args := make([]Value, len(n.Args))

	for i, a := range n.Args {
		v, err := in.eval(ctx, a)
		if err != nil {
			return Value{}, err
		}

		args[i] = v
	}

	// A single list argument supplies the values.
	if len(args) == 1 && args[0].Kind() == KindList {
		args = args[0].list
	}

	v, err := fn(ctx, args)
	if err != nil {
		return Value{}, positioned(err, n.Start).
			With(slog.String("function", n.Name))
	}

	return v, nil
}

func (in *interp) evalIndex(ctx context.Context, n *IndexExpr) (Value, error) {
	target, err := in.eval(ctx, n.Target)
	if err != nil {
		return Value{}, err
	}

	idx, err := in.eval(ctx, n.Index)
	if err != nil {
		return Value{}, err
	}

	v, err := in.index(ctx, target, idx)
	if err != nil {
		return Value{}, positioned(err, n.Start)
	}

	return v, nil
}

// index selects an element of a list or record set by position, of a map by
// key, or of a record by field name.
func (in *interp) index(ctx context.Context, target, idx Value) (Value, error) {
	switch target.Kind() {
	case KindList:
		i, ok := idx.AsInt()
		if !ok {
			return Value{}, indexTypeError(target, idx)
		}

		if i < 0 || i >= int64(len(target.list)) {
			return Value{}, ErrIndex.With(
				slog.Int64("index", i),
				slog.Int("length", len(target.list)),
			)
		}

		return target.list[i], nil

	case KindRecordSet:
		i, ok := idx.AsInt()
		if !ok {
			return Value{}, indexTypeError(target, idx)
		}

		return in.recordAt(ctx, target.rs, i)

	case KindMap:
		k, ok := idx.AsString()
		if !ok {
			return Value{}, indexTypeError(target, idx)
		}

		v, ok := target.m.Get(k)
		if !ok {
			return Value{}, ErrIndex.With(slog.String("key", k))
		}

		return v, nil

	case KindRecord:
		f, ok := idx.AsString()
		if !ok {
			return Value{}, indexTypeError(target, idx)
		}

		var x any

		err := in.observe("get", func() (err error) {
			x, err = target.rec.Get(ctx, f)

			return err
		})
		if err != nil {
			return Value{}, ErrStore.Wrap(err).With(slog.String("field", f))
		}

		return FromNative(x), nil

	default:
		return Value{}, indexTypeError(target, idx)
	}
}

func (in *interp) recordAt(ctx context.Context, rs RecordSet, i int64) (Value, error) {
	var n int

	err := in.observe("len", func() (err error) {
		n, err = rs.Len(ctx)

		return err
	})
	if err != nil {
		return Value{}, ErrStore.Wrap(err)
	}

	if i < 0 || i >= int64(n) {
		return Value{}, ErrIndex.With(
			slog.Int64("index", i),
			slog.Int("length", n),
		)
	}

	var r Record

	err = in.observe("index", func() (err error) {
		r, err = rs.Index(ctx, int(i))

		return err
	})
	if err != nil {
		return Value{}, ErrStore.Wrap(err)
	}

	return RecordValue(r), nil
}

func indexTypeError(target, idx Value) *Error {
	return ErrType.With(
		slog.String("operator", "[]"),
		slog.String("target", target.Kind().String()),
		slog.String("index", idx.Kind().String()),
	)
}

// observe runs a data access call, timing it for the observer.
func (in *interp) observe(op string, call func() error) error {
	start := time.Now()
	err := call()

	if in.cfg.observer != nil {
		in.cfg.observer.ObserveStore(op, time.Since(start), err)
	}

	return err
}

// positioned attaches pos to err unless it already carries a position.
func positioned(err error, pos Position) *Error {
	ee := WrapError(err)
	if ee.Offset() >= 0 {
		return ee
	}

	return ee.WithPosition(pos)
}
