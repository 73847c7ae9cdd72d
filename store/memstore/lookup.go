package memstore

import (
	"context"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/pkg"
)

// lookupSource defines each lookup as a boolean expression over the field
// value v and the predicate argument arg.
var lookupSource = map[lang.Lookup]string{
	lang.LookupExact:       `v == arg`,
	lang.LookupIExact:      `v != nil && lower(string(v)) == lower(string(arg))`,
	lang.LookupContains:    `v != nil && string(v) contains string(arg)`,
	lang.LookupIContains:   `v != nil && lower(string(v)) contains lower(string(arg))`,
	lang.LookupIn:          `v in arg`,
	lang.LookupGt:          `v != nil && v > arg`,
	lang.LookupGte:         `v != nil && v >= arg`,
	lang.LookupLt:          `v != nil && v < arg`,
	lang.LookupLte:         `v != nil && v <= arg`,
	lang.LookupStartsWith:  `v != nil && string(v) startsWith string(arg)`,
	lang.LookupIStartsWith: `v != nil && lower(string(v)) startsWith lower(string(arg))`,
	lang.LookupEndsWith:    `v != nil && string(v) endsWith string(arg)`,
	lang.LookupIEndsWith:   `v != nil && lower(string(v)) endsWith lower(string(arg))`,
	lang.LookupRange:       `v != nil && v >= arg[0] && v <= arg[1]`,
	lang.LookupIsNull:      `(v == nil) == arg`,
	lang.LookupRegex:       `v != nil && string(v) matches string(arg)`,
}

// lookupEnv declares the variables visible to a lookup program. Both are
// interface typed so the checker accepts any operand the rows may hold.
type lookupEnv struct {
	V   any `expr:"v"`
	Arg any `expr:"arg"`
}

// programs compiles each lookup once, on first use. A lookup that fails to
// compile reports its own error without affecting the others.
var programs = func() map[lang.Lookup]func() (*vm.Program, error) {
	out := make(map[lang.Lookup]func() (*vm.Program, error), len(lookupSource))

	for lk, src := range lookupSource {
		out[lk] = sync.OnceValues(func() (*vm.Program, error) {
			p, err := expr.Compile(src, expr.Env(lookupEnv{}), expr.AsBool())
			if err != nil {
				return nil, pkg.ErrLookup.Wrap(err).Wrapf("compile lookup %q", lk)
			}

			return p, nil
		})
	}

	return out
}()

// matcher tests one field value against a compiled lookup.
type matcher struct {
	pred lang.Predicate
	prog *vm.Program
	arg  any
}

func newMatcher(ctx context.Context, p lang.Predicate) (*matcher, error) {
	compile, ok := programs[p.Lookup]
	if !ok {
		return nil, pkg.ErrLookup.Wrapf("unsupported lookup %q", p.Lookup)
	}

	prog, err := compile()
	if err != nil {
		return nil, err
	}

	arg, err := argument(ctx, p.Value)
	if err != nil {
		return nil, err
	}

	switch p.Lookup {
	case lang.LookupIn:
		if _, ok := arg.([]any); !ok {
			return nil, pkg.ErrLookup.Wrapf("%s: in requires a list", p.Field)
		}
	case lang.LookupRange:
		if xs, ok := arg.([]any); !ok || len(xs) != 2 {
			return nil, pkg.ErrLookup.Wrapf("%s: range requires two bounds", p.Field)
		}
	}

	return &matcher{pred: p, prog: prog, arg: arg}, nil
}

func (m *matcher) match(v any) (bool, error) {
	out, err := expr.Run(m.prog, lookupEnv{V: v, Arg: m.arg})
	if err != nil {
		return false, pkg.ErrLookup.Wrap(err).
			Wrapf("%s__%s", m.pred.Field, m.pred.Lookup)
	}

	ok, _ := out.(bool)

	return ok, nil
}

// argument converts a predicate value into the form stored in rows. Records
// compare by primary key, so a record becomes its ID and a record set becomes
// the list of its IDs.
func argument(ctx context.Context, v lang.Value) (any, error) {
	switch v.Kind() {
	case lang.KindRecord:
		r, _ := v.AsRecord()

		return normalize(r.ID()), nil

	case lang.KindRecordSet:
		rs, _ := v.AsRecordSet()

		n, err := rs.Len(ctx)
		if err != nil {
			return nil, err
		}

		out := make([]any, n)

		for i := range n {
			r, err := rs.Index(ctx, i)
			if err != nil {
				return nil, err
			}

			out[i] = normalize(r.ID())
		}

		return out, nil

	case lang.KindList:
		l, _ := v.AsList()
		out := make([]any, len(l))

		for i, e := range l {
			x, err := argument(ctx, e)
			if err != nil {
				return nil, err
			}

			out[i] = x
		}

		return out, nil

	default:
		return normalize(v.Native()), nil
	}
}
