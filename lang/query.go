package lang

import (
	"context"
	"errors"
	"log/slog"
)

// query is the state of a query while its stages are applied.
type query struct {
	et  EntityType
	rs  RecordSet // nil until the first filter
	out *Value    // set once a projection or index leaves record sets
}

// evalQuery applies the stages of a query in source order.
func (in *interp) evalQuery(ctx context.Context, n *QueryExpr) (Value, error) {
	q, err := in.queryBase(ctx, n.Entity)
	if err != nil {
		return Value{}, err
	}

	for _, st := range n.Stages {
		if err := in.applyStage(ctx, q, st); err != nil {
			return Value{}, positioned(err, st.Start)
		}
	}

	if q.out != nil {
		return *q.out, nil
	}

	if err := in.ensureRecords(ctx, q); err != nil {
		return Value{}, positioned(err, n.Pos())
	}

	return Records(q.rs), nil
}

// queryBase resolves the base of a query: a bound entity or record set, or
// else a registered entity path.
func (in *interp) queryBase(ctx context.Context, ref *EntityRef) (*query, error) {
	path := ref.Path()

	if v, ok := in.env.Lookup(path); ok {
		switch v.Kind() {
		case KindEntity:
			return &query{et: v.entity}, nil
		case KindRecordSet:
			return &query{et: v.rs.Entity(), rs: v.rs}, nil
		default:
			return nil, ErrType.WithPosition(ref.Start).With(
				slog.String("name", path),
				slog.String("issue", "query base is not an entity"),
				slog.String("kind", v.Kind().String()),
			)
		}
	}

	et, err := in.resolve(ctx, path)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEntityResolution.Wrap(err).WithPosition(ref.Start).
				With(slog.String("path", path))
		}

		return nil, ErrStore.Wrap(err).WithPosition(ref.Start).
			With(slog.String("path", path))
	}

	return &query{et: et}, nil
}

func (in *interp) applyStage(ctx context.Context, q *query, st Stage) error {
	switch st.Kind {
	case StageFilter, StageChain:
		if st.Ref != nil {
			return in.applyRef(ctx, q, st.Ref)
		}

		preds, err := in.predicates(ctx, st.Filter.Pairs)
		if err != nil {
			return err
		}

		return in.filter(ctx, q, preds)

	case StageProject:
		return in.project(ctx, q, st.Fields)

	case StageIndex:
		idx, err := in.eval(ctx, st.Index)
		if err != nil {
			return err
		}

		i, ok := idx.AsInt()
		if !ok {
			return ErrType.With(
				slog.String("operator", "[]"),
				slog.String("index", idx.Kind().String()),
			)
		}

		if q.out != nil {
			v, err := in.index(ctx, *q.out, idx)
			if err != nil {
				return err
			}

			q.out = &v

			return nil
		}

		if err := in.ensureRecords(ctx, q); err != nil {
			return err
		}

		v, err := in.recordAt(ctx, q.rs, i)
		if err != nil {
			return err
		}

		q.out = &v

		return nil
	}

	return nil
}

// applyRef applies a chain stage that names a bound pipeline or map.
func (in *interp) applyRef(ctx context.Context, q *query, ref *Ident) error {
	v, ok := in.env.Lookup(ref.Name)
	if !ok {
		return ErrName.WithPosition(ref.Start).With(slog.String("name", ref.Name))
	}

	switch v.Kind() {
	case KindPipeline:
		for _, group := range v.pipe {
			if err := in.filter(ctx, q, group); err != nil {
				return err
			}
		}

		return nil

	case KindMap:
		preds, err := mapPredicates(v.m)
		if err != nil {
			return err
		}

		return in.filter(ctx, q, preds)

	default:
		return ErrType.WithPosition(ref.Start).With(
			slog.String("name", ref.Name),
			slog.String("issue", "chain stage is not a pipeline"),
			slog.String("kind", v.Kind().String()),
		)
	}
}

// filter applies one AND-combined predicate group. The first group filters
// the entity; later groups refine the current record set.
func (in *interp) filter(ctx context.Context, q *query, preds []Predicate) error {
	if q.out != nil {
		return ErrType.With(slog.String("issue", "filter after projection"))
	}

	in.cfg.logger.TraceContext(ctx, "filter",
		slog.String("entity", q.et.Path()),
		slog.Int("predicate_count", len(preds)),
		slog.Bool("refine", q.rs != nil))

	var (
		rs  RecordSet
		err error
	)

	if q.rs == nil {
		err = in.observe("filter", func() (err error) {
			rs, err = q.et.Filter(ctx, preds)

			return err
		})
	} else {
		err = in.observe("filter", func() (err error) {
			rs, err = q.rs.Filter(ctx, preds)

			return err
		})
	}

	if err != nil {
		return ErrStore.Wrap(err).With(slog.String("entity", q.et.Path()))
	}

	q.rs = rs

	return nil
}

// ensureRecords filters the entity with no predicates if no filter has been
// applied yet.
func (in *interp) ensureRecords(ctx context.Context, q *query) error {
	if q.rs != nil {
		return nil
	}

	return in.filter(ctx, q, nil)
}

// project replaces the record set with its field values. A single field
// yields a List of values; several fields yield a List of Maps.
func (in *interp) project(ctx context.Context, q *query, fields []string) error {
	if q.out != nil {
		return in.projectValue(ctx, q, fields)
	}

	if err := in.ensureRecords(ctx, q); err != nil {
		return err
	}

	if len(fields) == 1 {
		var xs []any

		err := in.observe("values", func() (err error) {
			xs, err = q.rs.Values(ctx, fields[0])

			return err
		})
		if err != nil {
			return ErrStore.Wrap(err).With(slog.String("field", fields[0]))
		}

		vs := make([]Value, len(xs))
		for i, x := range xs {
			vs[i] = FromNative(x)
		}

		out := List(vs...)
		q.out = &out

		return nil
	}

	var rows []map[string]any

	err := in.observe("values_map", func() (err error) {
		rows, err = q.rs.ValuesMap(ctx, fields)

		return err
	})
	if err != nil {
		return ErrStore.Wrap(err)
	}

	vs := make([]Value, len(rows))

	for i, row := range rows {
		m := NewMap(len(fields))
		for _, f := range fields {
			m.Set(f, FromNative(row[f]))
		}

		vs[i] = MapValue(m)
	}

	out := List(vs...)
	q.out = &out

	return nil
}

// projectValue projects a single record selected by an earlier index.
func (in *interp) projectValue(ctx context.Context, q *query, fields []string) error {
	if q.out.Kind() != KindRecord {
		return ErrType.With(
			slog.String("issue", "projection of non-record"),
			slog.String("kind", q.out.Kind().String()),
		)
	}

	m := NewMap(len(fields))

	for _, f := range fields {
		v, err := in.index(ctx, *q.out, String(f))
		if err != nil {
			return err
		}

		m.Set(f, v)
	}

	out := MapValue(m)
	if len(fields) == 1 {
		out, _ = m.Get(fields[0])
	}

	q.out = &out

	return nil
}

// predicates evaluates the pairs of a filter group.
func (in *interp) predicates(ctx context.Context, pairs []Pair) ([]Predicate, error) {
	preds := make([]Predicate, 0, len(pairs))

	for _, p := range pairs {
		v, err := in.eval(ctx, p.Value)
		if err != nil {
			return nil, err
		}

		pred, err := makePredicate(p.Key, v)
		if err != nil {
			return nil, positioned(err, p.KeyPos)
		}

		preds = append(preds, pred)
	}

	return preds, nil
}

// mapPredicates converts a bound map into a predicate group.
func mapPredicates(m *Map) ([]Predicate, error) {
	preds := make([]Predicate, 0, m.Len())

	for _, k := range m.keys {
		pred, err := makePredicate(k, m.vals[k])
		if err != nil {
			return nil, err
		}

		preds = append(preds, pred)
	}

	return preds, nil
}

// makePredicate validates v against the lookup named by key.
func makePredicate(key string, v Value) (Predicate, error) {
	field, lookup := SplitKey(key)

	if v.Kind() == KindPipeline {
		return Predicate{}, ErrType.With(
			slog.String("key", key),
			slog.String("issue", "pipeline used as filter value"),
		)
	}

	switch lookup {
	case LookupIn:
		if v.Kind() != KindList && v.Kind() != KindRecordSet {
			return Predicate{}, ErrType.With(
				slog.String("key", key),
				slog.String("issue", "lookup requires a list or record set"),
				slog.String("kind", v.Kind().String()),
			)
		}

	case LookupRange:
		if l, ok := v.AsList(); !ok || len(l) != 2 {
			return Predicate{}, ErrArgument.With(
				slog.String("key", key),
				slog.String("issue", "lookup requires a list of two bounds"),
			)
		}

	case LookupIsNull:
		if v.Kind() != KindBool {
			return Predicate{}, ErrArgument.With(
				slog.String("key", key),
				slog.String("issue", "lookup requires a boolean"),
			)
		}
	}

	return Predicate{Field: field, Lookup: lookup, Value: v}, nil
}

// evalPipeline evaluates a filter sequence that has no entity yet.
func (in *interp) evalPipeline(ctx context.Context, n *PipelineExpr) (Value, error) {
	groups := make([][]Predicate, len(n.Stages))

	for i, fm := range n.Stages {
		preds, err := in.predicates(ctx, fm.Pairs)
		if err != nil {
			return Value{}, err
		}

		groups[i] = preds
	}

	return pipeline(groups), nil
}

func (in *interp) resolve(ctx context.Context, path string) (EntityType, error) {
	if in.reg == nil {
		return nil, ErrNotFound.With(slog.String("path", path))
	}

	var et EntityType

	err := in.observe("resolve", func() (err error) {
		et, err = in.reg.Resolve(ctx, path)

		return err
	})

	return et, err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
