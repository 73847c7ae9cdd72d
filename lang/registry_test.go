package lang

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

// testRegistry is a minimal in-memory Registry. Records are kept in insertion
// order and support only the lookups exercised by the tests in this package.
type testRegistry map[string]*testEntity

type testEntity struct {
	path string
	rows []map[string]any
}

type testRecordSet struct {
	entity *testEntity
	rows   []map[string]any
}

type testRecord struct {
	entity *testEntity
	row    map[string]any
}

func newTestRegistry() testRegistry {
	return testRegistry{
		"tests.testmodel": &testEntity{
			path: "tests.testmodel",
			rows: []map[string]any{
				{"id": int64(1), "t": "x", "val": int64(5), "note": "first"},
				{"id": int64(2), "t": "y", "val": int64(10), "note": nil},
				{"id": int64(3), "t": "x", "val": int64(15), "note": "third"},
				{"id": int64(4), "t": "z", "val": int64(20), "note": "fourth"},
			},
		},
		"tests.testmodelchild": &testEntity{
			path: "tests.testmodelchild",
			rows: []map[string]any{
				{"id": int64(1), "parent": int64(1), "name": "a"},
				{"id": int64(2), "parent": int64(3), "name": "b"},
				{"id": int64(3), "parent": int64(2), "name": "c"},
			},
		},
	}
}

func (r testRegistry) Resolve(_ context.Context, path string) (EntityType, error) {
	if e, ok := r[path]; ok {
		return e, nil
	}

	return nil, ErrNotFound.Wrap(fmt.Errorf("entity %q", path))
}

func (e *testEntity) Path() string { return e.path }

func (e *testEntity) Filter(ctx context.Context, preds []Predicate) (RecordSet, error) {
	return (&testRecordSet{entity: e, rows: e.rows}).Filter(ctx, preds)
}

func (s *testRecordSet) Entity() EntityType { return s.entity }

func (s *testRecordSet) Filter(_ context.Context, preds []Predicate) (RecordSet, error) {
	var out []map[string]any

	for _, row := range s.rows {
		ok, err := matchAll(row, preds)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, row)
		}
	}

	return &testRecordSet{entity: s.entity, rows: out}, nil
}

func (s *testRecordSet) Values(_ context.Context, field string) ([]any, error) {
	out := make([]any, len(s.rows))

	for i, row := range s.rows {
		v, ok := row[field]
		if !ok {
			return nil, fmt.Errorf("unknown field %q", field)
		}

		out[i] = v
	}

	return out, nil
}

func (s *testRecordSet) ValuesMap(_ context.Context, fields []string) ([]map[string]any, error) {
	out := make([]map[string]any, len(s.rows))

	for i, row := range s.rows {
		m := make(map[string]any, len(fields))

		for _, f := range fields {
			v, ok := row[f]
			if !ok {
				return nil, fmt.Errorf("unknown field %q", f)
			}

			m[f] = v
		}

		out[i] = m
	}

	return out, nil
}

func (s *testRecordSet) Len(context.Context) (int, error) { return len(s.rows), nil }

func (s *testRecordSet) Index(_ context.Context, i int) (Record, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, fmt.Errorf("index %d out of range", i)
	}

	return &testRecord{entity: s.entity, row: s.rows[i]}, nil
}

func (r *testRecord) Entity() EntityType { return r.entity }
func (r *testRecord) ID() any            { return r.row["id"] }

func (r *testRecord) Get(_ context.Context, field string) (any, error) {
	v, ok := r.row[field]
	if !ok {
		return nil, fmt.Errorf("unknown field %q", field)
	}

	return v, nil
}

func (r *testRecord) Fields() []string {
	keys := make([]string, 0, len(r.row))
	for k := range r.row {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

func matchAll(row map[string]any, preds []Predicate) (bool, error) {
	for _, p := range preds {
		v, ok := row[p.Field]
		if !ok {
			return false, fmt.Errorf("unknown field %q", p.Field)
		}

		match, err := matchOne(v, p)
		if err != nil || !match {
			return false, err
		}
	}

	return true, nil
}

func matchOne(v any, p Predicate) (bool, error) {
	got := FromNative(v)

	switch p.Lookup {
	case LookupExact:
		return equal(context.Background(), got, predValue(p.Value))

	case LookupIn:
		var candidates []Value

		switch p.Value.Kind() {
		case KindList:
			candidates = p.Value.list
		case KindRecordSet:
			ids, err := p.Value.rs.Values(context.Background(), "id")
			if err != nil {
				return false, err
			}

			for _, id := range ids {
				candidates = append(candidates, FromNative(id))
			}
		}

		for _, c := range candidates {
			if eq, _ := equal(context.Background(), got, predValue(c)); eq {
				return true, nil
			}
		}

		return false, nil

	case LookupGt, LookupLt:
		x, ok1 := got.AsNumber()
		y, ok2 := p.Value.AsNumber()

		if !ok1 || !ok2 {
			return false, nil
		}

		if p.Lookup == LookupGt {
			return x > y, nil
		}

		return x < y, nil

	case LookupContains:
		s, ok1 := got.AsString()
		sub, ok2 := p.Value.AsString()

		return ok1 && ok2 && strings.Contains(s, sub), nil

	case LookupIsNull:
		want, _ := p.Value.AsBool()

		return got.IsUnit() == want, nil

	default:
		return false, fmt.Errorf("unsupported lookup %q", p.Lookup)
	}
}

// predValue compares records by their ID.
func predValue(v Value) Value {
	if r, ok := v.AsRecord(); ok {
		return FromNative(r.ID())
	}

	return v
}

// countingObserver counts the calls it observes.
type countingObserver struct {
	store atomic.Int64
	evals atomic.Int64
	fails atomic.Int64
}

func (o *countingObserver) ObserveStore(string, time.Duration, error) {
	o.store.Add(1)
}

func (o *countingObserver) ObserveEval(_ Kind, _ time.Duration, err error) {
	o.evals.Add(1)

	if err != nil {
		o.fails.Add(1)
	}
}
