package lang

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/goccy/go-yaml"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Kind identifies the dynamic type of a [Value].
type Kind uint8

const (
	KindUnit Kind = iota
	KindInt
	KindFloat
	KindBool
	KindString
	KindList
	KindMap
	KindEntity
	KindRecordSet
	KindRecord
	KindPipeline
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "Unit"
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindList:
		return "List"
	case KindMap:
		return "Map"
	case KindEntity:
		return "Entity"
	case KindRecordSet:
		return "RecordSet"
	case KindRecord:
		return "Record"
	case KindPipeline:
		return "Pipeline"
	default:
		return "Unknown"
	}
}

// Value is the result of evaluating an expression. The zero Value is Unit.
type Value struct {
	kind Kind

	i int64
	f float64
	b bool
	s string

	list []Value
	m    *Map

	entity EntityType
	rs     RecordSet
	rec    Record
	pipe   [][]Predicate
}

// Map is an insertion-ordered string-keyed map of values.
type Map struct {
	keys []string
	vals map[string]Value
}

// NewMap returns an empty map with room for n entries.
func NewMap(n int) *Map {
	return &Map{
		keys: make([]string, 0, n),
		vals: make(map[string]Value, n),
	}
}

// Set stores val under key. A new key is appended to the key order; an
// existing key keeps its position.
func (m *Map) Set(key string, val Value) {
	if _, ok := m.vals[key]; !ok {
		m.keys = append(m.keys, key)
	}

	m.vals[key] = val
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.vals[key]

	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string { return slices.Clone(m.keys) }

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Constructors

func Unit() Value                { return Value{} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func String(s string) Value      { return Value{kind: KindString, s: s} }
func List(vs ...Value) Value     { return Value{kind: KindList, list: vs} }
func MapValue(m *Map) Value      { return Value{kind: KindMap, m: m} }
func Entity(e EntityType) Value  { return Value{kind: KindEntity, entity: e} }
func Records(rs RecordSet) Value { return Value{kind: KindRecordSet, rs: rs} }
func RecordValue(r Record) Value { return Value{kind: KindRecord, rec: r} }

// pipeline returns a deferred sequence of filter groups.
func pipeline(groups [][]Predicate) Value {
	return Value{kind: KindPipeline, pipe: groups}
}

// Accessors

// Kind returns the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsUnit reports whether v is the absent value.
func (v Value) IsUnit() bool { return v.kind == KindUnit }

func (v Value) AsInt() (int64, bool)         { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)     { return v.f, v.kind == KindFloat }
func (v Value) AsBool() (bool, bool)         { return v.b, v.kind == KindBool }
func (v Value) AsString() (string, bool)     { return v.s, v.kind == KindString }
func (v Value) AsList() ([]Value, bool)      { return v.list, v.kind == KindList }
func (v Value) AsMap() (*Map, bool)          { return v.m, v.kind == KindMap }
func (v Value) AsEntity() (EntityType, bool) { return v.entity, v.kind == KindEntity }
func (v Value) AsRecordSet() (RecordSet, bool) {
	return v.rs, v.kind == KindRecordSet
}
func (v Value) AsRecord() (Record, bool) { return v.rec, v.kind == KindRecord }

// AsNumber returns v as a float64 if it is an Int or a Float.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// IsNumber reports whether v is an Int or a Float.
func (v Value) IsNumber() bool {
	return v.kind == KindInt || v.kind == KindFloat
}

// String returns the canonical text of v.
func (v Value) String() string { return Format(v) }

// LogValue implements slog.LogValuer.
func (v Value) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("kind", v.kind.String()),
		slog.String("value", Format(v)),
	)
}

// FromNative converts a Go value returned by a store into a Value.
func FromNative(x any) Value {
	switch x := x.(type) {
	case nil:
		return Unit()
	case Value:
		return x
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return Float(float64(x))
	case float64:
		return Float(x)
	case string:
		return String(x)
	case []byte:
		return String(string(x))
	case time.Time:
		return String(x.Format(time.RFC3339Nano))
	case []any:
		vs := make([]Value, len(x))
		for i, e := range x {
			vs[i] = FromNative(e)
		}

		return List(vs...)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}

		slices.Sort(keys)

		m := NewMap(len(keys))
		for _, k := range keys {
			m.Set(k, FromNative(x[k]))
		}

		return MapValue(m)
	case yaml.MapSlice:
		m := NewMap(len(x))
		for _, item := range x {
			m.Set(fmt.Sprint(item.Key), FromNative(item.Value))
		}

		return MapValue(m)
	case Record:
		return RecordValue(x)
	case RecordSet:
		return Records(x)
	case EntityType:
		return Entity(x)
	case fmt.Stringer:
		return String(x.String())
	default:
		return String(fmt.Sprint(x))
	}
}

func fromUint(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}

	return Int(int64(u))
}

// Native converts v into a plain Go value. Lists become []any and maps become
// map[string]any. Store handles (entities, record sets, records) are returned
// unchanged.
func (v Value) Native() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindBool:
		return v.b
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.Native()
		}

		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		for _, k := range v.m.keys {
			out[k] = v.m.vals[k].Native()
		}

		return out
	case KindEntity:
		return v.entity
	case KindRecordSet:
		return v.rs
	case KindRecord:
		return v.rec
	default:
		return nil
	}
}

// Equal reports whether a and b are equal. Int and Float compare
// numerically. Records are equal when they belong to the same entity and have
// equal IDs; record sets when they hold the same records in the same order.
// Comparing values of unrelated kinds is a TypeError. Unit equals only Unit.
func Equal(ctx context.Context, a, b Value) (bool, error) {
	if a.kind == KindUnit || b.kind == KindUnit {
		return a.kind == b.kind, nil
	}

	if !comparableKinds(a.kind, b.kind) {
		return false, ErrType.With(
			slog.String("operator", "=="),
			slog.String("left", a.kind.String()),
			slog.String("right", b.kind.String()),
		)
	}

	return equal(ctx, a, b)
}

func comparableKinds(a, b Kind) bool {
	if a == b {
		return a != KindPipeline
	}

	return (a == KindInt || a == KindFloat) && (b == KindInt || b == KindFloat)
}

// equal compares values of comparable kinds. Nested values of unrelated kinds
// are unequal rather than an error.
func equal(ctx context.Context, a, b Value) (bool, error) {
	if a.kind == KindUnit || b.kind == KindUnit {
		return a.kind == b.kind, nil
	}

	if !comparableKinds(a.kind, b.kind) {
		return false, nil
	}

	switch a.kind {
	case KindInt, KindFloat:
		if a.kind == KindInt && b.kind == KindInt {
			return a.i == b.i, nil
		}

		x, _ := a.AsNumber()
		y, _ := b.AsNumber()

		return x == y, nil

	case KindBool:
		return a.b == b.b, nil

	case KindString:
		return a.s == b.s, nil

	case KindList:
		if len(a.list) != len(b.list) {
			return false, nil
		}

		for i := range a.list {
			eq, err := equal(ctx, a.list[i], b.list[i])
			if err != nil || !eq {
				return false, err
			}
		}

		return true, nil

	case KindMap:
		if a.m.Len() != b.m.Len() {
			return false, nil
		}

		for _, k := range a.m.keys {
			bv, ok := b.m.vals[k]
			if !ok {
				return false, nil
			}

			eq, err := equal(ctx, a.m.vals[k], bv)
			if err != nil || !eq {
				return false, err
			}
		}

		return true, nil

	case KindEntity:
		return a.entity.Path() == b.entity.Path(), nil

	case KindRecord:
		return sameRecord(ctx, a.rec, b.rec)

	case KindRecordSet:
		return sameRecordSet(ctx, a.rs, b.rs)

	default:
		return false, nil
	}
}

func sameRecord(ctx context.Context, a, b Record) (bool, error) {
	if a.Entity().Path() != b.Entity().Path() {
		return false, nil
	}

	return equal(ctx, FromNative(a.ID()), FromNative(b.ID()))
}

func sameRecordSet(ctx context.Context, a, b RecordSet) (bool, error) {
	if a.Entity().Path() != b.Entity().Path() {
		return false, nil
	}

	n, err := a.Len(ctx)
	if err != nil {
		return false, ErrStore.Wrap(err)
	}

	m, err := b.Len(ctx)
	if err != nil {
		return false, ErrStore.Wrap(err)
	}

	if n != m {
		return false, nil
	}

	for i := range n {
		ra, err := a.Index(ctx, i)
		if err != nil {
			return false, ErrStore.Wrap(err)
		}

		rb, err := b.Index(ctx, i)
		if err != nil {
			return false, ErrStore.Wrap(err)
		}

		if eq, err := sameRecord(ctx, ra, rb); err != nil || !eq {
			return false, err
		}
	}

	return true, nil
}

// Materialize replaces every record set reachable from v with a List of its
// records, so that the result can be rendered without further store access.
func (v Value) Materialize(ctx context.Context) (Value, error) {
	switch v.kind {
	case KindRecordSet:
		n, err := v.rs.Len(ctx)
		if err != nil {
			return Value{}, ErrStore.Wrap(err)
		}

		out := make([]Value, n)

		for i := range n {
			r, err := v.rs.Index(ctx, i)
			if err != nil {
				return Value{}, ErrStore.Wrap(err)
			}

			out[i] = RecordValue(r)
		}

		return List(out...), nil

	case KindList:
		out := make([]Value, len(v.list))

		for i, e := range v.list {
			m, err := e.Materialize(ctx)
			if err != nil {
				return Value{}, err
			}

			out[i] = m
		}

		return List(out...), nil

	case KindMap:
		out := NewMap(v.m.Len())

		for _, k := range v.m.keys {
			m, err := v.m.vals[k].Materialize(ctx)
			if err != nil {
				return Value{}, err
			}

			out.Set(k, m)
		}

		return MapValue(out), nil

	default:
		return v, nil
	}
}

// FieldLister is implemented by records that can enumerate their fields.
// Rendered records list their field values when available, and only their ID
// otherwise.
type FieldLister interface {
	Fields() []string
}

// Plain converts v into a structure of plain Go values whose maps preserve
// key order when encoded as JSON or YAML. Record sets are read in full.
func (v Value) Plain(ctx context.Context) (any, error) {
	switch v.kind {
	case KindUnit:
		return nil, nil

	case KindList:
		out := make([]any, len(v.list))

		for i, e := range v.list {
			p, err := e.Plain(ctx)
			if err != nil {
				return nil, err
			}

			out[i] = p
		}

		return out, nil

	case KindMap:
		out := newOrdered()

		for _, k := range v.m.keys {
			p, err := v.m.vals[k].Plain(ctx)
			if err != nil {
				return nil, err
			}

			out.add(k, p)
		}

		return out, nil

	case KindEntity:
		return newOrdered().add("entity", v.entity.Path()), nil

	case KindRecordSet:
		m, err := v.Materialize(ctx)
		if err != nil {
			return nil, err
		}

		return m.Plain(ctx)

	case KindRecord:
		return plainRecord(ctx, v.rec)

	case KindPipeline:
		stages := make([]any, len(v.pipe))

		for i, group := range v.pipe {
			g := newOrdered()

			for _, p := range group {
				pv, err := p.Value.Plain(ctx)
				if err != nil {
					return nil, err
				}

				g.add(predicateKey(p), pv)
			}

			stages[i] = g
		}

		return newOrdered().add("pipeline", stages), nil

	default:
		return v.Native(), nil
	}
}

func plainRecord(ctx context.Context, r Record) (any, error) {
	out := newOrdered().add("entity", r.Entity().Path())

	fl, ok := r.(FieldLister)
	if !ok {
		return out.add("id", r.ID()), nil
	}

	for _, f := range fl.Fields() {
		x, err := r.Get(ctx, f)
		if err != nil {
			return nil, ErrStore.Wrap(err).With(slog.String("field", f))
		}

		out.add(f, plainRef(x))
	}

	return out, nil
}

// plainRef renders a related record by reference only.
func plainRef(x any) any {
	switch x := x.(type) {
	case Record:
		return newOrdered().
			add("entity", x.Entity().Path()).
			add("id", x.ID())
	case EntityType:
		return newOrdered().add("entity", x.Path())
	default:
		return x
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	p, err := v.Plain(context.Background())
	if err != nil {
		return nil, err
	}

	return json.Marshal(p)
}

// MarshalYAML implements yaml.InterfaceMarshaler.
func (v Value) MarshalYAML() (any, error) {
	p, err := v.Plain(context.Background())
	if err != nil {
		return nil, err
	}

	return yamlPlain(p), nil
}

// ordered is a key-ordered map used for encoding. It encodes to JSON through
// the embedded map and to YAML as a yaml.MapSlice.
type ordered struct {
	*orderedmap.OrderedMap[string, any]
}

func newOrdered() ordered {
	return ordered{orderedmap.New[string, any]()}
}

func (o ordered) add(key string, val any) ordered {
	o.Set(key, val)

	return o
}

// MarshalYAML encodes o as a YAML mapping in key order.
func (o ordered) MarshalYAML() (any, error) {
	return yamlPlain(o), nil
}

// yamlPlain rewrites ordered maps as yaml.MapSlice.
func yamlPlain(p any) any {
	switch p := p.(type) {
	case ordered:
		ms := make(yaml.MapSlice, 0, p.Len())
		for pair := p.Oldest(); pair != nil; pair = pair.Next() {
			ms = append(ms, yaml.MapItem{Key: pair.Key, Value: yamlPlain(pair.Value)})
		}

		return ms
	case []any:
		out := make([]any, len(p))
		for i, e := range p {
			out[i] = yamlPlain(e)
		}

		return out
	default:
		return p
	}
}

// predicateKey reconstructs the filter key of p.
func predicateKey(p Predicate) string {
	if p.Lookup == LookupExact || p.Lookup == "" {
		return p.Field
	}

	return p.Field + "__" + string(p.Lookup)
}
