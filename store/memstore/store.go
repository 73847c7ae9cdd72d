package memstore

import (
	"context"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/pkg"
)

// DefaultPrimaryKey is the primary key field of a schema that names none.
const DefaultPrimaryKey = "id"

// Schema describes the fields of an entity.
type Schema struct {
	// Fields lists the record fields in display order. The primary key is
	// added first if missing.
	Fields []string `yaml:"fields" json:"fields"`

	// PrimaryKey names the identifying field. Integer keys omitted on insert
	// are assigned in sequence.
	PrimaryKey string `yaml:"primary_key,omitempty" json:"primary_key,omitempty"`

	// Relations maps a field holding a foreign key to the path of the
	// referenced entity. Filters and projections traverse relations with
	// "__", as in "parent__name".
	Relations map[string]string `yaml:"relations,omitempty" json:"relations,omitempty"`
}

// Store is an in-memory entity registry. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entities map[string]*entity
}

// New returns an empty Store.
func New() *Store {
	return &Store{entities: make(map[string]*entity)}
}

// Register adds an entity at path with the given schema.
func (s *Store) Register(path string, schema Schema) error {
	key := strings.ToLower(path)
	if key == "" {
		return pkg.ErrSchema.Wrapf("empty entity path")
	}

	if schema.PrimaryKey == "" {
		schema.PrimaryKey = DefaultPrimaryKey
	}

	fields := []string{schema.PrimaryKey}

	for _, f := range schema.Fields {
		if f == "" || strings.Contains(f, "__") {
			return pkg.ErrSchema.Wrapf("%s: invalid field name %q", key, f)
		}

		if !slices.Contains(fields, f) {
			fields = append(fields, f)
		}
	}

	for f := range schema.Relations {
		if !slices.Contains(fields, f) {
			return pkg.ErrSchema.Wrapf("%s: relation on unknown field %q", key, f)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entities[key]; ok {
		return pkg.ErrSchema.Wrapf("%s: entity already registered", key)
	}

	s.entities[key] = &entity{
		store:     s,
		path:      key,
		pk:        schema.PrimaryKey,
		fields:    fields,
		relations: maps.Clone(schema.Relations),
		index:     make(map[any]row),
	}

	return nil
}

// Insert adds a record to the entity at path and returns its primary key.
// Numeric values are stored as int64 or float64.
func (s *Store) Insert(path string, values map[string]any) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entities[strings.ToLower(path)]
	if !ok {
		return nil, lang.ErrNotFound.With(slog.String("path", path))
	}

	return e.insert(values)
}

// Resolve implements [lang.Registry]. Paths are matched case-insensitively.
func (s *Store) Resolve(_ context.Context, path string) (lang.EntityType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[strings.ToLower(path)]
	if !ok {
		return nil, lang.ErrNotFound.With(slog.String("path", path))
	}

	return e, nil
}

// Paths returns the registered entity paths in sorted order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Sorted(maps.Keys(s.entities))
}

// Fields returns the fields of the entity registered at path, primary key
// first, or nil if there is none.
func (s *Store) Fields(path string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entities[strings.ToLower(path)]; ok {
		return slices.Clone(e.fields)
	}

	return nil
}

// row is one stored record. Rows are never modified after insertion.
type row map[string]any

type entity struct {
	store     *Store
	path      string
	pk        string
	fields    []string
	relations map[string]string
	rows      []row
	index     map[any]row
	next      int64
}

func (e *entity) insert(values map[string]any) (any, error) {
	r := make(row, len(e.fields))

	for k, v := range values {
		if !slices.Contains(e.fields, k) {
			return nil, pkg.ErrUnknownField.Wrapf("%s.%s", e.path, k)
		}

		r[k] = normalize(v)
	}

	for _, f := range e.fields {
		if _, ok := r[f]; !ok {
			r[f] = nil
		}
	}

	for f := range e.relations {
		if !scalar(r[f]) {
			return nil, pkg.ErrSchema.Wrapf("%s.%s: relation value %v is not a scalar", e.path, f, r[f])
		}
	}

	id := r[e.pk]
	if !scalar(id) {
		return nil, pkg.ErrSchema.Wrapf("%s.%s: primary key %v is not a scalar", e.path, e.pk, id)
	}

	if id == nil {
		e.next++
		id = e.next
		r[e.pk] = id
	}

	if n, ok := id.(int64); ok && n > e.next {
		e.next = n
	}

	if _, ok := e.index[id]; ok {
		return nil, pkg.ErrDuplicateKey.Wrapf("%s: %v", e.path, id)
	}

	e.rows = append(e.rows, r)
	e.index[id] = r

	return id, nil
}

// scalar reports whether a normalized value can serve as an index key.
func scalar(v any) bool {
	switch v.(type) {
	case nil, bool, int64, float64, string:
		return true
	}

	return false
}

func (e *entity) Path() string { return e.path }

func (e *entity) Filter(ctx context.Context, preds []lang.Predicate) (lang.RecordSet, error) {
	e.store.mu.RLock()
	rows := slices.Clip(e.rows)
	e.store.mu.RUnlock()

	return (&recordSet{entity: e, rows: rows}).Filter(ctx, preds)
}

// lookup returns the row with primary key id.
func (e *entity) lookup(id any) (row, bool) {
	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	r, ok := e.index[normalize(id)]

	return r, ok
}

// related returns the entity referenced by field.
func (e *entity) related(field string) (*entity, error) {
	path, ok := e.relations[field]
	if !ok {
		return nil, pkg.ErrUnknownField.Wrapf("%s.%s is not a relation", e.path, field)
	}

	e.store.mu.RLock()
	defer e.store.mu.RUnlock()

	t, ok := e.store.entities[strings.ToLower(path)]
	if !ok {
		return nil, pkg.ErrSchema.Wrapf("%s.%s: unknown entity %q", e.path, field, path)
	}

	return t, nil
}

// value returns the value at a "__"-separated field path of r, following
// relations for every segment but the last. A missing related record yields
// nil.
func (e *entity) value(r row, path string) (any, error) {
	seg, rest, more := strings.Cut(path, "__")

	if !slices.Contains(e.fields, seg) {
		return nil, pkg.ErrUnknownField.Wrapf("%s.%s", e.path, seg)
	}

	v := r[seg]
	if !more {
		return v, nil
	}

	t, err := e.related(seg)
	if err != nil {
		return nil, err
	}

	if v == nil {
		return nil, nil
	}

	next, ok := t.lookup(v)
	if !ok {
		return nil, nil
	}

	return t.value(next, rest)
}

type recordSet struct {
	entity *entity
	rows   []row
}

func (s *recordSet) Entity() lang.EntityType { return s.entity }

func (s *recordSet) Filter(ctx context.Context, preds []lang.Predicate) (lang.RecordSet, error) {
	ms := make([]*matcher, len(preds))

	for i, p := range preds {
		m, err := newMatcher(ctx, p)
		if err != nil {
			return nil, err
		}

		ms[i] = m
	}

	out := make([]row, 0, len(s.rows))

	for _, r := range s.rows {
		ok, err := s.entity.matchAll(r, ms)
		if err != nil {
			return nil, err
		}

		if ok {
			out = append(out, r)
		}
	}

	return &recordSet{entity: s.entity, rows: slices.Clip(out)}, nil
}

func (e *entity) matchAll(r row, ms []*matcher) (bool, error) {
	for _, m := range ms {
		v, err := e.value(r, m.pred.Field)
		if err != nil {
			return false, err
		}

		ok, err := m.match(v)
		if err != nil || !ok {
			return false, err
		}
	}

	return true, nil
}

func (s *recordSet) Values(_ context.Context, field string) ([]any, error) {
	out := make([]any, len(s.rows))

	for i, r := range s.rows {
		v, err := s.entity.value(r, field)
		if err != nil {
			return nil, err
		}

		out[i] = v
	}

	return out, nil
}

func (s *recordSet) ValuesMap(_ context.Context, fields []string) ([]map[string]any, error) {
	out := make([]map[string]any, len(s.rows))

	for i, r := range s.rows {
		m := make(map[string]any, len(fields))

		for _, f := range fields {
			v, err := s.entity.value(r, f)
			if err != nil {
				return nil, err
			}

			m[f] = v
		}

		out[i] = m
	}

	return out, nil
}

func (s *recordSet) Len(context.Context) (int, error) { return len(s.rows), nil }

func (s *recordSet) Index(_ context.Context, i int) (lang.Record, error) {
	if i < 0 || i >= len(s.rows) {
		return nil, pkg.ErrIndexRange.Wrapf("%s[%d] of %d records", s.entity.path, i, len(s.rows))
	}

	return &record{entity: s.entity, row: s.rows[i]}, nil
}

type record struct {
	entity *entity
	row    row
}

func (r *record) Entity() lang.EntityType { return r.entity }
func (r *record) ID() any                 { return r.row[r.entity.pk] }

// Fields returns the entity fields in schema order.
func (r *record) Fields() []string { return slices.Clone(r.entity.fields) }

// Get returns the value of field. A relation field yields the referenced
// record, or nil if the key is unset or dangling.
func (r *record) Get(_ context.Context, field string) (any, error) {
	v, err := r.entity.value(r.row, field)
	if err != nil || v == nil {
		return v, err
	}

	seg := field
	if i := strings.LastIndex(field, "__"); i >= 0 {
		seg = field[i+2:]
	}

	owner, err := r.owner(field)
	if err != nil {
		return nil, err
	}

	if _, ok := owner.relations[seg]; !ok {
		return v, nil
	}

	t, err := owner.related(seg)
	if err != nil {
		return nil, err
	}

	next, ok := t.lookup(v)
	if !ok {
		return nil, nil
	}

	return &record{entity: t, row: next}, nil
}

// owner returns the entity declaring the last segment of a field path.
func (r *record) owner(field string) (*entity, error) {
	e := r.entity
	segs := strings.Split(field, "__")

	for _, seg := range segs[:len(segs)-1] {
		t, err := e.related(seg)
		if err != nil {
			return nil, err
		}

		e = t
	}

	return e, nil
}
