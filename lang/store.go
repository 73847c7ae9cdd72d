package lang

import (
	"context"
	"slices"
	"strings"
)

// Registry resolves dotted entity paths to entity types. It is the entry point
// of the data access adapter.
type Registry interface {
	// Resolve returns the entity type registered at path. It returns an error
	// wrapping [ErrNotFound] when no such entity exists.
	Resolve(ctx context.Context, path string) (EntityType, error)
}

// EntityType is a named, queryable collection of records.
type EntityType interface {
	// Path returns the dotted path under which the entity is registered.
	Path() string

	// Filter returns the records matching all predicates.
	Filter(ctx context.Context, preds []Predicate) (RecordSet, error)
}

// RecordSet is the ordered result of a query. The order is the one defined by
// the store.
type RecordSet interface {
	Entity() EntityType

	// Filter refines the set to records that also match all predicates.
	Filter(ctx context.Context, preds []Predicate) (RecordSet, error)

	// Values returns the value of field for each record, in order.
	Values(ctx context.Context, field string) ([]any, error)

	// ValuesMap returns, for each record in order, a map from each requested
	// field to its value.
	ValuesMap(ctx context.Context, fields []string) ([]map[string]any, error)

	Len(ctx context.Context) (int, error)

	// Index returns the record at position i, 0-based.
	Index(ctx context.Context, i int) (Record, error)
}

// Record is a single row of an entity.
type Record interface {
	Entity() EntityType

	// ID returns the primary key value that identifies the record within its
	// entity.
	ID() any

	// Get returns the value of field.
	Get(ctx context.Context, field string) (any, error)
}

// Lookup is a field comparison operator selected by a "__" key suffix.
type Lookup string

// Lookups understood by the language. A store may reject any it does not
// support.
const (
	LookupExact       Lookup = "exact"
	LookupIExact      Lookup = "iexact"
	LookupContains    Lookup = "contains"
	LookupIContains   Lookup = "icontains"
	LookupIn          Lookup = "in"
	LookupGt          Lookup = "gt"
	LookupGte         Lookup = "gte"
	LookupLt          Lookup = "lt"
	LookupLte         Lookup = "lte"
	LookupStartsWith  Lookup = "startswith"
	LookupIStartsWith Lookup = "istartswith"
	LookupEndsWith    Lookup = "endswith"
	LookupIEndsWith   Lookup = "iendswith"
	LookupRange       Lookup = "range"
	LookupIsNull      Lookup = "isnull"
	LookupRegex       Lookup = "regex"
)

var lookups = map[Lookup]struct{}{
	LookupExact:       {},
	LookupIExact:      {},
	LookupContains:    {},
	LookupIContains:   {},
	LookupIn:          {},
	LookupGt:          {},
	LookupGte:         {},
	LookupLt:          {},
	LookupLte:         {},
	LookupStartsWith:  {},
	LookupIStartsWith: {},
	LookupEndsWith:    {},
	LookupIEndsWith:   {},
	LookupRange:       {},
	LookupIsNull:      {},
	LookupRegex:       {},
}

// IsLookup reports whether s names a known lookup.
func IsLookup(s string) bool {
	_, ok := lookups[Lookup(s)]

	return ok
}

// Lookups returns the names of all known lookups, sorted.
func Lookups() []string {
	names := make([]string, 0, len(lookups))
	for l := range lookups {
		names = append(names, string(l))
	}

	slices.Sort(names)

	return names
}

// Predicate is one filter condition passed to the store.
type Predicate struct {
	// Field is the field reference. It may traverse relations with "__",
	// as in "parent__name".
	Field string

	Lookup Lookup

	// Value is the evaluated right-hand side. For [LookupIn] and
	// [LookupRange] it is a List.
	Value Value
}

// Path returns the relation segments of the field reference.
func (p Predicate) Path() []string {
	return strings.Split(p.Field, "__")
}

// SplitKey splits a filter key into field reference and lookup. The suffix
// after the last "__" is a lookup only if it names one; otherwise the whole
// key is the field and the lookup is [LookupExact].
func SplitKey(key string) (string, Lookup) {
	i := strings.LastIndex(key, "__")
	if i <= 0 {
		return key, LookupExact
	}

	if suffix := key[i+2:]; IsLookup(suffix) {
		return key[:i], Lookup(suffix)
	}

	return key, LookupExact
}
