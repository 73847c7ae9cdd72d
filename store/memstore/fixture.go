package memstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/orml/log"
	"github.com/ardnew/orml/pkg"
)

// Fixture is the document form of a store: a list of entities with their
// schemas and records.
//
//	entities:
//	  - path: tests.testmodel
//	    fields: [t, val, note]
//	    records:
//	      - {t: T1, val: 15, note: Test 1}
type Fixture struct {
	Entities []EntityFixture `yaml:"entities" json:"entities"`
}

// EntityFixture declares one entity and its records.
type EntityFixture struct {
	Path   string `yaml:"path" json:"path"`
	Schema `yaml:",inline"`

	Records []map[string]any `yaml:"records,omitempty" json:"records,omitempty"`
}

// Load decodes a YAML (or JSON) fixture from r into s. All entities are
// registered before any record is inserted, so records may reference entities
// declared later in the document.
func (s *Store) Load(ctx context.Context, r io.Reader) error {
	ra := readahead.NewReader(r)
	defer ra.Close()

	var fx Fixture

	err := yaml.NewDecoder(ra).DecodeContext(ctx, &fx)
	if err != nil && !errors.Is(err, io.EOF) {
		return pkg.ErrFixture.Wrap(err)
	}

	return s.Apply(ctx, fx)
}

// Apply registers the entities of fx and inserts their records.
func (s *Store) Apply(ctx context.Context, fx Fixture) error {
	for _, ef := range fx.Entities {
		if err := s.Register(ef.Path, ef.Schema); err != nil {
			return err
		}
	}

	for _, ef := range fx.Entities {
		for _, rec := range ef.Records {
			if _, err := s.Insert(ef.Path, rec); err != nil {
				return err
			}
		}

		log.TraceContext(ctx, "fixture entity loaded",
			slog.String("path", ef.Path),
			slog.Int("records", len(ef.Records)))
	}

	return nil
}

// LoadFile loads the fixture at path into s.
func (s *Store) LoadFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return pkg.ErrReadInput.Wrap(err)
	}
	defer f.Close()

	if err := s.Load(ctx, f); err != nil {
		return pkg.MakeError(err).Wrapf("%s", path)
	}

	return nil
}

// Open returns a Store loaded from each fixture file in order.
func Open(ctx context.Context, paths ...string) (*Store, error) {
	s := New()

	for _, p := range paths {
		if err := s.LoadFile(ctx, p); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// normalize converts numeric values to int64 or float64 and decoded
// collections to their plain forms. Unsigned values above the int64 range
// become float64.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalize(e)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalize(e)
		}

		return out
	default:
		return v
	}
}

func normalizeUint(u uint64) any {
	if u > math.MaxInt64 {
		return float64(u)
	}

	return int64(u)
}
