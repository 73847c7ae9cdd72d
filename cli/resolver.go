package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/orml/pkg"
)

// resolve is a [kong.ConfigurationLoader] for YAML configuration files.
//
//	kong.Configuration(resolve, "/path/to/config.yaml")
//
// Keys are flag names. Nested mappings are joined with hyphens and
// underscores may stand in for hyphens, so the following are equivalent:
//
//	log-level: debug
//	log_level: debug
//	log: {level: debug}
//
// Sequences become comma-separated lists. Command-line flags override
// configuration values.
func resolve(r io.Reader) (kong.Resolver, error) {
	var doc map[string]any

	err := yaml.NewDecoder(r).Decode(&doc)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, pkg.ErrConfig.Wrap(err)
	}

	cfg := make(config)
	cfg.flatten("", doc)

	return cfg, nil
}

// config implements [kong.Resolver] over a flat map of flag names to values
// in their command-line text form.
type config map[string]string

func (c config) flatten(prefix string, doc map[string]any) {
	for k, v := range doc {
		key := strings.ReplaceAll(k, "_", "-")
		if prefix != "" {
			key = prefix + "-" + key
		}

		if m, ok := v.(map[string]any); ok {
			c.flatten(key, m)

			continue
		}

		if v != nil {
			c[key] = scalar(v)
		}
	}
}

// scalar renders a decoded YAML value as kong would read it from the command
// line.
func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = scalar(e)
		}

		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}

// Validate implements [kong.Resolver].
func (c config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (c config) Resolve(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
	if v, ok := c[flag.Name]; ok {
		return v, nil
	}

	return nil, nil
}
