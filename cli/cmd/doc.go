// Package cmd implements the orml subcommands: eval, fmt, repl, and init.
//
// Commands read shared settings (fixture files, metrics observer, cache
// directory, output streams) from a [Runtime] stored in the context with
// [WithRuntime], and the parsed command line from [WithContext].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
