// Package cli contains the command line interface for orml.
//
// # Usage
//
// Statements given as arguments are evaluated against an entity store loaded
// from YAML fixture files:
//
//	orml -s fixtures.yaml 'SUM(tests.testmodel{t: "T1"}[val])'
//	orml -s fixtures.yaml -f setup.orml -o json 'ids'
//	orml -s fixtures.yaml repl
//	orml fmt json script.orml
//
// Fixture files given with --store are loaded first, followed by the existing
// files listed in $ORML_STORE_PATH.
//
// # Configuration
//
// Flag defaults are read from config.yaml in the user configuration
// directory. Keys are flag names; nested mappings join with hyphens:
//
//	log:
//	  level: debug
//	store: [fixtures.yaml]
//
// The init command writes the current flags to that file. Files named with
// --env-file are loaded as dotenv files before anything else is parsed.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize text output
//
// # Metrics
//
// With --metrics=FILE, evaluation and store call counters and latency
// histograms are written to FILE in Prometheus text format on exit.
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory
package cli
