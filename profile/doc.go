// Package profile provides optional runtime profiling for orml.
//
// Profiling is backed by [github.com/pkg/profile] and must be enabled at
// build time with the "pprof" build tag. Without the tag, [Profiler.Start]
// returns a no-op [Stopper] and [Modes] returns nil.
//
//	p := profile.New(profile.WithMode("cpu"), profile.WithDir("/tmp/prof"))
//	defer p.Start().Stop()
//
// Profile files are named after the mode (cpu.pprof, mem.pprof) and can be
// analyzed with go tool pprof:
//
//	go tool pprof -http=: /tmp/prof/cpu.pprof
//
// When built with the tag, the package also imports [net/http/pprof], which
// registers its handlers on [net/http.DefaultServeMux].
package profile

// Tag is the build tag required to enable pprof profiling.
const Tag = `pprof`
