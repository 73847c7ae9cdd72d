package profile

// Stopper ends a profiling session and flushes its output.
type Stopper interface{ Stop() }

// Profiler describes one profiling session.
type Profiler struct {
	Mode  string
	Dir   string
	Quiet bool
}

// Option configures a Profiler.
type Option func(*Profiler)

// New returns a Profiler configured by opts.
func New(opts ...Option) Profiler {
	var p Profiler

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// WithMode sets the profiling mode. See [Modes].
func WithMode(mode string) Option { return func(p *Profiler) { p.Mode = mode } }

// WithDir sets the directory profile files are written to.
func WithDir(dir string) Option { return func(p *Profiler) { p.Dir = dir } }

// WithQuiet suppresses the profiler's own log output.
func WithQuiet(quiet bool) Option { return func(p *Profiler) { p.Quiet = quiet } }

// Start begins profiling and returns the Stopper that ends it.
//
// If the pprof build tag is unset, or the mode is empty or unknown, Start
// returns a no-op Stopper. Both Start and Stop are always safe to call.
func (p Profiler) Start() Stopper {
	if p.Mode == "" {
		return ignore{}
	}

	return start(p)
}

type ignore struct{}

func (ignore) Stop() {}
