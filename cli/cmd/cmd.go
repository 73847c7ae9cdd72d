package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/ardnew/orml/lang"
	"github.com/ardnew/orml/log"
	"github.com/ardnew/orml/pkg"
	"github.com/ardnew/orml/store/memstore"
)

type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, _ := ctx.Value(contextKey{}).(*kong.Context)

	return ktx
}

// Runtime carries the values every command shares.
type Runtime struct {
	// Stores lists the fixture files loaded into the store, in order.
	Stores []string

	// Observer receives evaluation measurements. Nil disables them.
	Observer lang.Observer

	// CacheDir holds transient files such as the REPL history.
	CacheDir string

	// Stdout receives command output. Nil means os.Stdout.
	Stdout io.Writer

	// Stderr receives diagnostics such as error snippets. Nil means
	// os.Stderr.
	Stderr io.Writer
}

type runtimeKey struct{}

// WithRuntime returns a new context.Context containing rt.
func WithRuntime(ctx context.Context, rt Runtime) context.Context {
	return context.WithValue(ctx, runtimeKey{}, rt)
}

func runtimeFrom(ctx context.Context) Runtime {
	rt, _ := ctx.Value(runtimeKey{}).(Runtime)

	if rt.Stdout == nil {
		rt.Stdout = os.Stdout
	}

	if rt.Stderr == nil {
		rt.Stderr = os.Stderr
	}

	return rt
}

// open loads the runtime's fixture files into a new store.
func (rt Runtime) open(ctx context.Context) (*memstore.Store, error) {
	s, err := memstore.Open(ctx, rt.Stores...)
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "store opened",
		slog.Any("fixtures", rt.Stores),
		slog.Any("entities", s.Paths()))

	return s, nil
}

// evaluator returns an evaluator over reg with the default logger and the
// runtime's observer.
func (rt Runtime) evaluator(reg lang.Registry) *lang.Evaluator {
	opts := []lang.Option{lang.WithLogger(log.Default())}

	if rt.Observer != nil {
		opts = append(opts, lang.WithObserver(rt.Observer))
	}

	return lang.New(reg, opts...)
}

// fileKey identifies a file by device and inode, so the same file named
// through a symlink or a relative path is read once.
type fileKey struct {
	dev uint64
	ino uint64
}

// stdinSource names stdin among script sources.
const stdinSource = "-"

// openUnique opens path unless a file with the same identity is in seen.
func openUnique(path string, seen map[fileKey]struct{}) (*os.File, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false, err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, false, err
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return nil, false, err
	}

	if key, ok := makeFileKey(info); ok {
		if _, dup := seen[key]; dup {
			return nil, false, nil
		}

		seen[key] = struct{}{}
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, false, err
	}

	return f, true, nil
}

func makeFileKey(info os.FileInfo) (fileKey, bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return fileKey{}, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true
}

// readSources returns the lines of the given script files in order. A file
// named more than once is read once. Stdin, named "-", is read last.
func readSources(sources []string) ([]string, error) {
	var (
		lines []string
		stdin bool
	)

	seen := make(map[fileKey]struct{})

	for _, src := range sources {
		if src == stdinSource {
			stdin = true

			continue
		}

		f, ok, err := openUnique(src, seen)
		if err != nil {
			return nil, pkg.ErrReadInput.Wrap(err).Wrapf("%s", src)
		}

		if !ok {
			continue
		}

		ls, err := lang.ReadLines(f)
		f.Close()

		if err != nil {
			return nil, err
		}

		lines = append(lines, ls...)
	}

	if stdin {
		ls, err := lang.ReadLines(os.Stdin)
		if err != nil {
			return nil, err
		}

		lines = append(lines, ls...)
	}

	return lines, nil
}
