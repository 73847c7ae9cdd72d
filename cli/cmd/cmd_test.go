package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ardnew/orml/pkg"
)

const fixture = "../../store/memstore/testdata/tests.yaml"

// testRuntime returns a context carrying a Runtime over the test fixture and
// the buffers receiving its output.
func testRuntime(t *testing.T) (ctx context.Context, stdout, stderr *bytes.Buffer) {
	t.Helper()

	stdout, stderr = new(bytes.Buffer), new(bytes.Buffer)

	ctx = WithRuntime(t.Context(), Runtime{
		Stores:   []string{fixture},
		CacheDir: t.TempDir(),
		Stdout:   stdout,
		Stderr:   stderr,
	})

	return ctx, stdout, stderr
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestReadSources_Empty(t *testing.T) {
	lines, err := readSources(nil)
	if err != nil || lines != nil {
		t.Errorf("readSources(nil) = (%q, %v), want (nil, nil)", lines, err)
	}
}

func TestReadSources_Order(t *testing.T) {
	dir := t.TempDir()
	a := writeScript(t, dir, "a.orml", "a = 1\nb = 2\n")
	b := writeScript(t, dir, "b.orml", "c = a + b")

	lines, err := readSources([]string{a, b})
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"a = 1", "b = 2", "c = a + b"}; !slices.Equal(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestReadSources_Duplicates(t *testing.T) {
	dir := t.TempDir()
	a := writeScript(t, dir, "a.orml", "x = 1")

	link := filepath.Join(dir, "link.orml")
	if err := os.Symlink(a, link); err != nil {
		t.Skipf("symlink: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	rel, err := filepath.Rel(wd, a)
	if err != nil {
		t.Fatal(err)
	}

	lines, err := readSources([]string{a, rel, link, a})
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"x = 1"}; !slices.Equal(lines, want) {
		t.Errorf("lines = %q, want %q", lines, want)
	}
}

func TestReadSources_Missing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.orml")

	_, err := readSources([]string{missing})
	if !errors.Is(err, pkg.ErrReadInput) {
		t.Errorf("err = %v, want ErrReadInput", err)
	}
}

func TestRuntimeFrom_Defaults(t *testing.T) {
	rt := runtimeFrom(t.Context())

	if rt.Stdout != os.Stdout || rt.Stderr != os.Stderr {
		t.Error("runtimeFrom did not default the output streams")
	}

	if rt.Stores != nil || rt.Observer != nil {
		t.Errorf("runtimeFrom = %+v, want zero stores and observer", rt)
	}
}

func TestRuntime_Open(t *testing.T) {
	ctx, _, _ := testRuntime(t)

	s, err := runtimeFrom(ctx).open(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if want := []string{"tests.testmodel", "tests.testmodelchild"}; !slices.Equal(s.Paths(), want) {
		t.Errorf("Paths = %q, want %q", s.Paths(), want)
	}
}

func TestError_Is(t *testing.T) {
	cause := errors.New("cause")
	err := ErrEval.Wrap(cause).With()

	if !errors.Is(err, ErrEval) || !errors.Is(err, cause) {
		t.Errorf("%v should match ErrEval and its cause", err)
	}

	if errors.Is(err, ErrFormat) {
		t.Errorf("%v should not match ErrFormat", err)
	}

	if got, want := err.Error(), "evaluation failed: cause"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
