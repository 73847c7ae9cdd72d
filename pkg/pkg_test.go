package pkg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	expected := "orml"
	if Name != expected {
		t.Errorf("Expected Name to be %q, got %q", expected, Name)
	}
}

func TestDescription(t *testing.T) {
	if Description == "" {
		t.Error("Expected Description to be set")
	}
}

func TestVersion(t *testing.T) {
	// Version is embedded from the VERSION file next to this package.
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("Failed to read VERSION file: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); Version != content {
		t.Errorf("Expected Version to be %q, got %q", content, Version)
	}
}

func TestVersionString(t *testing.T) {
	got := VersionString()

	if !strings.HasPrefix(got, Name+" "+Version+" ") {
		t.Errorf("Expected VersionString to start with name and version, got %q", got)
	}

	if !strings.Contains(got, Maintainer) {
		t.Errorf("Expected VersionString to credit %q, got %q", Maintainer, got)
	}
}

func TestError(t *testing.T) {
	cause := errors.New("disk full")

	err := ErrReadInput.Wrap(cause).Wrapf("file %q", "a.orml")

	if got := err.Error(); got != `failed to read input: disk full: file "a.orml"` {
		t.Errorf("unexpected message %q", got)
	}

	if !errors.Is(err, ErrReadInput) {
		t.Error("expected chain to match ErrReadInput")
	}

	if !errors.Is(err, cause) {
		t.Error("expected chain to match its cause")
	}

	if errors.Is(err, ErrFixture) {
		t.Error("expected chain not to match ErrFixture")
	}

	wrapped := fmt.Errorf("load: %w", ErrUnknownField.Wrapf("a.b"))
	if !errors.Is(wrapped, ErrUnknownField) {
		t.Error("expected wrapped chain to match ErrUnknownField")
	}
}

func TestError_WrapDoesNotAlias(t *testing.T) {
	a := ErrLookup.Wrapf("first")
	b := ErrLookup.Wrapf("second")

	if a.Error() == b.Error() {
		t.Errorf("expected distinct chains, got %q twice", a.Error())
	}

	if len(ErrLookup) != 1 {
		t.Errorf("expected sentinel to stay unchanged, got %d errors", len(ErrLookup))
	}
}

func TestUnwrapErrors(t *testing.T) {
	inner := errors.New("inner")
	outer := fmt.Errorf("outer: %w", inner)

	chain := UnwrapErrors(outer)
	if len(chain) != 2 || chain[0] != inner || chain[1] != outer {
		t.Errorf("unexpected chain %v", chain)
	}

	if UnwrapErrors(nil) != nil {
		t.Error("expected nil chain for nil error")
	}
}

func TestUserDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}

	ok := func() (string, error) { return "/var/base", nil }
	fail := func() (string, error) { return "", errors.New("unset") }

	if got, want := userDir(ok, ".config"), filepath.Join("/var/base", Name); got != want {
		t.Errorf("userDir(ok) = %q, want %q", got, want)
	}

	if got, want := userDir(fail, ".cache"), filepath.Join(home, ".cache", Name); got != want {
		t.Errorf("userDir(fail) = %q, want %q", got, want)
	}

	for _, dir := range []string{ConfigDir(), CacheDir()} {
		if filepath.Base(dir) != Name {
			t.Errorf("%q is not an orml directory", dir)
		}
	}
}
