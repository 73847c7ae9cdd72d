package cli

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/ardnew/orml/log"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestStorePath(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "")
	b := writeFile(t, dir, "b.yaml", "")
	c := writeFile(t, dir, "c.yaml", "")

	env := map[string]string{
		storePathEnv: b + string(os.PathListSeparator) + c,
	}

	getenv := func(k string) string { return env[k] }

	got := storePath(getenv, a)
	if want := []string{a, b, c}; !slices.Equal(got, want) {
		t.Errorf("storePath = %q, want %q", got, want)
	}

	if got := storePath(func(string) string { return "" }); len(got) != 0 {
		t.Errorf("storePath with nothing set = %q, want empty", got)
	}
}

func TestEnvFiles(t *testing.T) {
	tests := []struct {
		args []string
		want []string
	}{
		{nil, nil},
		{[]string{"--env-file=a.env", "eval"}, []string{"a.env"}},
		{[]string{"--env-file", "a.env", "--env-file=b.env"}, []string{"a.env", "b.env"}},
		{[]string{"eval", "--", "--env-file=x"}, nil},
		{[]string{"--env-file"}, nil},
	}

	for _, tt := range tests {
		if got := envFiles(tt.args); !slices.Equal(got, tt.want) {
			t.Errorf("envFiles(%q) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "test.env", "ORML_TEST_LOADED=yes\nORML_TEST_KEPT=file\n")

	t.Setenv("ORML_TEST_KEPT", "env")
	t.Setenv("ORML_TEST_LOADED", "")
	os.Unsetenv("ORML_TEST_LOADED")

	if err := loadEnv([]string{path}); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}

	if got := os.Getenv("ORML_TEST_LOADED"); got != "yes" {
		t.Errorf("ORML_TEST_LOADED = %q, want yes", got)
	}

	if got := os.Getenv("ORML_TEST_KEPT"); got != "env" {
		t.Errorf("ORML_TEST_KEPT = %q, want the existing value", got)
	}

	if err := loadEnv([]string{filepath.Join(dir, "missing.env")}); err == nil {
		t.Error("loadEnv on missing file: want error")
	}
}

func TestLogConfigScan(t *testing.T) {
	t.Cleanup(func() { log.Config(log.WithPretty(true), log.WithCaller(false)) })

	var f logConfig

	f.Pretty = true
	f.scan([]string{
		"--no-log-pretty",
		"--log-caller=true",
		"--log-level", "debug",
		"--log-format=json",
		"--other",
	})

	if f.Pretty || !f.Caller {
		t.Errorf("Pretty = %v, Caller = %v, want false, true", f.Pretty, f.Caller)
	}

	if f.Level != "debug" || f.Format != "json" {
		t.Errorf("Level = %q, Format = %q, want debug, json", f.Level, f.Format)
	}

	if got := log.Default().Level(); got != log.ParseLevel("debug") {
		t.Errorf("default logger level = %v, want debug", got)
	}

	log.Config(log.WithLevel(log.DefaultLevel), log.WithFormat(log.DefaultFormat))
}
