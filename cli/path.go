package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ardnew/mung"

	"github.com/ardnew/orml/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config"

// storePathEnv names the PATH-like list of fixture files loaded into the
// store after those given with --store.
const storePathEnv = "ORML_STORE_PATH"

var defaultDirMode os.FileMode = 0o700

// configPath joins elem onto the configuration directory.
func configPath(elem ...string) string {
	return filepath.Join(append([]string{pkg.ConfigDir()}, elem...)...)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{pkg.ConfigDir(), pkg.CacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return pkg.ErrReadInput.Wrap(err).Wrapf("%s", dir)
		}
	}

	return nil
}

// storePath returns the fixture files to load: each of prefix followed by the
// entries of the storePathEnv list, keeping only regular files that exist.
func storePath(getenv func(string) string, prefix ...string) []string {
	list := mung.Make(
		mung.WithSubjectItems(getenv(storePathEnv)),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(prefix...),
		mung.WithFilter(isFile),
	).String()

	var paths []string

	for _, p := range filepath.SplitList(list) {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}

	return paths
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
