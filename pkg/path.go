package pkg

import (
	"os"
	"path/filepath"
	"sync"
)

// ConfigDir returns the directory holding config.yaml and config.json.
var ConfigDir = sync.OnceValue(func() string {
	return userDir(os.UserConfigDir, ".config")
})

// CacheDir returns the directory holding the REPL history and profiles.
var CacheDir = sync.OnceValue(func() string {
	return userDir(os.UserCacheDir, ".cache")
})

// userDir returns the orml subdirectory of the directory reported by base.
// When base fails, hidden is used under the home directory, and failing
// that, under the working directory.
func userDir(base func() (string, error), hidden string) string {
	if dir, err := base(); err == nil {
		return filepath.Join(dir, Name)
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, hidden, Name)
	}

	return filepath.Join(hidden, Name)
}
