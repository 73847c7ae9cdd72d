// Package pkg holds the orml module metadata along with the sentinel errors
// and user directories shared by the command packages.
package pkg

import (
	_ "embed"
	"strings"
)

// Name is the command name. It also names the user config and cache
// directories.
const Name = "orml"

// Description is the one-line summary shown in help output.
const Description = "Query language for entity stores"

// Maintainer is credited in the --version output.
const Maintainer = "ardnew <andrew@ardnew.com>"

//go:embed VERSION
var version string

// Version is the release recorded in the embedded VERSION file.
var Version = strings.TrimSpace(version)

// VersionString is the text printed by --version.
func VersionString() string {
	return Name + " " + Version + " (" + Maintainer + ")"
}
