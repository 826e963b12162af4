// Package version holds build metadata, which is set with -ldflags
// at build time
package version

import (
	"os"
	"path/filepath"
	"runtime"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	GitSource   string
	GitTag      string
	GitBranch   string
	GitHash     string
	GoBuildTime string
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ExecName returns the name of the running executable
func ExecName() string {
	name, err := os.Executable()
	if err != nil {
		return "pgjobs"
	}
	return filepath.Base(name)
}

// Version returns the tag, or the branch and hash when there is no tag
func Version() string {
	switch {
	case GitTag != "":
		return GitTag
	case GitBranch != "" && GitHash != "":
		return GitBranch + "@" + GitHash
	case GitHash != "":
		return GitHash
	default:
		return "dev"
	}
}

// Compiler returns the go version, operating system and architecture
func Compiler() string {
	return runtime.Version() + " " + runtime.GOOS + "/" + runtime.GOARCH
}
