// Package pathutil locates the backend executable that `alda up` launches.
// A client started from a desktop launcher or an IDE often sees a minimal
// PATH, so install locations that PATH may be missing are searched too.
package pathutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommonPaths returns install locations that are often missing from PATH.
func CommonPaths() []string {
	paths := []string{
		"/opt/homebrew/bin", // Homebrew on Apple Silicon
		"/usr/local/bin",
	}

	// Add user's local bin if home directory is available
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".local", "bin"))
	}

	return paths
}

// SearchDirs returns the directories tried after PATH, in order: the
// directory of the running executable, system-configured paths, then
// CommonPaths.
func SearchDirs() []string {
	var dirs []string
	if self, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(self))
	}
	dirs = append(dirs, systemPaths()...)
	return append(dirs, CommonPaths()...)
}

// MergePaths combines two path lists, preserving order and removing duplicates.
// Primary paths come first, then secondary paths that aren't already present.
func MergePaths(primary, secondary string) string {
	sep := string(os.PathListSeparator)
	seen := make(map[string]bool)
	var merged []string

	for _, pathList := range []string{primary, secondary} {
		for _, part := range strings.Split(pathList, sep) {
			if part != "" && !seen[part] {
				seen[part] = true
				merged = append(merged, part)
			}
		}
	}
	return strings.Join(merged, sep)
}

// LookPath resolves name to an executable. Names containing a path
// separator are checked as given; bare names are looked up in PATH and then
// in dirs.
func LookPath(name string, dirs []string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return exec.LookPath(name)
	}

	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if path, err := exec.LookPath(filepath.Join(dir, name)); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s: executable not found in PATH or %s", name,
		MergePaths("", strings.Join(dirs, string(os.PathListSeparator))))
}
