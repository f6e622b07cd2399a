//go:build darwin

package pathutil

import (
	"os"
	"os/exec"
	"strings"
)

// systemPaths returns the directories macOS configures in /etc/paths and
// /etc/paths.d, as reported by path_helper.
func systemPaths() []string {
	cmd := exec.Command("/usr/libexec/path_helper", "-s")
	output, err := cmd.Output()
	if err != nil {
		return nil
	}
	path := extractPathFromShellOutput(string(output))
	if path == "" {
		return nil
	}
	return strings.Split(path, string(os.PathListSeparator))
}

// extractPathFromShellOutput parses the output of `path_helper -s`
// which outputs: PATH="..."; export PATH;
func extractPathFromShellOutput(output string) string {
	const prefix = "PATH=\""
	start := strings.Index(output, prefix)
	if start == -1 {
		return ""
	}
	start += len(prefix)
	end := strings.Index(output[start:], "\"")
	if end == -1 {
		return ""
	}
	return output[start : start+end]
}
