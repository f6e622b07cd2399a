//go:build !darwin

package pathutil

// systemPaths is empty outside macOS, where PATH is trusted as configured.
func systemPaths() []string {
	return nil
}
