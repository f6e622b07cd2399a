package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestMergePaths(t *testing.T) {
	sep := string(os.PathListSeparator)
	join := func(parts ...string) string { return strings.Join(parts, sep) }

	tests := []struct {
		name      string
		primary   string
		secondary string
		want      string
	}{
		{
			name:      "empty paths",
			primary:   "",
			secondary: "",
			want:      "",
		},
		{
			name:      "primary only",
			primary:   join("/usr/bin", "/bin"),
			secondary: "",
			want:      join("/usr/bin", "/bin"),
		},
		{
			name:      "no duplicates",
			primary:   join("/usr/bin", "/bin"),
			secondary: join("/usr/local/bin", "/opt/bin"),
			want:      join("/usr/bin", "/bin", "/usr/local/bin", "/opt/bin"),
		},
		{
			name:      "with duplicates",
			primary:   join("/usr/bin", "/bin", "/usr/local/bin"),
			secondary: join("/usr/local/bin", "/opt/bin", "/bin"),
			want:      join("/usr/bin", "/bin", "/usr/local/bin", "/opt/bin"),
		},
		{
			name:      "empty segments ignored",
			primary:   join("/usr/bin", "", "/bin"),
			secondary: join("", "/opt/bin", ""),
			want:      join("/usr/bin", "/bin", "/opt/bin"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergePaths(tt.primary, tt.secondary)
			if got != tt.want {
				t.Errorf("MergePaths(%q, %q) = %q, want %q", tt.primary, tt.secondary, got, tt.want)
			}
		})
	}
}

func TestCommonPaths(t *testing.T) {
	hasUsrLocal := false
	hasLocalBin := false
	for _, p := range CommonPaths() {
		if p == "/usr/local/bin" {
			hasUsrLocal = true
		}
		if strings.HasSuffix(p, filepath.Join(".local", "bin")) {
			hasLocalBin = true
		}
	}

	if !hasUsrLocal {
		t.Error("CommonPaths should include /usr/local/bin")
	}
	if !hasLocalBin {
		t.Error("CommonPaths should include ~/.local/bin")
	}
}

func TestSearchDirs_StartsWithExecutableDir(t *testing.T) {
	self, err := os.Executable()
	if err != nil {
		t.Skip("os.Executable unavailable")
	}
	dirs := SearchDirs()
	if len(dirs) == 0 || dirs[0] != filepath.Dir(self) {
		t.Errorf("SearchDirs()[0] = %v, want %s", dirs, filepath.Dir(self))
	}
}

func writeExecutable(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLookPath_FallsBackToSearchDirs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits")
	}
	t.Setenv("PATH", t.TempDir())

	dir := t.TempDir()
	want := writeExecutable(t, dir, "alda-server")

	got, err := LookPath("alda-server", []string{"", filepath.Join(dir, "missing"), dir})
	if err != nil {
		t.Fatalf("LookPath: %v", err)
	}
	if got != want {
		t.Errorf("LookPath = %q, want %q", got, want)
	}
}

func TestLookPath_PrefersPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits")
	}
	onPath := t.TempDir()
	want := writeExecutable(t, onPath, "alda-server")
	t.Setenv("PATH", onPath)

	other := t.TempDir()
	writeExecutable(t, other, "alda-server")

	got, err := LookPath("alda-server", []string{other})
	if err != nil {
		t.Fatalf("LookPath: %v", err)
	}
	if got != want {
		t.Errorf("LookPath = %q, want %q", got, want)
	}
}

func TestLookPath_NotFound(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	_, err := LookPath("alda-server", []string{t.TempDir()})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "alda-server") {
		t.Errorf("error should name the executable, got %v", err)
	}
}

func TestLookPath_ExplicitPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bits")
	}
	want := writeExecutable(t, t.TempDir(), "my-server")

	got, err := LookPath(want, nil)
	if err != nil {
		t.Fatalf("LookPath: %v", err)
	}
	if got != want {
		t.Errorf("LookPath = %q, want %q", got, want)
	}
}
