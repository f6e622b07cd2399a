package server

import (
	"context"
	"os"
	"os/exec"

	"github.com/alda-lang/alda-client/internal/pathutil"
)

// Launcher starts a backend process that outlives this one.
type Launcher interface {
	Launch(ctx context.Context, name string, args []string) error
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, name string, args []string) error

func (f LauncherFunc) Launch(ctx context.Context, name string, args []string) error {
	return f(ctx, name, args)
}

// ExecLauncher starts name detached from the terminal, with no stdio.
// An empty name relaunches the current executable.
type ExecLauncher struct{}

// Launch implements Launcher.
func (ExecLauncher) Launch(ctx context.Context, name string, args []string) error {
	if name == "" {
		executable, err := os.Executable()
		if err != nil {
			return err
		}
		name = executable
	}

	path, err := pathutil.LookPath(name, pathutil.SearchDirs())
	if err != nil {
		return err
	}

	// Not CommandContext: the child must survive ctx.
	cmd := exec.Command(path, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	// Detach from parent process
	cmd.SysProcAttr = detachedAttr()

	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}
