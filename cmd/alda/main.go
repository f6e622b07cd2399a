package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/config"
	"github.com/alda-lang/alda-client/internal/logging"
	"github.com/alda-lang/alda-client/internal/process"
	"github.com/alda-lang/alda-client/internal/server"
	"github.com/alda-lang/alda-client/internal/transport"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// app carries the process-wide dependencies of a single invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer

	// stdinIsTerminal reports whether STDIN is interactive. Piped input is
	// read as Alda code.
	stdinIsTerminal func() bool

	lister        process.Lister
	logger        *logging.Logger
	serverOptions []server.Option

	cfg     *config.Config
	console *server.Console
}

func newApp() *app {
	logger, err := logging.New(config.LogPath())
	if err != nil {
		logger = nil
	}
	return &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stdinIsTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		lister: process.NewLister(logger),
		logger: logger,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := newApp()
	code := run(ctx, a, os.Args[1:])
	stop()
	a.logger.Close()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return aldaerr.ExitSuccess
	}

	a.logger.Errorf("%v", err)
	a.errorConsole().Error(err.Error())
	return aldaerr.ExitCodeOf(err)
}

// errorConsole is the console of the server the command addressed, or a
// plain one when the command failed before a server was built.
func (a *app) errorConsole() *server.Console {
	if a.console != nil {
		return a.console
	}
	label := ""
	noColor := true
	if a.cfg != nil {
		label = transport.NewEndpoint(a.cfg.Host, a.cfg.Port).Label()
		noColor = a.cfg.NoColor
	}
	return server.NewConsole(a.stdout, label, false, noColor)
}
