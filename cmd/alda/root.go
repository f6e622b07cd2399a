package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/config"
	"github.com/alda-lang/alda-client/internal/server"
)

const appName = "alda"

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Alda - a text-based language for music composition",
		Long:          "alda is the command line client for the Alda server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.configure(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stdout)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return aldaerr.InvalidOptions(err.Error())
	})

	flags := cmd.PersistentFlags()
	flags.StringP(config.KeyHost, "H", config.DefaultHost, "the hostname of the Alda server")
	flags.IntP(config.KeyPort, "p", config.DefaultPort, "the port of the Alda server")
	flags.IntP(config.KeyTimeout, "t", config.DefaultTimeout, "seconds to wait for a server to start up or shut down")
	flags.IntP(config.KeyWorkers, "w", config.DefaultWorkers, "number of worker processes to start")
	flags.BoolP(config.KeyVerbose, "v", false, "enable verbose output")
	flags.BoolP(config.KeyQuiet, "q", false, "disable non-error messages")
	flags.Bool(config.KeyNoColor, false, "disable color output")
	flags.String("config", "", "path to a config file")

	cmd.AddCommand(
		newUpCmd(a),
		newDownCmd(a),
		newDownUpCmd(a),
		newListCmd(a),
		newStatusCmd(a),
		newVersionCmd(a),
		newPlayCmd(a),
		newStopCmd(a),
		newParseCmd(a),
		newExportCmd(a),
		newInstrumentsCmd(a),
	)

	return cmd
}

// configure resolves the configuration for the command being run.
func (a *app) configure(flags *pflag.FlagSet) error {
	if path, _ := flags.GetString("config"); path != "" {
		if err := os.Setenv("ALDA_CONFIG_PATH", path); err != nil {
			return aldaerr.System("Unable to set config path.", err)
		}
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return aldaerr.InvalidOptions(err.Error())
	}
	a.cfg = cfg

	if cfg.Verbose {
		a.logger.SetLevel(config.LogDebug)
	}
	return nil
}

// newServer builds a handle on the configured server. The caller closes it.
func (a *app) newServer() *server.Server {
	return a.serverAt(server.OptionsFromConfig(a.cfg))
}

func (a *app) serverAt(opts server.Options) *server.Server {
	options := []server.Option{
		server.WithOutput(a.stdout),
		server.WithLogger(a.logger),
	}
	if a.lister != nil {
		options = append(options, server.WithLister(a.lister))
	}
	options = append(options, a.serverOptions...)

	s := server.New(opts, options...)
	a.console = s.Console()
	return s
}
