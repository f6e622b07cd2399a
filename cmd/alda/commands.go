package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/dashboard"
	"github.com/alda-lang/alda-client/internal/protocol"
	"github.com/alda-lang/alda-client/internal/server"
	"github.com/alda-lang/alda-client/internal/status"
)

func newUpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "up",
		Aliases: []string{"start-server", "init"},
		Short:   "Start the Alda server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.newServer()
			defer s.Close()
			return s.Up(cmd.Context())
		},
	}
}

func newDownCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "down",
		Aliases: []string{"stop-server"},
		Short:   "Stop the Alda server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.newServer()
			defer s.Close()
			_, err := s.Down(cmd.Context())
			return err
		},
	}
}

func newDownUpCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "downup",
		Aliases: []string{"restart-server"},
		Short:   "Restart the Alda server",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.newServer()
			defer s.Close()
			return s.Restart(cmd.Context())
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List running Alda servers/workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				return a.watch(cmd)
			}

			ctx := cmd.Context()
			records, err := a.lister.List(ctx)
			if err != nil {
				return err
			}
			status.Sort(records)

			for _, rec := range records {
				if !status.Live(rec) {
					fmt.Fprintln(a.stdout, status.Line(rec))
					continue
				}
				opts := server.OptionsFromConfig(a.cfg)
				opts.Host = "localhost"
				opts.Port = rec.Port
				opts.Quiet = false
				s := a.serverAt(opts)
				_, err := s.Status(ctx)
				s.Close()
				if err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().Bool("watch", false, "keep refreshing the list in a dashboard")
	return cmd
}

func (a *app) watch(cmd *cobra.Command) error {
	pool := &dashboard.ServerPool{
		Lister: a.lister,
		Base:   server.OptionsFromConfig(a.cfg),
		Logger: a.logger,
	}
	program := tea.NewProgram(
		dashboard.NewModel(cmd.Context(), pool),
		tea.WithAltScreen(),
		tea.WithContext(cmd.Context()),
	)
	if _, err := program.Run(); err != nil {
		return aldaerr.System("Dashboard failed.", err)
	}
	return nil
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Display whether the server is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.newServer()
			defer s.Close()
			_, err := s.Status(cmd.Context())
			return err
		},
	}
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display the version of the Alda client and server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(a.stdout, "Client version: %s\n", Version)

			s := a.newServer()
			defer s.Close()
			v, err := s.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.stdout, "Server version: %s\n", v)
			return nil
		},
	}
}

func newPlayCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Evaluate and play Alda code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.findInput(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			history, _ := flags.GetString("history")
			if historyFile, _ := flags.GetString("history-file"); historyFile != "" {
				if history != "" {
					return aldaerr.InvalidOptions("--history and --history-file options cannot be used together.")
				}
				if history, err = readFile(historyFile); err != nil {
					return err
				}
			}
			from, _ := flags.GetString("from")
			to, _ := flags.GetString("to")

			s := a.newServer()
			defer s.Close()
			_, err = s.Play(cmd.Context(), code, server.PlayOptions{
				From:    from,
				To:      to,
				History: history,
			})
			return err
		},
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("history", "i", "", "Alda code that can be referenced but will not be played")
	cmd.Flags().StringP("history-file", "I", "", "a file containing Alda code that can be referenced but will not be played")
	cmd.Flags().StringP("from", "F", "", "a time marking or marker from which to start playback")
	cmd.Flags().StringP("to", "T", "", "a time marking or marker at which to end playback")
	return cmd
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "stop",
		Aliases: []string{"stop-playback"},
		Short:   "Stop playback",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.newServer()
			defer s.Close()
			return s.StopPlayback(cmd.Context())
		},
	}
}

func newParseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Display the result of parsing Alda code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.findInput(cmd)
			if err != nil {
				return err
			}
			output, _ := cmd.Flags().GetString("output")

			s := a.newServer()
			defer s.Close()
			result, err := s.Parse(cmd.Context(), code, output)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, result)
			return nil
		},
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("output", "o", protocol.OutputData, `return the output as "data" or "events"`)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Evaluate Alda code and export the score to another format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := a.findInput(cmd)
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("output-format")
			filename, _ := cmd.Flags().GetString("output")

			s := a.newServer()
			defer s.Close()
			_, err = s.Export(cmd.Context(), code, format, filename)
			return err
		},
	}
	addInputFlags(cmd)
	cmd.Flags().StringP("output-format", "F", protocol.ExportMIDI, "the output format (midi)")
	cmd.Flags().StringP("output", "o", "", "the output filename")
	return cmd
}

func newInstrumentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "instruments",
		Short: "Display a list of available instruments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.newServer()
			defer s.Close()
			names, err := s.Instruments(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(a.stdout, name)
			}
			return nil
		},
	}
}
