package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/job"
	"github.com/alda-lang/alda-client/internal/protocol"
)

// Status asks the server to describe itself. A server that does not answer
// is reported as down rather than as an error.
func (s *Server) Status(ctx context.Context) (StatusReport, error) {
	resp, err := s.client.Send(ctx, &protocol.Request{Command: protocol.CmdStatus}, StatusTimeout, StatusRetries)
	if errors.Is(err, aldaerr.ErrNoResponse) {
		s.console.serverDown(false)
		return StatusReport{Up: false}, nil
	}
	if err != nil {
		return StatusReport{}, err
	}
	if !resp.Success {
		return StatusReport{Up: true, Body: resp.Body}, aldaerr.Unsuccessful("Unable to report status.")
	}
	s.console.Msg(resp.Body)
	return StatusReport{Up: true, Body: resp.Body}, nil
}

// Version returns the server's version string.
func (s *Server) Version(ctx context.Context) (string, error) {
	resp, err := s.send(ctx, &protocol.Request{Command: protocol.CmdVersion})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", aldaerr.Unsuccessful(resp.Body)
	}
	return resp.Body, nil
}

// StopPlayback stops whatever the server's workers are playing.
func (s *Server) StopPlayback(ctx context.Context) error {
	resp, err := s.send(ctx, &protocol.Request{Command: protocol.CmdStopPlayback})
	if errors.Is(err, aldaerr.ErrNoResponse) {
		s.console.serverDown(false)
		return nil
	}
	if err != nil {
		return err
	}
	if !resp.Success {
		return aldaerr.Unsuccessful(resp.Body)
	}
	s.console.Msg(resp.Body)
	return nil
}

// Parse returns the server's parse of code as "data" or "events".
func (s *Server) Parse(ctx context.Context, code, output string) (string, error) {
	if output != protocol.OutputData && output != protocol.OutputEvents {
		return "", aldaerr.InvalidOptions("Invalid --output type. Valid output types are: data, events")
	}
	resp, err := s.send(ctx, &protocol.Request{
		Command: protocol.CmdParse,
		Body:    code,
		Options: &protocol.Options{Output: output},
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", aldaerr.Parse(resp.Body)
	}
	return resp.Body, nil
}

// Instruments lists the instruments the server knows.
func (s *Server) Instruments(ctx context.Context) ([]string, error) {
	resp, err := s.send(ctx, &protocol.Request{Command: protocol.CmdInstruments})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, aldaerr.Unsuccessful(resp.Body)
	}
	return protocol.ParseInstruments(resp.Body), nil
}

// PlayOptions narrow what part of a score is played.
type PlayOptions struct {
	From    string
	To      string
	History string
}

func (s *Server) runner() *job.Runner {
	return &job.Runner{
		Sender:   s.client,
		Interval: s.jobInterval,
		Notify:   func(status string) { s.console.Msg(protocol.StatusMessage(status)) },
		Logger:   s.logger,
	}
}

// Play submits code for playback and reports progress until the worker is
// done with it.
func (s *Server) Play(ctx context.Context, code string, opts PlayOptions) (*protocol.Response, error) {
	spec := job.PlaySpec(code, protocol.Options{
		From:    opts.From,
		To:      opts.To,
		History: opts.History,
	})
	resp, err := s.runner().Run(ctx, spec)
	if err != nil {
		return nil, err
	}

	s.console.Msg(protocol.StatusMessage(resp.Body))
	if s.OnScore != nil && resp.Score != nil {
		s.OnScore(resp.Score)
	}
	return resp, nil
}

// PlayFromRepl is Play for interactive input: while every worker is busy it
// waits and resubmits instead of failing.
func (s *Server) PlayFromRepl(ctx context.Context, code string, opts PlayOptions) (*protocol.Response, error) {
	return job.RetryBusy(ctx, job.BusyRetries, job.BusyInterval, func(ctx context.Context) (*protocol.Response, error) {
		return s.Play(ctx, code, opts)
	})
}

// Export renders code to filename. format defaults to midi, the only format
// servers write.
func (s *Server) Export(ctx context.Context, code, format, filename string) (string, error) {
	if format == "" {
		format = protocol.ExportMIDI
	}
	if format != protocol.ExportMIDI {
		return "", aldaerr.InvalidOptions("Invalid --output-format. Valid output formats are: midi")
	}
	if filename == "" {
		return "", aldaerr.InvalidOptions("You must specify an --output filename.")
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return "", aldaerr.System("Unable to resolve output filename.", err)
	}

	spec := job.ExportSpec(code, protocol.Options{As: format, Filename: abs})
	if _, err := s.runner().Run(ctx, spec); err != nil {
		return "", err
	}

	s.console.Msg(fmt.Sprintf("Exported score to %s", abs))
	return abs, nil
}
