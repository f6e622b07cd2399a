package server

import (
	"context"
	"errors"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/process"
	"github.com/alda-lang/alda-client/internal/protocol"
)

// Up starts a server in the background and waits until it is reachable and
// at least one worker is available.
func (s *Server) Up(ctx context.Context) error {
	if !s.endpoint.IsLocal() {
		return aldaerr.InvalidOptions("Alda servers cannot be started remotely.")
	}

	r, err := s.Ping(ctx, PingTimeout, PingRetries)
	if err != nil {
		return err
	}
	if r == Reachable {
		s.state = StateUp
		return aldaerr.AlreadyUp("Server already up.")
	}

	if s.startingElsewhere(ctx) {
		return aldaerr.AlreadyStarting("There is already a server trying to start on this port. Please be patient -- this can take a while.")
	}

	s.state = StateStarting
	s.logger.Infof("launching %q %v", s.opts.Backend, s.LaunchArgs())
	if err := s.launcher.Launch(ctx, s.opts.Backend, s.LaunchArgs()); err != nil {
		s.state = StateDown
		return aldaerr.System("Unable to fork a background process.", err)
	}

	s.console.Msg("Starting Alda server...")
	if err := s.waitForConnection(ctx); err != nil {
		s.state = StateDown
		return err
	}
	s.console.serverUp()

	s.console.Msg("Starting worker processes...")
	if err := s.waitForWorkers(ctx); err != nil {
		s.state = StateDown
		return err
	}

	s.state = StateUp
	s.console.ready()
	return nil
}

// startingElsewhere looks for a server process already bound to our port.
// It is best effort: a lister failure is reported and ignored.
func (s *Server) startingElsewhere(ctx context.Context) bool {
	if s.lister == nil {
		return false
	}
	records, err := s.lister.List(ctx)
	if err != nil {
		s.logger.Warnf("process listing failed: %v", err)
		s.console.Warn("Unable to detect whether or not there is already a server running on that port.")
		return false
	}
	return process.ServerOnPort(records, s.endpoint.Port)
}

func (s *Server) waitForConnection(ctx context.Context) error {
	retries := RetryBudget(s.opts.Timeout, StartupInterval)
	r, err := s.Ping(ctx, StartupInterval, retries)
	if err != nil {
		return err
	}
	if r != Reachable {
		return aldaerr.NoResponse("Timed out waiting for response from the server.")
	}
	return nil
}

// waitForWorkers polls status until the server reports a free worker.
func (s *Server) waitForWorkers(ctx context.Context) error {
	retries := RetryBudget(s.opts.Timeout, StartupInterval)
	for ; retries >= 0; retries-- {
		if err := s.sleep(ctx, StartupInterval); err != nil {
			return err
		}
		resp, err := s.send(ctx, &protocol.Request{Command: protocol.CmdStatus})
		if err != nil {
			return err
		}
		if n, ok := protocol.WorkersAvailable(resp.Body); ok && n > 0 {
			s.logger.Debugf("%d workers available", n)
			return nil
		}
	}
	return aldaerr.NoResponse("Timed out waiting for worker processes to start.")
}

// Down stops the server. A server that is already unreachable, or that goes
// quiet after being asked to stop, counts as stopped.
func (s *Server) Down(ctx context.Context) (DownResult, error) {
	r, err := s.Ping(ctx, PingTimeout, PingRetries)
	if err != nil {
		return DownAlreadyDown, err
	}
	if r != Reachable {
		s.state = StateDown
		s.console.Msg("Server already down.")
		return DownAlreadyDown, nil
	}

	s.console.Msg("Stopping Alda server...")
	s.state = StateStopping

	resp, err := s.send(ctx, &protocol.Request{Command: protocol.CmdStopServer})
	switch {
	case errors.Is(err, aldaerr.ErrNoResponse):
		s.logger.Infof("stop-server to %s went unanswered, assuming it stopped", s.endpoint)
		s.state = StateDown
		s.console.serverDown(true)
		return DownSilent, nil
	case err != nil:
		s.state = StateUp
		return DownAlreadyDown, err
	case !resp.Success:
		s.state = StateUp
		msg := resp.Body
		if msg == "" {
			msg = "Failed to stop server."
		}
		return DownAlreadyDown, aldaerr.Unsuccessful(msg)
	}

	s.state = StateDown
	s.console.serverDown(true)
	return DownAcknowledged, nil
}

// waitForLackOfConnection polls until the server stops answering pings.
func (s *Server) waitForLackOfConnection(ctx context.Context) error {
	retries := RetryBudget(s.opts.Timeout, ShutdownInterval)
	for ; retries >= 0; retries-- {
		r, err := s.Ping(ctx, ShutdownInterval, 0)
		if err != nil {
			return err
		}
		if r != Reachable {
			return nil
		}
		if err := s.sleep(ctx, ShutdownInterval); err != nil {
			return err
		}
	}
	s.state = StateUp
	return aldaerr.NoResponse("Timed out waiting for the server to shut down.")
}

// Restart stops the server, waits for it to go away and starts it again.
func (s *Server) Restart(ctx context.Context) error {
	if !s.endpoint.IsLocal() {
		return aldaerr.InvalidOptions("Alda servers cannot be started remotely.")
	}

	if _, err := s.Down(ctx); err != nil {
		return err
	}
	if err := s.waitForLackOfConnection(ctx); err != nil {
		return err
	}
	if err := s.sleep(ctx, SettleDelay); err != nil {
		return err
	}

	s.console.Blank()
	return s.Up(ctx)
}
