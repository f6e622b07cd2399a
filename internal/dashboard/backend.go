package dashboard

import (
	"context"
	"io"

	"github.com/alda-lang/alda-client/internal/logging"
	"github.com/alda-lang/alda-client/internal/process"
	"github.com/alda-lang/alda-client/internal/server"
)

// ServerPool is the Backend for servers on this machine. Each call builds a
// quiet handle for the port it targets.
type ServerPool struct {
	Lister process.Lister
	Base   server.Options
	Logger *logging.Logger
}

func (p *ServerPool) handle(port int) *server.Server {
	opts := p.Base
	opts.Host = "localhost"
	opts.Port = port
	opts.Quiet = true
	return server.New(opts,
		server.WithOutput(io.Discard),
		server.WithLister(p.Lister),
		server.WithLogger(p.Logger),
	)
}

// List implements Backend.
func (p *ServerPool) List(ctx context.Context) ([]process.Record, error) {
	return p.Lister.List(ctx)
}

// Status implements Backend. A server that does not answer yields "".
func (p *ServerPool) Status(ctx context.Context, port int) (string, error) {
	s := p.handle(port)
	defer s.Close()

	report, err := s.Status(ctx)
	if err != nil {
		return "", err
	}
	return report.Body, nil
}

// Stop implements Backend.
func (p *ServerPool) Stop(ctx context.Context, port int) error {
	s := p.handle(port)
	defer s.Close()

	_, err := s.Down(ctx)
	return err
}

// Restart implements Backend.
func (p *ServerPool) Restart(ctx context.Context, port int) error {
	s := p.handle(port)
	defer s.Close()

	return s.Restart(ctx)
}
