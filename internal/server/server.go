// Package server starts, stops and queries an Alda server.
package server

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/client"
	"github.com/alda-lang/alda-client/internal/config"
	"github.com/alda-lang/alda-client/internal/logging"
	"github.com/alda-lang/alda-client/internal/process"
	"github.com/alda-lang/alda-client/internal/protocol"
	"github.com/alda-lang/alda-client/internal/transport"
)

// Polling intervals and budgets.
const (
	PingTimeout = 100 * time.Millisecond
	PingRetries = 5

	StartupInterval  = 250 * time.Millisecond
	ShutdownInterval = 250 * time.Millisecond

	StatusTimeout = 200 * time.Millisecond
	StatusRetries = 10

	// SettleDelay gives the OS time to release the port between the two
	// halves of a restart.
	SettleDelay = time.Second
)

// RetryBudget is the number of retries that fit in seconds when one attempt
// is made every interval.
func RetryBudget(seconds int, interval time.Duration) int {
	return seconds * int(time.Second/interval)
}

// State is where the server handle believes the server is.
type State int

const (
	StateDown State = iota
	StateStarting
	StateUp
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateUp:
		return "up"
	case StateStopping:
		return "stopping"
	default:
		return "down"
	}
}

// Reachability is the outcome of a ping.
type Reachability int

const (
	Unreachable Reachability = iota // no reply in time
	Reachable                       // replied with success
	Refused                         // replied, but not with success
)

func (r Reachability) String() string {
	switch r {
	case Reachable:
		return "reachable"
	case Refused:
		return "refused"
	default:
		return "unreachable"
	}
}

// DownResult is how Down concluded.
type DownResult int

const (
	DownAlreadyDown  DownResult = iota // nothing answered the initial ping
	DownAcknowledged                   // the server confirmed stop-server
	DownSilent                         // stop-server went unanswered
)

// StatusReport is the outcome of Status.
type StatusReport struct {
	Up   bool
	Body string
}

// Options describe a server handle.
type Options struct {
	Host    string
	Port    int
	Timeout int // seconds to wait for startup or shutdown
	Workers int
	Verbose bool // without WithLogger, log traffic at debug to the console output
	Quiet   bool
	NoColor bool
	Backend string
}

// OptionsFromConfig copies the relevant fields of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Host:    cfg.Host,
		Port:    cfg.Port,
		Timeout: cfg.Timeout,
		Workers: cfg.Workers,
		Verbose: cfg.Verbose,
		Quiet:   cfg.Quiet,
		NoColor: cfg.NoColor,
		Backend: cfg.Backend,
	}
}

// Server is a handle on one Alda server. It owns a single transport session
// and is not safe for concurrent use.
type Server struct {
	endpoint transport.Endpoint
	opts     Options

	client   *client.Client
	lister   process.Lister
	launcher Launcher
	console  *Console
	logger   *logging.Logger
	sleep    func(context.Context, time.Duration) error

	requestTimeout time.Duration
	requestRetries int
	jobInterval    time.Duration

	state State

	// OnScore, if set, receives the score snapshot returned by each play.
	OnScore func(*protocol.Score)
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	dialer         transport.Dialer
	lister         process.Lister
	launcher       Launcher
	out            io.Writer
	logger         *logging.Logger
	sleep          func(context.Context, time.Duration) error
	requestTimeout time.Duration
	requestRetries int
	jobInterval    time.Duration
}

// WithDialer replaces the ZeroMQ dialer.
func WithDialer(d transport.Dialer) Option {
	return func(c *serverConfig) { c.dialer = d }
}

// WithLister sets the process lister used to detect a concurrent startup.
func WithLister(l process.Lister) Option {
	return func(c *serverConfig) { c.lister = l }
}

// WithLauncher replaces the detached process launcher.
func WithLauncher(l Launcher) Option {
	return func(c *serverConfig) { c.launcher = l }
}

// WithOutput redirects console messages.
func WithOutput(w io.Writer) Option {
	return func(c *serverConfig) { c.out = w }
}

// WithLogger logs lifecycle and protocol traffic.
func WithLogger(l *logging.Logger) Option {
	return func(c *serverConfig) { c.logger = l }
}

// WithSleep replaces the pause used between polls.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(c *serverConfig) { c.sleep = fn }
}

// WithRequestBudget overrides the timeout and retries of ordinary requests.
func WithRequestBudget(timeout time.Duration, retries int) Option {
	return func(c *serverConfig) {
		c.requestTimeout = timeout
		c.requestRetries = retries
	}
}

// WithJobInterval overrides the job status poll interval.
func WithJobInterval(d time.Duration) Option {
	return func(c *serverConfig) { c.jobInterval = d }
}

// New creates a handle. No connection is made until the first request.
func New(opts Options, options ...Option) *Server {
	cfg := serverConfig{
		launcher:       ExecLauncher{},
		out:            os.Stdout,
		sleep:          sleep,
		requestTimeout: protocol.DefaultTimeout,
		requestRetries: protocol.DefaultRetries,
	}
	for _, o := range options {
		o(&cfg)
	}
	if opts.Workers < 1 {
		opts.Workers = config.DefaultWorkers
	}
	if opts.Verbose && cfg.logger == nil {
		cfg.logger = logging.NewWriter(cfg.out, config.LogDebug)
	}

	endpoint := transport.NewEndpoint(opts.Host, opts.Port)
	session := transport.NewSession(endpoint, cfg.dialer, cfg.logger)

	return &Server{
		endpoint:       endpoint,
		opts:           opts,
		client:         client.New(session, client.WithLogger(cfg.logger)),
		lister:         cfg.lister,
		launcher:       cfg.launcher,
		console:        NewConsole(cfg.out, endpoint.Label(), opts.Quiet, opts.NoColor),
		logger:         cfg.logger,
		sleep:          cfg.sleep,
		requestTimeout: cfg.requestTimeout,
		requestRetries: cfg.requestRetries,
		jobInterval:    cfg.jobInterval,
	}
}

// Endpoint returns the server's endpoint.
func (s *Server) Endpoint() transport.Endpoint { return s.endpoint }

// Console returns the console the server prints to.
func (s *Server) Console() *Console { return s.console }

// State returns the last known lifecycle state.
func (s *Server) State() State { return s.state }

// Close releases the handle's socket.
func (s *Server) Close() error {
	return s.client.Close()
}

// LaunchArgs are the arguments a background server is started with.
func (s *Server) LaunchArgs() []string {
	return []string{
		"--host", s.endpoint.Host,
		"--port", strconv.Itoa(s.endpoint.Port),
		"--workers", strconv.Itoa(s.opts.Workers),
		"--" + protocol.Fingerprint,
		"server",
	}
}

// Ping sends one ping with the given budget. Only cancellation and
// unexpected failures are returned as errors; silence is Unreachable.
func (s *Server) Ping(ctx context.Context, timeout time.Duration, retries int) (Reachability, error) {
	resp, err := s.client.Send(ctx, &protocol.Request{Command: protocol.CmdPing}, timeout, retries)
	if errors.Is(err, aldaerr.ErrNoResponse) {
		return Unreachable, nil
	}
	if err != nil {
		return Unreachable, err
	}
	if !resp.Success {
		return Refused, nil
	}
	return Reachable, nil
}

// send issues a request with the handle's ordinary budget.
func (s *Server) send(ctx context.Context, req *protocol.Request) (*protocol.Response, error) {
	return s.client.Send(ctx, req, s.requestTimeout, s.requestRetries)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
