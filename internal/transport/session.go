// Package transport owns the socket a client uses to reach one server.
package transport

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alda-lang/alda-client/internal/logging"
)

// ErrTimeout is returned by Poll when no reply arrived in time.
var ErrTimeout = errors.New("no reply within timeout")

// inboxSize bounds replies buffered between the reader and Poll.
const inboxSize = 16

// Session holds zero or one live socket for an endpoint. Every reply is read
// by a goroutine bound to the socket that received it, so replies to a
// socket that has been rebuilt away are never seen by Poll.
type Session struct {
	endpoint Endpoint
	dialer   Dialer
	logger   *logging.Logger

	mu   sync.Mutex
	conn *conn
}

type conn struct {
	sock  Socket
	inbox chan [][]byte
	done  chan struct{}
	once  sync.Once
}

func (c *conn) close() {
	c.once.Do(func() {
		close(c.done)
		c.sock.Close()
	})
}

// read pumps replies into the inbox until the socket fails or is closed.
func (c *conn) read() {
	for {
		frames, err := c.sock.Recv()
		if err != nil {
			return
		}
		select {
		case c.inbox <- frames:
		case <-c.done:
			return
		}
	}
}

// NewSession creates a session. No socket is opened until the first Send.
func NewSession(endpoint Endpoint, dialer Dialer, logger *logging.Logger) *Session {
	if dialer == nil {
		dialer = ZMQDialer{}
	}
	return &Session{endpoint: endpoint, dialer: dialer, logger: logger}
}

// Endpoint returns the endpoint the session dials.
func (s *Session) Endpoint() Endpoint {
	return s.endpoint
}

// Send transmits frames on the current socket, dialing one if needed.
func (s *Session) Send(ctx context.Context, frames [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		if err := s.dialLocked(ctx); err != nil {
			return err
		}
	}
	return s.conn.sock.Send(frames)
}

// Rebuild closes the current socket, if any, and dials a fresh one.
func (s *Session) Rebuild(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	return s.dialLocked(ctx)
}

// Poll waits up to timeout for one reply on the current socket. With no
// socket it waits out the timeout, which keeps retry spacing even when the
// server cannot be dialed.
func (s *Session) Poll(ctx context.Context, timeout time.Duration) ([][]byte, error) {
	s.mu.Lock()
	var inbox chan [][]byte
	if s.conn != nil {
		inbox = s.conn.inbox
	}
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	// A nil inbox blocks forever, leaving only the timer and ctx.
	select {
	case frames := <-inbox:
		return frames, nil
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close releases the current socket.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closeLocked()
	return nil
}

func (s *Session) dialLocked(ctx context.Context) error {
	sock, err := s.dialer.Dial(ctx, s.endpoint.Address())
	if err != nil {
		s.logger.Debugf("dial %s failed: %v", s.endpoint.Address(), err)
		return err
	}
	c := &conn{
		sock:  sock,
		inbox: make(chan [][]byte, inboxSize),
		done:  make(chan struct{}),
	}
	go c.read()
	s.conn = c
	return nil
}

func (s *Session) closeLocked() {
	if s.conn != nil {
		s.conn.close()
		s.conn = nil
	}
}
