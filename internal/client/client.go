// Package client sends requests to an Alda server and resolves the reply
// that answers them.
package client

import (
	"context"
	"errors"
	"time"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/logging"
	"github.com/alda-lang/alda-client/internal/protocol"
	"github.com/alda-lang/alda-client/internal/transport"
)

// MsgServerDown is the NoResponse message shown when retries run out.
const MsgServerDown = "Alda server is down. To start the server, run `alda up`."

// DefaultWrongJobRetries bounds how many replies for some other job are
// tolerated while waiting for the right one.
const DefaultWrongJobRetries = 50

// Sender is what job polling and the server controller need from a client.
type Sender interface {
	Send(ctx context.Context, req *protocol.Request, timeout time.Duration, retries int) (*protocol.Response, error)
}

// Client sends requests over one transport session.
type Client struct {
	session         *transport.Session
	logger          *logging.Logger
	wrongJobRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithLogger logs traffic at debug level.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithWrongJobRetries overrides DefaultWrongJobRetries.
func WithWrongJobRetries(n int) Option {
	return func(c *Client) { c.wrongJobRetries = n }
}

// New creates a client that owns session.
func New(session *transport.Session, opts ...Option) *Client {
	c := &Client{session: session, wrongJobRetries: DefaultWrongJobRetries}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint of the underlying session.
func (c *Client) Endpoint() transport.Endpoint {
	return c.session.Endpoint()
}

// Close releases the session's socket.
func (c *Client) Close() error {
	return c.session.Close()
}

// Send transmits req up to retries+1 times, rebuilding the socket before
// each transmission, and waits up to timeout after each one for a reply.
//
// When req carries a job-id, replies naming a different job are dropped and
// polling continues on the same socket until the attempt window closes. Those
// replies never extend the window, so Send returns within
// (retries+1)*timeout no matter how chatty the server is.
func (c *Client) Send(ctx context.Context, req *protocol.Request, timeout time.Duration, retries int) (*protocol.Response, error) {
	frames, err := req.Frames()
	if err != nil {
		return nil, err
	}
	jobID := req.JobID()
	wrongJob := c.wrongJobRetries

	c.logger.Debugf("-> %s %s", c.session.Endpoint().Label(), frames[0])

	for attempt := 0; attempt <= retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// Connecting counts against the attempt window, and a failed dial
		// or send still costs the full window below.
		deadline := time.Now().Add(timeout)
		dialCtx, cancel := context.WithDeadline(ctx, deadline)
		if err := c.session.Rebuild(dialCtx); err != nil {
			c.logger.Debugf("attempt %d: %v", attempt+1, err)
		} else if err := c.session.Send(dialCtx, frames); err != nil {
			c.logger.Debugf("attempt %d: send: %v", attempt+1, err)
		}
		cancel()

		for {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				break
			}

			reply, err := c.session.Poll(ctx, remaining)
			if errors.Is(err, transport.ErrTimeout) {
				break
			}
			if err != nil {
				return nil, err
			}

			resp, err := protocol.ParseResponse(reply)
			if err != nil {
				c.logger.Warnf("dropping malformed reply to %s: %v", req.Command, err)
				continue
			}

			if jobID != "" && resp.JobID != "" && resp.JobID != jobID {
				c.logger.Debugf("dropping reply for job %s (want %s)", resp.JobID, jobID)
				wrongJob--
				if wrongJob < 0 {
					return nil, aldaerr.NoResponse(MsgServerDown)
				}
				continue
			}

			c.logger.Debugf("<- %s success=%v pending=%v body=%q", req.Command, resp.Success, resp.Pending, resp.Body)
			return resp, nil
		}
	}

	return nil, aldaerr.NoResponse(MsgServerDown)
}
