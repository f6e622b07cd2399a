// Package transporttest provides an in-memory Alda server for tests.
package transporttest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/alda-lang/alda-client/internal/protocol"
	"github.com/alda-lang/alda-client/internal/transport"
)

// ErrRefused is returned by Dial while the backend is marked unreachable.
var ErrRefused = errors.New("connection refused")

var errClosed = errors.New("socket closed")

// Handler answers one request with zero or more replies. Returning nil
// simulates a server that never answers.
type Handler func(req *protocol.Request) []*protocol.Response

// Backend is a transport.Dialer whose sockets are served by a Handler.
type Backend struct {
	mu       sync.Mutex
	handler  Handler
	refuse   bool
	requests []*protocol.Request
	dials    int
	open     int
}

// NewBackend returns a backend served by h.
func NewBackend(h Handler) *Backend {
	return &Backend{handler: h}
}

// Silent answers nothing.
func Silent(*protocol.Request) []*protocol.Response { return nil }

// Reply builds a handler-friendly single reply.
func Reply(resp *protocol.Response) []*protocol.Response {
	return []*protocol.Response{resp}
}

// SetHandler swaps the handler for subsequent requests.
func (b *Backend) SetHandler(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = h
}

// SetRefuse makes Dial fail while refuse is true.
func (b *Backend) SetRefuse(refuse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refuse = refuse
}

// Requests returns every request received so far.
func (b *Backend) Requests() []*protocol.Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*protocol.Request(nil), b.requests...)
}

// Commands returns the command of every request received so far.
func (b *Backend) Commands() []string {
	var cmds []string
	for _, r := range b.Requests() {
		cmds = append(cmds, r.Command)
	}
	return cmds
}

// Dials returns how many sockets were opened.
func (b *Backend) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// OpenSockets returns how many sockets are currently open.
func (b *Backend) OpenSockets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open
}

// Dial implements transport.Dialer.
func (b *Backend) Dial(ctx context.Context, address string) (transport.Socket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.refuse {
		return nil, ErrRefused
	}
	b.dials++
	b.open++
	return &socket{
		backend: b,
		replies: make(chan [][]byte, 64),
		closed:  make(chan struct{}),
	}, nil
}

type socket struct {
	backend *Backend
	replies chan [][]byte
	closed  chan struct{}
	once    sync.Once
}

func (s *socket) Send(frames [][]byte) error {
	select {
	case <-s.closed:
		return errClosed
	default:
	}

	req, err := decodeRequest(frames)
	if err != nil {
		return err
	}

	b := s.backend
	b.mu.Lock()
	b.requests = append(b.requests, req)
	h := b.handler
	b.mu.Unlock()

	if h == nil {
		return nil
	}
	for _, resp := range h(req) {
		reply, err := EncodeReply(resp)
		if err != nil {
			return err
		}
		s.replies <- reply
	}
	return nil
}

func (s *socket) Recv() ([][]byte, error) {
	select {
	case frames := <-s.replies:
		return frames, nil
	case <-s.closed:
		return nil, errClosed
	}
}

func (s *socket) Close() error {
	s.once.Do(func() {
		close(s.closed)
		s.backend.mu.Lock()
		s.backend.open--
		s.backend.mu.Unlock()
	})
	return nil
}

// decodeRequest reverses protocol.Request.Frames.
func decodeRequest(frames [][]byte) (*protocol.Request, error) {
	if len(frames) < 2 {
		return nil, errors.New("short request")
	}
	var req protocol.Request
	if err := json.Unmarshal(frames[0], &req); err != nil {
		return nil, err
	}
	if len(frames) == 3 {
		req.Worker = frames[1]
	}
	if string(frames[len(frames)-1]) != req.Command {
		return nil, errors.New("trailing frame does not match command")
	}
	return &req, nil
}

// EncodeReply frames resp the way a server's router socket delivers it:
// [envelope, "", json, worker?].
func EncodeReply(resp *protocol.Response) ([][]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	frames := [][]byte{[]byte("router"), {}, data}
	if !resp.NoWorker && len(resp.WorkerToken) > 0 {
		frames = append(frames, resp.WorkerToken)
	}
	return frames, nil
}
