package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alda-lang/alda-client/internal/protocol"
	"github.com/alda-lang/alda-client/internal/transport"
	"github.com/alda-lang/alda-client/internal/transport/transporttest"
)

func ping(t *testing.T) [][]byte {
	t.Helper()
	frames, err := (&protocol.Request{Command: protocol.CmdPing}).Frames()
	require.NoError(t, err)
	return frames
}

func TestSession_LazyDial(t *testing.T) {
	backend := transporttest.NewBackend(transporttest.Silent)
	s := transport.NewSession(transport.NewEndpoint("localhost", 27713), backend, nil)
	defer s.Close()

	assert.Equal(t, 0, backend.Dials(), "no socket before first send")

	require.NoError(t, s.Send(context.Background(), ping(t)))
	require.NoError(t, s.Send(context.Background(), ping(t)))
	assert.Equal(t, 1, backend.Dials())
	assert.Equal(t, []string{"ping", "ping"}, backend.Commands())
}

func TestSession_RebuildKeepsOneSocket(t *testing.T) {
	backend := transporttest.NewBackend(transporttest.Silent)
	s := transport.NewSession(transport.NewEndpoint("localhost", 27713), backend, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Rebuild(context.Background()))
		assert.Equal(t, 1, backend.OpenSockets())
	}
	assert.Equal(t, 5, backend.Dials())

	require.NoError(t, s.Close())
	assert.Equal(t, 0, backend.OpenSockets())
}

func TestSession_PollReturnsReply(t *testing.T) {
	backend := transporttest.NewBackend(func(req *protocol.Request) []*protocol.Response {
		return transporttest.Reply(&protocol.Response{Success: true, Body: "pong", NoWorker: true})
	})
	s := transport.NewSession(transport.NewEndpoint("localhost", 27713), backend, nil)
	defer s.Close()

	require.NoError(t, s.Send(context.Background(), ping(t)))
	frames, err := s.Poll(context.Background(), time.Second)
	require.NoError(t, err)

	resp, err := protocol.ParseResponse(frames)
	require.NoError(t, err)
	assert.Equal(t, "pong", resp.Body)
}

func TestSession_RebuildDropsStaleReplies(t *testing.T) {
	backend := transporttest.NewBackend(func(req *protocol.Request) []*protocol.Response {
		return transporttest.Reply(&protocol.Response{Success: true, Body: "stale", NoWorker: true})
	})
	s := transport.NewSession(transport.NewEndpoint("localhost", 27713), backend, nil)
	defer s.Close()

	require.NoError(t, s.Send(context.Background(), ping(t)))
	require.NoError(t, s.Rebuild(context.Background()))

	_, err := s.Poll(context.Background(), 20*time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)
}

func TestSession_PollWithoutSocketWaitsOutTimeout(t *testing.T) {
	backend := transporttest.NewBackend(transporttest.Silent)
	backend.SetRefuse(true)
	s := transport.NewSession(transport.NewEndpoint("localhost", 27713), backend, nil)

	err := s.Rebuild(context.Background())
	require.True(t, errors.Is(err, transporttest.ErrRefused))

	start := time.Now()
	_, err = s.Poll(context.Background(), 30*time.Millisecond)
	assert.ErrorIs(t, err, transport.ErrTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestSession_PollHonorsContext(t *testing.T) {
	backend := transporttest.NewBackend(transporttest.Silent)
	s := transport.NewSession(transport.NewEndpoint("localhost", 27713), backend, nil)
	defer s.Close()
	require.NoError(t, s.Send(context.Background(), ping(t)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Poll(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
