package transport

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"
)

// Socket is one connected, message-oriented socket. Recv blocks until a
// multipart message arrives or the socket is closed.
type Socket interface {
	Send(frames [][]byte) error
	Recv() ([][]byte, error)
	Close() error
}

// Dialer opens sockets. Production code uses ZMQDialer; tests swap in fakes.
type Dialer interface {
	Dial(ctx context.Context, address string) (Socket, error)
}

// ZMQDialer opens ZeroMQ DEALER sockets.
type ZMQDialer struct{}

// Dial connects a DEALER socket to address. Dial retries are disabled so a
// server that is down shows up as a failed dial instead of a stall.
//
// Connecting includes the ZMTP handshake, which zmq4 runs without a
// deadline. It happens in the background so that Dial returns once ctx is
// done even when the peer accepts TCP but never speaks ZMTP.
func (ZMQDialer) Dial(ctx context.Context, address string) (Socket, error) {
	// The socket outlives the caller's ctx; Close tears it down.
	sock := zmq4.NewDealer(context.Background(), zmq4.WithDialerMaxRetries(0))

	done := make(chan error, 1)
	go func() {
		done <- sock.Dial(address)
	}()

	select {
	case err := <-done:
		if err != nil {
			sock.Close()
			return nil, fmt.Errorf("dial %s: %w", address, err)
		}
		return &zmqSocket{sock: sock}, nil
	case <-ctx.Done():
		// Close only after the handshake goroutine lets go of the socket.
		go func() {
			<-done
			sock.Close()
		}()
		return nil, fmt.Errorf("dial %s: %w", address, ctx.Err())
	}
}

type zmqSocket struct {
	sock zmq4.Socket
}

func (s *zmqSocket) Send(frames [][]byte) error {
	return s.sock.SendMulti(zmq4.NewMsgFrom(frames...))
}

func (s *zmqSocket) Recv() ([][]byte, error) {
	msg, err := s.sock.Recv()
	if err != nil {
		return nil, err
	}
	return msg.Frames, nil
}

func (s *zmqSocket) Close() error {
	return s.sock.Close()
}
