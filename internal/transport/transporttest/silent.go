package transporttest

import (
	"net"
	"sync"

	"github.com/alda-lang/alda-client/internal/transport"
)

// SilentPeer accepts TCP connections and never writes to them, like a wedged
// server or an unrelated process holding the port.
type SilentPeer struct {
	ln    net.Listener
	mu    sync.Mutex
	conns []net.Conn
}

// NewSilentPeer listens on a random loopback port.
func NewSilentPeer() (*SilentPeer, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	p := &SilentPeer{ln: ln}
	go p.accept()
	return p, nil
}

func (p *SilentPeer) accept() {
	for {
		c, err := p.ln.Accept()
		if err != nil {
			return
		}
		p.mu.Lock()
		p.conns = append(p.conns, c)
		p.mu.Unlock()
	}
}

// Endpoint returns the endpoint the peer listens on.
func (p *SilentPeer) Endpoint() transport.Endpoint {
	addr := p.ln.Addr().(*net.TCPAddr)
	return transport.NewEndpoint("127.0.0.1", addr.Port)
}

// Accepted returns how many connections were accepted so far.
func (p *SilentPeer) Accepted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns)
}

// Close stops listening and drops every accepted connection.
func (p *SilentPeer) Close() error {
	err := p.ln.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		c.Close()
	}
	p.conns = nil
	return err
}
