package transport

import (
	"net"
	"strconv"
	"strings"
)

const scheme = "tcp://"

// Endpoint is the (host, port) pair a server listens on.
type Endpoint struct {
	Host string
	Port int
}

// NewEndpoint builds an endpoint from user input such as "localhost",
// " tcp://example.com/ " or "10.0.0.5".
func NewEndpoint(host string, port int) Endpoint {
	return Endpoint{Host: NormalizeHost(host), Port: port}
}

// NormalizeHost trims whitespace, a trailing slash and any tcp:// scheme.
// An empty host means localhost.
func NormalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimSuffix(host, "/")
	host = strings.TrimPrefix(host, scheme)
	if host == "" {
		return "localhost"
	}
	return host
}

// Address returns the transport address, e.g. tcp://localhost:27713.
func (e Endpoint) Address() string {
	return scheme + net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// IsLocal reports whether the endpoint names this machine.
func (e Endpoint) IsLocal() bool {
	switch e.Host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Label is the short form used to prefix console messages: the bare port for
// localhost, host:port otherwise.
func (e Endpoint) Label() string {
	if e.Host == "localhost" {
		return strconv.Itoa(e.Port)
	}
	return e.Host + ":" + strconv.Itoa(e.Port)
}

func (e Endpoint) String() string {
	return e.Address()
}
