// Package process finds Alda server and worker processes in the OS process
// table.
package process

import (
	"context"
	"strconv"
	"strings"

	"github.com/alda-lang/alda-client/internal/protocol"
)

// PortUnknown marks a record whose command line carried no --port.
const PortUnknown = -1

// Role is what a backend process does.
type Role string

const (
	RoleServer  Role = "server"
	RoleWorker  Role = "worker"
	RoleUnknown Role = "unknown"
)

// Record is one backend process seen in a single listing.
type Record struct {
	PID  int
	Role Role
	Port int
}

// HasPort reports whether the record's port is known.
func (r Record) HasPort() bool {
	return r.Port != PortUnknown
}

// Lister takes a snapshot of the backend processes running on this machine.
type Lister interface {
	List(ctx context.Context) ([]Record, error)
}

// ListerFunc adapts a function to Lister.
type ListerFunc func(ctx context.Context) ([]Record, error)

func (f ListerFunc) List(ctx context.Context) ([]Record, error) {
	return f(ctx)
}

// ParseCommandLine builds a record from a process's arguments. ok is false
// when the arguments do not carry the fingerprint marker.
func ParseCommandLine(pid int, args []string) (rec Record, ok bool) {
	marked := false
	for _, a := range args {
		if strings.Contains(a, protocol.Fingerprint) {
			marked = true
			break
		}
	}
	if !marked {
		return Record{}, false
	}

	rec = Record{PID: pid, Role: RoleUnknown, Port: PortUnknown}
	for i, a := range args {
		switch {
		case a == "worker":
			rec.Role = RoleWorker
		case a == "server" && rec.Role != RoleWorker:
			rec.Role = RoleServer
		case a == "--port" && i+1 < len(args):
			if port, err := strconv.Atoi(args[i+1]); err == nil {
				rec.Port = port
			}
		case strings.HasPrefix(a, "--port="):
			if port, err := strconv.Atoi(strings.TrimPrefix(a, "--port=")); err == nil {
				rec.Port = port
			}
		}
	}
	return rec, true
}

// Servers filters records down to servers.
func Servers(records []Record) []Record {
	var out []Record
	for _, r := range records {
		if r.Role == RoleServer {
			out = append(out, r)
		}
	}
	return out
}

// ServerOnPort reports whether any server record listens on port.
func ServerOnPort(records []Record, port int) bool {
	for _, r := range Servers(records) {
		if r.Port == port {
			return true
		}
	}
	return false
}
