// Package status formats process listings for `alda list`.
package status

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alda-lang/alda-client/internal/process"
)

// Sort orders records servers first, then workers, then the rest; by port
// and pid within a role.
func Sort(records []process.Record) {
	rank := func(r process.Role) int {
		switch r {
		case process.RoleServer:
			return 0
		case process.RoleWorker:
			return 1
		default:
			return 2
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if rank(a.Role) != rank(b.Role) {
			return rank(a.Role) < rank(b.Role)
		}
		if a.Port != b.Port {
			return a.Port < b.Port
		}
		return a.PID < b.PID
	})
}

// Live reports whether r is a server that can be asked for its status.
func Live(r process.Record) bool {
	return r.Role == process.RoleServer && r.HasPort()
}

// Line describes a record that is not a live server.
func Line(r process.Record) string {
	switch r.Role {
	case process.RoleServer:
		return fmt.Sprintf("[???] Mysterious server running on unknown port (pid: %d)", r.PID)
	case process.RoleWorker:
		if !r.HasPort() {
			return fmt.Sprintf("[???] Mysterious worker running on unknown port (pid: %d)", r.PID)
		}
		return fmt.Sprintf("[%d] Worker (pid: %d)", r.Port, r.PID)
	default:
		if !r.HasPort() {
			return fmt.Sprintf("[???] Mysterious Alda process running on unknown port (pid: %d)", r.PID)
		}
		return fmt.Sprintf("[%d] Mysterious Alda process (pid: %d)", r.Port, r.PID)
	}
}

// Summary counts records by role, e.g. "1 server, 2 workers".
func Summary(records []process.Record) string {
	var servers, workers, other int
	for _, r := range records {
		switch r.Role {
		case process.RoleServer:
			servers++
		case process.RoleWorker:
			workers++
		default:
			other++
		}
	}

	if servers+workers+other == 0 {
		return "no Alda processes running"
	}

	parts := []string{plural(servers, "server"), plural(workers, "worker")}
	if other > 0 {
		parts = append(parts, plural(other, "other"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
