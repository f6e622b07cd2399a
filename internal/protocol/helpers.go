package protocol

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

var workersAvailableRe = regexp.MustCompile(`(\d+)/\d+ workers available`)

// WorkersAvailable extracts N from a status body reading
// "Server up (N/M workers available, ...)". ok is false when the body does not
// describe a running server.
func WorkersAvailable(body string) (n int, ok bool) {
	if !strings.Contains(body, "Server up") {
		return 0, false
	}
	m := workersAvailableRe.FindStringSubmatch(body)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsNoWorkerMessage reports whether a failure body means every worker is
// busy or none has started yet.
func IsNoWorkerMessage(body string) bool {
	return strings.Contains(body, MsgNoWorkersYet) || strings.Contains(body, MsgWorkersBusy)
}

// StatusMessage is the line shown when a job moves to status.
func StatusMessage(status string) string {
	switch status {
	case StatusParsing:
		return "Parsing/evaluating..."
	case StatusPlaying:
		return "Playing..."
	case StatusExporting:
		return "Exporting..."
	case StatusSuccess:
		return "Done playing."
	default:
		return status
	}
}

// ParseInstruments reads the body of an instruments reply. Servers answer
// with a JSON array; older ones send one name per line.
func ParseInstruments(body string) []string {
	var names []string
	if err := json.Unmarshal([]byte(body), &names); err == nil {
		return names
	}
	for _, line := range strings.Split(body, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	return names
}
