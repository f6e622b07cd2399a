package process

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// PSLister reads the process table with ps(1).
type PSLister struct {
	// Run returns the output of ps; nil means exec ps.
	Run func(ctx context.Context) ([]byte, error)
}

// List implements Lister.
func (l *PSLister) List(ctx context.Context) ([]Record, error) {
	run := l.Run
	if run == nil {
		run = runPS
	}
	out, err := run(ctx)
	if err != nil {
		return nil, err
	}
	return ParsePS(out)
}

func runPS(ctx context.Context) ([]byte, error) {
	// pid= and args= drop the header; ww stops truncation of long command lines.
	return exec.CommandContext(ctx, "ps", "axww", "-o", "pid=,args=").Output()
}

// ParsePS parses "PID ARGS..." lines and keeps the fingerprinted ones. A
// line the scanner cannot hold fails the whole listing rather than hiding
// the processes after it.
func ParsePS(out []byte) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		if rec, ok := ParseCommandLine(pid, fields[1:]); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ps output: %w", err)
	}
	return records, nil
}
