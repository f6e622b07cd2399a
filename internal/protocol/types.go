package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Options travel in the "options" field of a request envelope.
type Options struct {
	JobID    string `json:"job-id,omitempty"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Output   string `json:"output,omitempty"`
	As       string `json:"as,omitempty"`
	Filename string `json:"filename,omitempty"`
	History  string `json:"history,omitempty"`
}

// Request is one command addressed to a server, optionally routed to a
// specific worker.
type Request struct {
	Command string   `json:"command"`
	Body    string   `json:"body,omitempty"`
	Options *Options `json:"options,omitempty"`

	// Worker is the routing token of the worker that owns a job.
	Worker []byte `json:"-"`
}

// JobID returns the job-id carried by the request, if any.
func (r *Request) JobID() string {
	if r.Options == nil {
		return ""
	}
	return r.Options.JobID
}

// Frames encodes the request as [envelope, worker?, command].
func (r *Request) Frames() ([][]byte, error) {
	envelope, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", r.Command, err)
	}
	frames := [][]byte{envelope}
	if len(r.Worker) > 0 {
		frames = append(frames, r.Worker)
	}
	return append(frames, []byte(r.Command)), nil
}

// Score is the snapshot of the score in progress that a worker attaches to
// play replies.
type Score struct {
	ChordMode          *bool    `json:"chord-mode,omitempty"`
	CurrentInstruments []string `json:"current-instruments,omitempty"`
}

// CurrentInstrument returns the first current instrument, or "".
func (s *Score) CurrentInstrument() string {
	if s == nil || len(s.CurrentInstruments) == 0 {
		return ""
	}
	return s.CurrentInstruments[0]
}

// Response is one decoded server reply.
type Response struct {
	Success  bool   `json:"success"`
	Pending  bool   `json:"pending"`
	Signal   string `json:"signal,omitempty"`
	Body     string `json:"body"`
	JobID    string `json:"job-id,omitempty"`
	Score    *Score `json:"score,omitempty"`
	NoWorker bool   `json:"noWorker,omitempty"`

	// WorkerToken identifies the worker that produced the reply. Empty when
	// NoWorker is set.
	WorkerToken []byte `json:"-"`
}

// CurrentInstrument returns the score's current instrument, if any.
func (r *Response) CurrentInstrument() string {
	return r.Score.CurrentInstrument()
}

// ErrEmptyReply is returned for a reply with no JSON frame.
var ErrEmptyReply = errors.New("empty reply")

// ParseResponse decodes a reply of the form [envelope, ""?, json, worker?].
// The leading routing envelope is discarded along with an optional empty
// delimiter frame.
func ParseResponse(frames [][]byte) (*Response, error) {
	if len(frames) < 2 {
		return nil, ErrEmptyReply
	}
	rest := frames[1:]
	if len(rest[0]) == 0 {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return nil, ErrEmptyReply
	}

	var resp Response
	if err := json.Unmarshal(rest[0], &resp); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if !resp.NoWorker && len(rest) > 1 {
		resp.WorkerToken = rest[1]
	}
	return &resp, nil
}
