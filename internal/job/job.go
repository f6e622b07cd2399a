// Package job submits asynchronous commands (play, export) and polls the
// worker that owns them until they finish.
package job

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/client"
	"github.com/alda-lang/alda-client/internal/logging"
	"github.com/alda-lang/alda-client/internal/protocol"
)

const (
	// PollInterval spaces status requests for one job.
	PollInterval = 250 * time.Millisecond

	// BusyInterval and BusyRetries bound how long RetryBusy keeps
	// resubmitting while every worker is occupied: 10s in 500ms steps.
	BusyInterval = 500 * time.Millisecond
	BusyRetries  = int(10 * time.Second / BusyInterval)
)

// MsgNoWorkerAddress is the failure reported when a server accepts a job but
// does not say which worker took it.
const MsgNoWorkerAddress = "No worker address included in response; unable to check for status."

// Spec describes a job to submit.
type Spec struct {
	Command       string // play or export
	StatusCommand string // play-status or export-status
	Body          string
	Options       protocol.Options
}

// PlaySpec returns the spec for playing code.
func PlaySpec(code string, opts protocol.Options) Spec {
	return Spec{
		Command:       protocol.CmdPlay,
		StatusCommand: protocol.CmdPlayStatus,
		Body:          code,
		Options:       opts,
	}
}

// ExportSpec returns the spec for exporting code to a file.
func ExportSpec(code string, opts protocol.Options) Spec {
	return Spec{
		Command:       protocol.CmdExport,
		StatusCommand: protocol.CmdExportStatus,
		Body:          code,
		Options:       opts,
	}
}

// Job is a submitted job and the worker that accepted it.
type Job struct {
	ID            string
	Worker        []byte
	StatusCommand string
}

// Runner submits and polls jobs through a Sender.
type Runner struct {
	Sender   client.Sender
	Interval time.Duration
	// Notify, if set, is called with each new status while a job is pending.
	Notify func(status string)
	Logger *logging.Logger
}

// NewID returns a fresh job-id.
func NewID() string {
	return uuid.NewString()
}

// Submit sends the job's initiating command exactly once.
func (r *Runner) Submit(ctx context.Context, spec Spec) (*Job, error) {
	opts := spec.Options
	if opts.JobID == "" {
		opts.JobID = NewID()
	}

	req := &protocol.Request{
		Command: spec.Command,
		Body:    spec.Body,
		Options: &opts,
	}
	resp, err := r.Sender.Send(ctx, req, protocol.JobTimeout, protocol.JobRetries)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		if protocol.IsNoWorkerMessage(resp.Body) {
			return nil, aldaerr.NoAvailableWorker(resp.Body)
		}
		return nil, aldaerr.Unsuccessful(resp.Body)
	}
	if len(resp.WorkerToken) == 0 {
		return nil, aldaerr.Unsuccessful(MsgNoWorkerAddress)
	}

	r.Logger.Debugf("job %s accepted by worker %x", opts.JobID, resp.WorkerToken)
	return &Job{
		ID:            opts.JobID,
		Worker:        resp.WorkerToken,
		StatusCommand: spec.StatusCommand,
	}, nil
}

// Poll asks the job's worker for status until the job is no longer pending
// and returns that final reply.
func (r *Runner) Poll(ctx context.Context, j *Job) (*protocol.Response, error) {
	interval := r.Interval
	if interval <= 0 {
		interval = PollInterval
	}

	status := protocol.StatusRequested
	for {
		req := &protocol.Request{
			Command: j.StatusCommand,
			Options: &protocol.Options{JobID: j.ID},
			Worker:  j.Worker,
		}
		resp, err := r.Sender.Send(ctx, req, protocol.DefaultTimeout, protocol.DefaultRetries)
		if err != nil {
			return nil, err
		}
		if !resp.Success {
			return nil, aldaerr.Unsuccessful(resp.Body)
		}

		if !resp.Pending {
			r.Logger.Debugf("job %s finished: %s", j.ID, resp.Body)
			return resp, nil
		}

		if resp.Body != status {
			status = resp.Body
			r.Logger.Debugf("job %s: %s", j.ID, status)
			if r.Notify != nil {
				r.Notify(status)
			}
		}

		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
}

// Run submits spec and polls it to completion.
func (r *Runner) Run(ctx context.Context, spec Spec) (*protocol.Response, error) {
	j, err := r.Submit(ctx, spec)
	if err != nil {
		return nil, err
	}
	return r.Poll(ctx, j)
}

// RetryBusy calls op until it stops failing with NoAvailableWorker, sleeping
// interval between calls. After retries extra calls it returns the last
// NoAvailableWorker error.
func RetryBusy(ctx context.Context, retries int, interval time.Duration, op func(context.Context) (*protocol.Response, error)) (*protocol.Response, error) {
	var last error
	for ; retries >= 0; retries-- {
		resp, err := op(ctx)
		if !errors.Is(err, aldaerr.ErrNoAvailableWorker) {
			return resp, err
		}
		last = err
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}
	}
	return nil, last
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
