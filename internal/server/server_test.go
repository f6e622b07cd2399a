package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alda-lang/alda-client/internal/aldaerr"
	"github.com/alda-lang/alda-client/internal/config"
	"github.com/alda-lang/alda-client/internal/logging"
	"github.com/alda-lang/alda-client/internal/process"
	"github.com/alda-lang/alda-client/internal/protocol"
	"github.com/alda-lang/alda-client/internal/transport/transporttest"
)

// fakeAlda plays the part of a backend server whose state the test can flip.
type fakeAlda struct {
	mu       sync.Mutex
	up       bool
	workers  int
	ackStop  bool
	events   []string
	launches [][]string
	statuses []string // play-status bodies, consumed in order
	score    *protocol.Score
}

func (f *fakeAlda) record(ev string) {
	f.events = append(f.events, ev)
}

func (f *fakeAlda) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeAlda) handle(req *protocol.Request) []*protocol.Response {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.record(req.Command)
	if !f.up {
		return nil
	}

	reply := func(r *protocol.Response) []*protocol.Response {
		if len(r.WorkerToken) == 0 {
			r.NoWorker = true
		}
		return transporttest.Reply(r)
	}

	switch req.Command {
	case protocol.CmdPing:
		return reply(&protocol.Response{Success: true, Body: "OK"})
	case protocol.CmdStatus:
		return reply(&protocol.Response{Success: true, Body: fmt.Sprintf("Server up (%d/2 workers available)", f.workers)})
	case protocol.CmdVersion:
		return reply(&protocol.Response{Success: true, Body: "1.0.0-rc85"})
	case protocol.CmdStopServer:
		f.up = false
		if !f.ackStop {
			return nil
		}
		return reply(&protocol.Response{Success: true, Body: "Shutting down..."})
	case protocol.CmdStopPlayback:
		return reply(&protocol.Response{Success: true, Body: "Stopping playback..."})
	case protocol.CmdParse:
		if req.Body == "bad" {
			return reply(&protocol.Response{Success: false, Body: "Invalid Alda syntax."})
		}
		return reply(&protocol.Response{Success: true, Body: `{"events":[]}`})
	case protocol.CmdInstruments:
		return reply(&protocol.Response{Success: true, Body: `["piano","viola"]`})
	case protocol.CmdPlay, protocol.CmdExport:
		return reply(&protocol.Response{Success: true, Pending: true, Body: "requested", JobID: req.JobID(), WorkerToken: []byte("w1")})
	case protocol.CmdPlayStatus, protocol.CmdExportStatus:
		body := protocol.StatusSuccess
		if len(f.statuses) > 0 {
			body = f.statuses[0]
			f.statuses = f.statuses[1:]
		}
		return reply(&protocol.Response{
			Success: true, Pending: body != protocol.StatusSuccess, Body: body,
			JobID: req.JobID(), WorkerToken: []byte("w1"), Score: f.score,
		})
	}
	return nil
}

func (f *fakeAlda) Launch(ctx context.Context, name string, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("launch")
	f.launches = append(f.launches, append([]string{name}, args...))
	f.up = true
	return nil
}

type harness struct {
	srv     *Server
	alda    *fakeAlda
	backend *transporttest.Backend
	out     *bytes.Buffer
	sleeps  []time.Duration
}

func newHarness(t *testing.T, alda *fakeAlda, opts Options, extra ...Option) *harness {
	t.Helper()
	h := &harness{alda: alda, out: &bytes.Buffer{}}
	h.backend = transporttest.NewBackend(alda.handle)

	if opts.Host == "" {
		opts.Host = "localhost"
	}
	if opts.Port == 0 {
		opts.Port = 27713
	}
	if opts.Timeout == 0 {
		opts.Timeout = 1
	}
	opts.NoColor = true

	options := []Option{
		WithDialer(h.backend),
		WithLauncher(alda),
		WithLister(process.ListerFunc(func(context.Context) ([]process.Record, error) { return nil, nil })),
		WithOutput(h.out),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			h.sleeps = append(h.sleeps, d)
			alda.mu.Lock()
			alda.record(fmt.Sprintf("sleep %s", d))
			alda.mu.Unlock()
			return ctx.Err()
		}),
		WithRequestBudget(20*time.Millisecond, 1),
		WithJobInterval(time.Millisecond),
	}
	h.srv = New(opts, append(options, extra...)...)
	t.Cleanup(func() { h.srv.Close() })
	return h
}

func TestRetryBudget(t *testing.T) {
	assert.Equal(t, 40, RetryBudget(10, 250*time.Millisecond))
	assert.Equal(t, 30*4, RetryBudget(30, StartupInterval))
	assert.Equal(t, 0, RetryBudget(0, ShutdownInterval))
	assert.Equal(t, 50, RetryBudget(10, 200*time.Millisecond))
}

func TestUp_AlreadyUpDoesNotLaunch(t *testing.T) {
	alda := &fakeAlda{up: true, workers: 2}
	h := newHarness(t, alda, Options{})

	err := h.srv.Up(context.Background())
	require.ErrorIs(t, err, aldaerr.ErrAlreadyUp)
	assert.Empty(t, alda.launches)
	assert.Equal(t, []string{"ping"}, alda.Events())
	assert.Equal(t, StateUp, h.srv.State())
}

func TestUp_RefusesRemoteHost(t *testing.T) {
	alda := &fakeAlda{}
	h := newHarness(t, alda, Options{Host: "music.example.com"})

	err := h.srv.Up(context.Background())
	require.ErrorIs(t, err, aldaerr.ErrInvalidOptions)
	assert.Empty(t, h.backend.Requests())
	assert.Empty(t, alda.launches)
}

func TestUp_StartsAndWaitsForWorkers(t *testing.T) {
	alda := &fakeAlda{workers: 2}
	h := newHarness(t, alda, Options{Workers: 3})

	require.NoError(t, h.srv.Up(context.Background()))
	assert.Equal(t, StateUp, h.srv.State())

	require.Len(t, alda.launches, 1)
	assert.Equal(t, []string{"", "--host", "localhost", "--port", "27713", "--workers", "3", "--alda-fingerprint", "server"}, alda.launches[0])

	out := h.out.String()
	assert.Contains(t, out, "[27713] Starting Alda server...")
	assert.Contains(t, out, "[27713] Server up ✓")
	assert.Contains(t, out, "[27713] Starting worker processes...")
	assert.Contains(t, out, "[27713] Ready ✓")
}

func TestUp_AlreadyStarting(t *testing.T) {
	alda := &fakeAlda{}
	lister := process.ListerFunc(func(context.Context) ([]process.Record, error) {
		return []process.Record{{PID: 99, Role: process.RoleServer, Port: 27713}}, nil
	})
	h := newHarness(t, alda, Options{}, WithLister(lister))

	err := h.srv.Up(context.Background())
	require.ErrorIs(t, err, aldaerr.ErrAlreadyStarting)
	assert.Empty(t, alda.launches)
}

func TestUp_ListerFailureIsOnlyAWarning(t *testing.T) {
	alda := &fakeAlda{workers: 1}
	lister := process.ListerFunc(func(context.Context) ([]process.Record, error) {
		return nil, aldaerr.System(process.MsgListFailed, errors.New("ps: not found"))
	})
	h := newHarness(t, alda, Options{}, WithLister(lister))

	require.NoError(t, h.srv.Up(context.Background()))
	assert.Len(t, alda.launches, 1)
	assert.Contains(t, h.out.String(), "WARNING Unable to detect whether or not there is already a server running on that port.")
}

func TestUp_LaunchFailure(t *testing.T) {
	alda := &fakeAlda{}
	launcher := LauncherFunc(func(context.Context, string, []string) error {
		return errors.New("exec: \"alda-server\": executable file not found in $PATH")
	})
	h := newHarness(t, alda, Options{}, WithLauncher(launcher))

	err := h.srv.Up(context.Background())
	require.ErrorIs(t, err, aldaerr.ErrSystem)
	assert.Equal(t, aldaerr.ExitSystem, aldaerr.ExitCodeOf(err))
	assert.Equal(t, StateDown, h.srv.State())
}

func TestUp_WorkersNeverReady(t *testing.T) {
	alda := &fakeAlda{workers: 0}
	h := newHarness(t, alda, Options{Timeout: 1})

	err := h.srv.Up(context.Background())
	require.ErrorIs(t, err, aldaerr.ErrNoResponse)
	assert.Equal(t, StateDown, h.srv.State())
	assert.NotContains(t, h.out.String(), "Ready")

	statusChecks := 0
	for _, ev := range alda.Events() {
		if ev == protocol.CmdStatus {
			statusChecks++
		}
	}
	assert.Equal(t, RetryBudget(1, StartupInterval)+1, statusChecks)
}

func TestDown_UnreachableSendsNothing(t *testing.T) {
	alda := &fakeAlda{}
	h := newHarness(t, alda, Options{})
	h.backend.SetRefuse(true)

	result, err := h.srv.Down(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DownAlreadyDown, result)
	assert.Empty(t, h.backend.Requests())
	assert.Contains(t, h.out.String(), "Server already down.")
}

func TestDown_SilentServerGetsNoStopRequest(t *testing.T) {
	alda := &fakeAlda{}
	h := newHarness(t, alda, Options{})

	result, err := h.srv.Down(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DownAlreadyDown, result)
	assert.NotContains(t, alda.Events(), protocol.CmdStopServer)
}

func TestDown_Acknowledged(t *testing.T) {
	alda := &fakeAlda{up: true, ackStop: true}
	h := newHarness(t, alda, Options{})

	result, err := h.srv.Down(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DownAcknowledged, result)
	assert.Equal(t, StateDown, h.srv.State())
	assert.Contains(t, h.out.String(), "Server down ✓")
}

func TestDown_NoAckCountsAsStopped(t *testing.T) {
	alda := &fakeAlda{up: true, ackStop: false}
	h := newHarness(t, alda, Options{})

	result, err := h.srv.Down(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DownSilent, result)
	assert.Equal(t, StateDown, h.srv.State())
	assert.Contains(t, h.out.String(), "Server down ✓")
}

func TestRestart_Ordering(t *testing.T) {
	alda := &fakeAlda{up: true, ackStop: true, workers: 2}
	h := newHarness(t, alda, Options{})

	require.NoError(t, h.srv.Restart(context.Background()))
	assert.Equal(t, StateUp, h.srv.State())

	events := alda.Events()
	index := func(ev string, from int) int {
		for i := from; i < len(events); i++ {
			if events[i] == ev {
				return i
			}
		}
		t.Fatalf("event %q not found after %d in %v", ev, from, events)
		return -1
	}

	stop := index(protocol.CmdStopServer, 0)
	gonePing := index(protocol.CmdPing, stop)
	settle := index("sleep "+SettleDelay.String(), gonePing)
	launch := index("launch", settle)
	readyPing := index(protocol.CmdPing, launch)
	index(protocol.CmdStatus, readyPing)

	assert.Len(t, alda.launches, 1)
	assert.Contains(t, h.out.String(), "Ready ✓")
}

func TestRestart_ShutdownTimeout(t *testing.T) {
	alda := &fakeAlda{up: true, ackStop: true}
	h := newHarness(t, alda, Options{Timeout: 1})

	// A server that keeps answering pings after acknowledging stop-server.
	h.backend.SetHandler(func(req *protocol.Request) []*protocol.Response {
		resp := alda.handle(req)
		alda.mu.Lock()
		alda.up = true
		alda.mu.Unlock()
		return resp
	})

	err := h.srv.Restart(context.Background())
	require.ErrorIs(t, err, aldaerr.ErrNoResponse)
	assert.Equal(t, "Timed out waiting for the server to shut down.", err.Error())
	assert.Empty(t, alda.launches)
}

func TestStatus(t *testing.T) {
	alda := &fakeAlda{up: true, workers: 2}
	h := newHarness(t, alda, Options{})

	report, err := h.srv.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Up)
	assert.Equal(t, "Server up (2/2 workers available)", report.Body)
	assert.Contains(t, h.out.String(), "[27713] Server up (2/2 workers available)")
}

func TestStatus_Down(t *testing.T) {
	alda := &fakeAlda{}
	h := newHarness(t, alda, Options{})

	report, err := h.srv.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Up)
	assert.Contains(t, h.out.String(), "Server down ✗")
}

func TestVersion(t *testing.T) {
	alda := &fakeAlda{up: true}
	h := newHarness(t, alda, Options{})

	v, err := h.srv.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0-rc85", v)
}

func TestPlay(t *testing.T) {
	alda := &fakeAlda{
		up:       true,
		statuses: []string{"parsing", "playing", "playing", "success"},
		score:    &protocol.Score{CurrentInstruments: []string{"piano-x1"}},
	}
	h := newHarness(t, alda, Options{})

	var instrument string
	h.srv.OnScore = func(s *protocol.Score) { instrument = s.CurrentInstrument() }

	resp, err := h.srv.Play(context.Background(), "piano: c d e", PlayOptions{From: "0:02", History: "(tempo! 90)"})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Body)
	assert.Equal(t, "piano-x1", instrument)

	out := h.out.String()
	assert.Contains(t, out, "Parsing/evaluating...")
	assert.Equal(t, 1, bytes.Count(h.out.Bytes(), []byte("Playing...")))
	assert.Contains(t, out, "Done playing.")

	play := h.backend.Requests()[0]
	assert.Equal(t, protocol.CmdPlay, play.Command)
	assert.Equal(t, "0:02", play.Options.From)
	assert.Equal(t, "(tempo! 90)", play.Options.History)
	assert.NotEmpty(t, play.JobID())
}

func TestPlayFromRepl_RetriesWhileBusy(t *testing.T) {
	alda := &fakeAlda{up: true}
	h := newHarness(t, alda, Options{})

	busy := 1
	h.backend.SetHandler(func(req *protocol.Request) []*protocol.Response {
		if req.Command == protocol.CmdPlay && busy > 0 {
			busy--
			return transporttest.Reply(&protocol.Response{Success: false, Body: protocol.MsgWorkersBusy, NoWorker: true})
		}
		return alda.handle(req)
	})

	resp, err := h.srv.PlayFromRepl(context.Background(), "piano: c", PlayOptions{})
	require.NoError(t, err)
	assert.Equal(t, "success", resp.Body)
}

func TestStopPlayback(t *testing.T) {
	alda := &fakeAlda{up: true}
	h := newHarness(t, alda, Options{})

	require.NoError(t, h.srv.StopPlayback(context.Background()))
	assert.Contains(t, h.out.String(), "Stopping playback...")
}

func TestParse(t *testing.T) {
	alda := &fakeAlda{up: true}
	h := newHarness(t, alda, Options{})

	_, err := h.srv.Parse(context.Background(), "piano: c", "xml")
	require.ErrorIs(t, err, aldaerr.ErrInvalidOptions)

	body, err := h.srv.Parse(context.Background(), "piano: c", protocol.OutputEvents)
	require.NoError(t, err)
	assert.Equal(t, `{"events":[]}`, body)

	_, err = h.srv.Parse(context.Background(), "bad", protocol.OutputData)
	require.ErrorIs(t, err, aldaerr.ErrParse)
	assert.Equal(t, aldaerr.ExitUser, aldaerr.ExitCodeOf(err))
}

func TestInstruments(t *testing.T) {
	alda := &fakeAlda{up: true}
	h := newHarness(t, alda, Options{})

	names, err := h.srv.Instruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"piano", "viola"}, names)
}

func TestExport(t *testing.T) {
	alda := &fakeAlda{up: true, statuses: []string{"parsing", "success"}}
	h := newHarness(t, alda, Options{})

	_, err := h.srv.Export(context.Background(), "piano: c", "wav", "out.wav")
	require.ErrorIs(t, err, aldaerr.ErrInvalidOptions)

	_, err = h.srv.Export(context.Background(), "piano: c", "", "")
	require.ErrorIs(t, err, aldaerr.ErrInvalidOptions)

	path, err := h.srv.Export(context.Background(), "piano: c", "", "out.mid")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))

	export := h.backend.Requests()[0]
	assert.Equal(t, protocol.CmdExport, export.Command)
	assert.Equal(t, protocol.ExportMIDI, export.Options.As)
	assert.Equal(t, path, export.Options.Filename)
	assert.Contains(t, h.out.String(), "Exported score to "+path)
}

func TestVerbose_LogsTrafficWithoutLogger(t *testing.T) {
	h := newHarness(t, &fakeAlda{up: true}, Options{Verbose: true})

	_, err := h.srv.Version(context.Background())
	require.NoError(t, err)
	assert.Contains(t, h.out.String(), "DEBUG: -> 27713")

	quiet := newHarness(t, &fakeAlda{up: true}, Options{})
	_, err = quiet.srv.Version(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, quiet.out.String(), "DEBUG")
}

func TestVerbose_ExplicitLoggerWins(t *testing.T) {
	var logs bytes.Buffer
	h := newHarness(t, &fakeAlda{up: true}, Options{Verbose: true},
		WithLogger(logging.NewWriter(&logs, config.LogDebug)))

	_, err := h.srv.Version(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, h.out.String(), "DEBUG")
	assert.Contains(t, logs.String(), "DEBUG: -> 27713")
}
