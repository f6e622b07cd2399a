package protocol

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestRequest_Frames(t *testing.T) {
	req := &Request{
		Command: CmdPlayStatus,
		Options: &Options{JobID: "J1"},
		Worker:  []byte{0x00, 0x6b, 0x8b},
	}

	frames, err := req.Frames()
	if err != nil {
		t.Fatalf("Frames() error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}

	var envelope map[string]interface{}
	if err := json.Unmarshal(frames[0], &envelope); err != nil {
		t.Fatalf("envelope is not json: %v", err)
	}
	if envelope["command"] != CmdPlayStatus {
		t.Errorf("command = %v, want %q", envelope["command"], CmdPlayStatus)
	}
	opts, _ := envelope["options"].(map[string]interface{})
	if opts["job-id"] != "J1" {
		t.Errorf("options.job-id = %v, want J1", opts["job-id"])
	}
	if _, ok := envelope["body"]; ok {
		t.Errorf("empty body should be omitted, got %s", frames[0])
	}
	if !bytes.Equal(frames[1], req.Worker) {
		t.Errorf("worker frame = %v, want %v", frames[1], req.Worker)
	}
	if string(frames[2]) != CmdPlayStatus {
		t.Errorf("trailing frame = %q, want %q", frames[2], CmdPlayStatus)
	}
}

func TestRequest_FramesWithoutWorker(t *testing.T) {
	req := &Request{Command: CmdPing}

	frames, err := req.Frames()
	if err != nil {
		t.Fatalf("Frames() error: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if string(frames[0]) != `{"command":"ping"}` {
		t.Errorf("envelope = %s", frames[0])
	}
	if req.JobID() != "" {
		t.Errorf("JobID() = %q, want empty", req.JobID())
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name       string
		frames     [][]byte
		wantBody   string
		wantJobID  string
		wantWorker string
		wantErr    bool
	}{
		{
			name: "delimiter and worker",
			frames: [][]byte{
				[]byte("addr"), {},
				[]byte(`{"success":true,"pending":true,"body":"requested","job-id":"J1"}`),
				[]byte("worker-7"),
			},
			wantBody:   "requested",
			wantJobID:  "J1",
			wantWorker: "worker-7",
		},
		{
			name: "no delimiter",
			frames: [][]byte{
				[]byte("addr"),
				[]byte(`{"success":true,"body":"pong"}`),
				[]byte("worker-1"),
			},
			wantBody:   "pong",
			wantWorker: "worker-1",
		},
		{
			name: "noWorker ignores trailing frame",
			frames: [][]byte{
				[]byte("addr"), {},
				[]byte(`{"success":true,"body":"Server up","noWorker":true}`),
				[]byte("ignored"),
			},
			wantBody: "Server up",
		},
		{
			name:    "envelope only",
			frames:  [][]byte{[]byte("addr")},
			wantErr: true,
		},
		{
			name:    "delimiter but no json",
			frames:  [][]byte{[]byte("addr"), {}},
			wantErr: true,
		},
		{
			name:    "invalid json",
			frames:  [][]byte{[]byte("addr"), []byte("not json")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse(tt.frames)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", resp)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse() error: %v", err)
			}
			if resp.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", resp.Body, tt.wantBody)
			}
			if resp.JobID != tt.wantJobID {
				t.Errorf("JobID = %q, want %q", resp.JobID, tt.wantJobID)
			}
			if string(resp.WorkerToken) != tt.wantWorker {
				t.Errorf("WorkerToken = %q, want %q", resp.WorkerToken, tt.wantWorker)
			}
		})
	}
}

func TestResponse_CurrentInstrument(t *testing.T) {
	resp, err := ParseResponse([][]byte{
		[]byte("addr"),
		[]byte(`{"success":true,"body":"success","score":{"chord-mode":false,"current-instruments":["piano-abc12","bass-xyz"]}}`),
	})
	if err != nil {
		t.Fatalf("ParseResponse() error: %v", err)
	}
	if got := resp.CurrentInstrument(); got != "piano-abc12" {
		t.Errorf("CurrentInstrument() = %q, want piano-abc12", got)
	}
	if resp.Score.ChordMode == nil || *resp.Score.ChordMode {
		t.Errorf("chord mode should be present and false")
	}

	empty := &Response{}
	if got := empty.CurrentInstrument(); got != "" {
		t.Errorf("CurrentInstrument() without score = %q, want empty", got)
	}
}
