package protocol

import "time"

// Commands understood by an Alda server.
const (
	CmdPing         = "ping"
	CmdStatus       = "status"
	CmdVersion      = "version"
	CmdPlay         = "play"
	CmdPlayStatus   = "play-status"
	CmdExport       = "export"
	CmdExportStatus = "export-status"
	CmdStopPlayback = "stop-playback"
	CmdStopServer   = "stop-server"
	CmdParse        = "parse"
	CmdInstruments  = "instruments"
)

// Job statuses reported in the body of a status reply.
const (
	StatusRequested = "requested"
	StatusParsing   = "parsing"
	StatusPlaying   = "playing"
	StatusExporting = "exporting"
	StatusSuccess   = "success"
)

// Parse output modes.
const (
	OutputData   = "data"
	OutputEvents = "events"
)

// ExportMIDI is the only export format.
const ExportMIDI = "midi"

// Request timing used when the caller has no stronger opinion.
const (
	DefaultTimeout = 500 * time.Millisecond
	DefaultRetries = 10

	// Job-initiating commands are sent exactly once.
	JobTimeout = 3000 * time.Millisecond
	JobRetries = 0
)

// Fingerprint is the argument that marks a process as started by this client.
const Fingerprint = "alda-fingerprint"

// Body fragments the server uses to say it has no free worker.
const (
	MsgNoWorkersYet = "No worker processes are ready yet"
	MsgWorkersBusy  = "All worker processes are currently busy"
)
