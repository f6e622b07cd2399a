// Package aldaerr defines the failure kinds surfaced by the client runtime
// and maps them to process exit codes.
package aldaerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Callers branch on the kind, not on the message.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoResponse
	KindAlreadyUp
	KindAlreadyStarting
	KindInvalidOptions
	KindNoAvailableWorker
	KindUnsuccessful
	KindParse
	KindSystem
)

func (k Kind) String() string {
	switch k {
	case KindNoResponse:
		return "no_response"
	case KindAlreadyUp:
		return "already_up"
	case KindAlreadyStarting:
		return "already_starting"
	case KindInvalidOptions:
		return "invalid_options"
	case KindNoAvailableWorker:
		return "no_available_worker"
	case KindUnsuccessful:
		return "unsuccessful"
	case KindParse:
		return "parse_error"
	case KindSystem:
		return "system_error"
	default:
		return "unknown"
	}
}

// Exit codes returned by the alda binary.
const (
	ExitSuccess     = 0
	ExitUnspecified = 1
	ExitRuntime     = 2
	ExitUser        = 3
	ExitSystem      = 4
	ExitNetwork     = 5
)

// ExitCode returns the process exit code for failures of this kind.
func (k Kind) ExitCode() int {
	switch k {
	case KindNoResponse:
		return ExitNetwork
	case KindAlreadyUp, KindAlreadyStarting, KindInvalidOptions, KindParse:
		return ExitUser
	case KindNoAvailableWorker:
		return ExitRuntime
	case KindSystem:
		return ExitSystem
	default:
		return ExitUnspecified
	}
}

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, aldaerr.ErrNoResponse) matches any NoResponse failure.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// ExitCode returns the process exit code for this failure.
func (e *Error) ExitCode() int { return e.Kind.ExitCode() }

// Sentinels for errors.Is comparisons.
var (
	ErrNoResponse        = &Error{Kind: KindNoResponse}
	ErrAlreadyUp         = &Error{Kind: KindAlreadyUp}
	ErrAlreadyStarting   = &Error{Kind: KindAlreadyStarting}
	ErrInvalidOptions    = &Error{Kind: KindInvalidOptions}
	ErrNoAvailableWorker = &Error{Kind: KindNoAvailableWorker}
	ErrUnsuccessful      = &Error{Kind: KindUnsuccessful}
	ErrParse             = &Error{Kind: KindParse}
	ErrSystem            = &Error{Kind: KindSystem}
)

func NoResponse(msg string) error        { return &Error{Kind: KindNoResponse, Msg: msg} }
func AlreadyUp(msg string) error         { return &Error{Kind: KindAlreadyUp, Msg: msg} }
func AlreadyStarting(msg string) error   { return &Error{Kind: KindAlreadyStarting, Msg: msg} }
func InvalidOptions(msg string) error    { return &Error{Kind: KindInvalidOptions, Msg: msg} }
func NoAvailableWorker(msg string) error { return &Error{Kind: KindNoAvailableWorker, Msg: msg} }
func Unsuccessful(msg string) error      { return &Error{Kind: KindUnsuccessful, Msg: msg} }
func Parse(msg string) error             { return &Error{Kind: KindParse, Msg: msg} }

// System wraps a local resource failure.
func System(msg string, err error) error {
	return &Error{Kind: KindSystem, Msg: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ExitCodeOf maps any error to an exit code. nil maps to ExitSuccess.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return KindOf(err).ExitCode()
}
