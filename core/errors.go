package core

import "errors"

// Error taxonomy surfaced to callers. Each sentinel classifies a failure so
// clients can distinguish "fix your input" from "try again later". Wrap with
// fmt.Errorf("%w: ...") to attach detail while preserving classification.
var (
	// ErrInvalidInput marks blank or malformed caller-supplied data. Never retried.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks a reference to an unknown agent, session or server id.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a duplicate identifier on create or update.
	ErrConflict = errors.New("conflict")
	// ErrUpstream marks a model or remote tool server failure. The core does
	// not retry; retrying a tool-calling loop risks duplicate side effects.
	ErrUpstream = errors.New("upstream failure")
	// ErrStreamClosed marks a caller that disconnected mid-stream. It does not
	// affect server-side persistence.
	ErrStreamClosed = errors.New("stream closed")
)

// Code is a stable classification string for an error.
type Code string

const (
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUpstream     Code = "upstream_failure"
	CodeStreamClosed Code = "stream_closed"
	CodeInternal     Code = "internal"
)

// CodeOf classifies err against the taxonomy. Unrecognized errors map to
// CodeInternal.
func CodeOf(err error) Code {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrUpstream):
		return CodeUpstream
	case errors.Is(err, ErrStreamClosed):
		return CodeStreamClosed
	default:
		return CodeInternal
	}
}
