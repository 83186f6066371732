package errorutil

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures raised while analyzing a ticket.
type ErrorKind int

const (
	// KindFatal aborts the analysis.
	KindFatal ErrorKind = iota
	// KindRetryable is a transient remote failure worth another attempt.
	KindRetryable
	// KindRecoverable is captured as an observation and does not stop the loop.
	KindRecoverable
	// KindMalformedResponse means a structured response could not be parsed.
	KindMalformedResponse
)

func (k ErrorKind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindRecoverable:
		return "recoverable"
	case KindMalformedResponse:
		return "malformed_response"
	default:
		return "fatal"
	}
}

// AgentError carries the kind and the failing operation.
type AgentError struct {
	Kind ErrorKind
	Op   string
	Raw  string
	Err  error
}

func (e *AgentError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *AgentError) Unwrap() error {
	return e.Err
}

func Retryable(op string, err error) error {
	return &AgentError{Kind: KindRetryable, Op: op, Err: err}
}

func Recoverable(op string, err error) error {
	return &AgentError{Kind: KindRecoverable, Op: op, Err: err}
}

func Fatal(op string, err error) error {
	return &AgentError{Kind: KindFatal, Op: op, Err: err}
}

// Malformed keeps the raw payload so callers can log what was rejected.
func Malformed(op, raw string, err error) error {
	return &AgentError{Kind: KindMalformedResponse, Op: op, Raw: raw, Err: err}
}

// KindOf reports the kind of err. Untyped errors are fatal.
func KindOf(err error) ErrorKind {
	var agentErr *AgentError
	if errors.As(err, &agentErr) {
		return agentErr.Kind
	}
	return KindFatal
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	return err != nil && KindOf(err) == KindRetryable
}
