package model

import (
	"errors"
	"fmt"
)

// SourceErrorKind classifies a failure to obtain a task snapshot.
type SourceErrorKind int

const (
	// ProcessInvocationFailed: the task command could not be started or
	// exited with an error, or the data file could not be read.
	ProcessInvocationFailed SourceErrorKind = iota
	// MalformedPayload: data was read but is not a task export.
	MalformedPayload
)

var (
	ErrProcessInvocationFailed = errors.New("task source invocation failed")
	ErrMalformedPayload        = errors.New("malformed task payload")
)

func (k SourceErrorKind) String() string {
	switch k {
	case ProcessInvocationFailed:
		return "process invocation failed"
	case MalformedPayload:
		return "malformed payload"
	default:
		return fmt.Sprintf("source error kind %d", int(k))
	}
}

func (k SourceErrorKind) sentinel() error {
	if k == MalformedPayload {
		return ErrMalformedPayload
	}
	return ErrProcessInvocationFailed
}

// SourceError is returned by task sources. It matches
// ErrProcessInvocationFailed or ErrMalformedPayload with errors.Is.
type SourceError struct {
	Kind SourceErrorKind
	Op   string // what was being done, e.g. "task export"
	Err  error
}

// NewSourceError wraps err with a kind and operation.
func NewSourceError(kind SourceErrorKind, op string, err error) *SourceError {
	return &SourceError{Kind: kind, Op: op, Err: err}
}

func (e *SourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *SourceError) Is(target error) bool {
	return target == e.Kind.sentinel()
}
