package builderror

import (
	stderrors "errors"
)

// ErrBuildCanceled is matched by errors.Is for every CancelationError.
var ErrBuildCanceled = stderrors.New("Build Canceled")

// CancelationError ends a build that was interrupted by cleanup. It is
// silent: callers should not report it as a failure.
type CancelationError struct {
	// Cause is what interrupted the build, usually context.Canceled.
	Cause error
}

func (e *CancelationError) Error() string { return ErrBuildCanceled.Error() }

func (e *CancelationError) Unwrap() error { return e.Cause }

func (e *CancelationError) Is(target error) bool { return target == ErrBuildCanceled }

// Silent reports that the error is the result of a deliberate teardown.
func (e *CancelationError) Silent() bool { return true }

// IsSilent reports whether err, or an error it wraps, is marked silent.
func IsSilent(err error) bool {
	var s interface{ Silent() bool }
	return stderrors.As(err, &s) && s.Silent()
}

// NodeSetupError reports a plugin whose one-time setup failed while the
// builder was being constructed.
type NodeSetupError struct {
	Err     error
	Subject Subject
}

// NewSetupError attributes err to t.
func NewSetupError(err error, t Target) *NodeSetupError {
	return &NodeSetupError{Err: err, Subject: t.ErrorSubject()}
}

func (e *NodeSetupError) Error() string {
	return e.Err.Error() + "\nat " + e.Subject.Label + "\n" + Marker + "\n" + e.Subject.InstantiationStack
}

func (e *NodeSetupError) Unwrap() error { return e.Err }
