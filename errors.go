package raftlog

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kind sentinels. Callers distinguish failure classes with
// errors.Is(err, raftlog.ErrIO) and friends rather than type-asserting on
// an exported error struct.
var (
	// ErrIO covers failures talking to the underlying filesystem: short
	// reads/writes, failed fsync, failed truncate.
	ErrIO = errors.New("io error")
	// ErrCorruptHeader means the RAFTLOG header record is missing,
	// unparsable, or carries a version this build does not understand.
	ErrCorruptHeader = errors.New("corrupt header")
	// ErrInvalidArgument means a caller passed an argument that violates
	// a documented precondition (a zero from_index to Delete, or one below
	// the first index).
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvariantViolation means an operation would break one of the
	// log's ordering invariants (a term regression on Append or SetTerm).
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrNotFound names the case of a lookup that lands outside the log's
	// valid index range. No operation in this package returns it: Get
	// reports that case by returning a nil *EntryRef.
	ErrNotFound = errors.New("not found")
)

// opError pairs an operation name with one of the sentinels above and an
// optional cause, matching the wrapped-sentinel style the rest of the
// ambient stack uses for its own errors.
type opError struct {
	op    string
	kind  error
	cause error
}

func (e *opError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("raftlog: %s: %v: %v", e.op, e.kind, e.cause)
	}
	return fmt.Sprintf("raftlog: %s: %v", e.op, e.kind)
}

func (e *opError) Unwrap() error { return e.cause }

func (e *opError) Is(target error) bool { return target == e.kind }

// Cause implements the interface github.com/pkg/errors.Cause looks for, so
// callers can unwrap to the root cause the same way the rest of the
// ambient stack's pkg/errors-wrapped errors do.
func (e *opError) Cause() error { return e.cause }

func ioErr(op string, cause error) error {
	return &opError{op: op, kind: ErrIO, cause: errors.WithStack(cause)}
}

func corruptHeaderErr(op string, cause error) error {
	return &opError{op: op, kind: ErrCorruptHeader, cause: cause}
}

func invalidArgErr(op, msg string) error {
	return &opError{op: op, kind: ErrInvalidArgument, cause: errors.New(msg)}
}

func invariantErr(op, msg string) error {
	return &opError{op: op, kind: ErrInvariantViolation, cause: errors.New(msg)}
}
