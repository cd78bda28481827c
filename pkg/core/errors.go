package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Status is the closed set of outcomes a fallible kernel operation can report
type Status int

const (
	StatusSuccess Status = iota
	StatusInvalidArgument
	StatusAllocationFailure
	StatusNotSupported
	StatusArithmeticDegenerate
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusInvalidArgument:
		return "invalid argument"
	case StatusAllocationFailure:
		return "allocation failure"
	case StatusNotSupported:
		return "not supported"
	case StatusArithmeticDegenerate:
		return "arithmetic degenerate"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Sentinel errors, one per failing status. Every *Error matches its sentinel with errors.Is.
var (
	ErrInvalidArgument      = &Error{Status: StatusInvalidArgument}
	ErrAllocationFailure    = &Error{Status: StatusAllocationFailure}
	ErrNotSupported         = &Error{Status: StatusNotSupported}
	ErrArithmeticDegenerate = &Error{Status: StatusArithmeticDegenerate}
)

// Error is a status-carrying error returned by kernel operations
type Error struct {
	Status Status
	Op     string // Operation that failed, e.g. "hitlist.add"
	Detail string
	Err    error // Underlying cause, if any
}

// NewError creates a status error with a stack trace attached to its cause
func NewError(status Status, op, detail string) error {
	return &Error{Status: status, Op: op, Detail: detail, Err: errors.New(detail)}
}

// WrapError attaches a status and operation to an underlying error
func WrapError(status Status, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Status: status, Op: op, Detail: err.Error(), Err: errors.WithStack(err)}
}

func (e *Error) Error() string {
	switch {
	case e.Op == "" && e.Detail == "":
		return e.Status.String()
	case e.Op == "":
		return fmt.Sprintf("%s: %s", e.Status, e.Detail)
	case e.Detail == "":
		return fmt.Sprintf("%s: %s", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Status, e.Detail)
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same status, so sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status
}

// StatusOf maps an error to its status code. Nil maps to StatusSuccess and
// errors that carry no status map to StatusInvalidArgument.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var statusErr *Error
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}
	return StatusInvalidArgument
}
