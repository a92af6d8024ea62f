package nss

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the closed set of results a name-service lookup can report.
type Status int

const (
	StatusSuccess Status = iota
	StatusNotFound
	StatusTryAgain
	StatusUnavailable
)

// String returns the name used for the status in logs and CLI output.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "notfound"
	case StatusTryAgain:
		return "tryagain"
	case StatusUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Error carries a Status together with the operation that produced it.
type Error struct {
	Op      string // Operation that failed
	Status  Status // Status reported to the caller
	Message string // Human-readable detail
	Cause   error  // Underlying error, if any
}

// Sentinel errors for use with errors.Is. They match any *Error with the same status.
var (
	ErrNotFound    = &Error{Status: StatusNotFound}
	ErrTryAgain    = &Error{Status: StatusTryAgain}
	ErrUnavailable = &Error{Status: StatusUnavailable}
)

func (e *Error) Error() string {
	var parts []string

	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	parts = append(parts, e.Status.String())
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is one of the status sentinels matching e.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Message == "" && t.Cause == nil && t.Status == e.Status
}

// NewError creates a new status error.
func NewError(op string, status Status, message string, cause error) *Error {
	return &Error{
		Op:      op,
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}

// StatusOf returns the status carried by err.
// A nil error is success; an error without a status is treated as unavailable.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}

	var nssErr *Error
	if errors.As(err, &nssErr) {
		return nssErr.Status
	}

	return StatusUnavailable
}
