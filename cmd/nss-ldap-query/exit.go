package main

import (
	"github.com/isometry/nss-ldap/internal/nss"
)

// Exit codes, matching getent where it defines one.
const (
	exitUnavailable = 1
	exitNotFound    = 2
	exitTryAgain    = 3
)

// ExitCode is an error carrying the process exit code.
// Quiet errors are not printed; getent prints nothing for a missing key.
type ExitCode struct {
	error
	Code  int
	Quiet bool
}

func (e ExitCode) Unwrap() error {
	return e.error
}

// exitCodeFor maps a name-service status onto an exit code.
func exitCodeFor(status nss.Status) int {
	switch status {
	case nss.StatusSuccess:
		return 0
	case nss.StatusNotFound:
		return exitNotFound
	case nss.StatusTryAgain:
		return exitTryAgain
	default:
		return exitUnavailable
	}
}

// statusError wraps err with the exit code of its status.
func statusError(err error, status nss.Status) error {
	if err == nil {
		return nil
	}
	return ExitCode{
		error: err,
		Code:  exitCodeFor(status),
		Quiet: status == nss.StatusNotFound,
	}
}

// configError wraps a configuration load failure. It is never quiet: a file
// without host or base is NotFound too, but it is not a missing key.
func configError(err error) error {
	if err == nil {
		return nil
	}
	return ExitCode{
		error: err,
		Code:  exitCodeFor(nss.StatusOf(err)),
	}
}
