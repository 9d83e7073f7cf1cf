package util

import (
	"errors"

	"golang.org/x/sys/unix"
)

// CtlError contains an actual error and the code the tool should exit with.
type CtlError struct {
	inner    error
	exitCode CtlExitCode
}

type CtlExitCode int

const (
	Success CtlExitCode = iota
	GeneralError
	// The device server answered the call with a failure status.
	DeviceError
)

func (c CtlExitCode) String() string {
	switch c {
	case Success:
		return "Success"
	case GeneralError:
		return "General Error"
	case DeviceError:
		return "Device Error"
	default:
		return "Unknown"
	}
}

// NewCtlError wraps err together with the exit code. It is meant to be returned from a command, the
// app then exits with the given code.
func NewCtlError(err error, exitCode CtlExitCode) CtlError {
	return CtlError{inner: err, exitCode: exitCode}
}

// ExitCodeOf returns the exit code for an error returned by a command.
func ExitCodeOf(err error) CtlExitCode {
	if err == nil {
		return Success
	}
	var ctlErr CtlError
	if errors.As(err, &ctlErr) {
		return ctlErr.exitCode
	}
	var errno unix.Errno
	if errors.As(err, &errno) {
		return DeviceError
	}
	return GeneralError
}

func (err CtlError) GetExitCode() int {
	return int(err.exitCode)
}

func (err CtlError) Error() string {
	return err.inner.Error()
}

func (err CtlError) Unwrap() error {
	return err.inner
}
