package ioctl

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/sys/unix"
)

var (
	ErrSizeTooLarge = errors.New("size exceeds the size field of the command word")
	ErrInvalidDir   = errors.New("invalid direction")
	// The message is not a device control request.
	ErrNotIoctl = errors.New("not an ioctl message")
	// The command word declares more data than the request carries.
	ErrMissingAttachment = errors.New("missing or short attachment")
	// The request carries data that does not match the command word.
	ErrSizeMismatch = errors.New("payload does not match the size of the command word")
	// The device does not implement the request. Wraps errors.ErrUnsupported.
	ErrUnsupported      = fmt.Errorf("unsupported request: %w", errors.ErrUnsupported)
	ErrAlreadyResponded = errors.New("request has already been responded to")
	// The argument passed by a caller does not match the command word.
	ErrArgMismatch = errors.New("argument does not match the command word")
)

// Status is the result code carried in a response. Zero means success, negative values are negated
// errno codes.
type Status int32

const StatusOK Status = 0

func (s Status) Error() string {
	if s >= 0 {
		return "success"
	}
	return s.errno().Error()
}

func (s Status) String() string {
	if s >= 0 {
		return fmt.Sprintf("%d", int32(s))
	}
	return fmt.Sprintf("%d (%s)", int32(s), s.errno().Error())
}

// Err converts a failure status into the corresponding unix.Errno. Returns nil for success.
func (s Status) Err() error {
	if s >= 0 {
		return nil
	}
	return s.errno()
}

// math.MinInt32 has no positive counterpart and is reported as EIO.
func (s Status) errno() unix.Errno {
	if s == math.MinInt32 {
		return unix.EIO
	}
	return unix.Errno(-s)
}

// StatusOf maps an error to the status reported to the caller.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}

	var status Status
	if errors.As(err, &status) {
		return status
	}

	switch {
	case errors.Is(err, ErrMissingAttachment):
		return -Status(unix.EFAULT)
	case errors.Is(err, ErrSizeMismatch), errors.Is(err, ErrNotIoctl),
		errors.Is(err, ErrSizeTooLarge), errors.Is(err, ErrInvalidDir), errors.Is(err, ErrArgMismatch):
		return -Status(unix.EINVAL)
	}

	// Checked before ErrUnsupported, ENOSYS and EOPNOTSUPP match it as well.
	var errno unix.Errno
	if errors.As(err, &errno) && errno != 0 {
		return -Status(errno)
	}
	if errors.Is(err, errors.ErrUnsupported) {
		return -Status(unix.ENOTTY)
	}
	return -Status(unix.EIO)
}
