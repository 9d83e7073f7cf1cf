package ioctl

import (
	"fmt"

	"github.com/thinkparq/devctl/common/devmsg"
)

// Request is a decoded device control request.
type Request struct {
	Cmd Cmd
	// The object the request is addressed to.
	ID uint64
	// PID of the caller as stamped by the transport.
	Sender uint32
	// The input payload, exactly Cmd.Size() bytes, or nil if the command carries no input. Aliases the
	// message, so it must not be retained after the response has been built.
	Input []byte
	// The response region. Only set by UnpackEx and only when the direction includes DirOut.
	Output *Slot
}

// Unpack decodes the request carried by m and locates its input payload.
func Unpack(m *devmsg.Msg) (Request, error) {
	return unpack(m, false)
}

// UnpackEx is Unpack that additionally locates the response region for commands that return data.
func UnpackEx(m *devmsg.Msg) (Request, error) {
	return unpack(m, true)
}

func unpack(m *devmsg.Msg, withOutput bool) (Request, error) {
	in, ok := m.DevCtlIn()
	if !ok {
		return Request{}, fmt.Errorf("%w: %s", ErrNotIoctl, m.Type)
	}

	cmd := Cmd(in.Request)
	req := Request{
		Cmd:    cmd,
		ID:     in.ID,
		Sender: SenderPID(m),
	}

	size := cmd.Size()
	dir := cmd.Dir()

	switch {
	case !dir.HasIn() && m.In.Data != nil:
		return Request{}, fmt.Errorf("%w: %s carries no input, attachment has %d bytes", ErrSizeMismatch, cmd, len(m.In.Data))

	case dir.HasIn():
		input, err := inputOf(m, in, cmd)
		if err != nil {
			return Request{}, err
		}
		req.Input = input

	case dir == DirNone && size > 0:
		// Passed by value, always inline
		if size > devmsg.DevCtlInlineIn {
			return Request{}, fmt.Errorf("%w: %s passes %d bytes by value, at most %d fit", ErrSizeMismatch, cmd, size, devmsg.DevCtlInlineIn)
		}
		req.Input = in.Inline[:size:size]
	}

	if withOutput && dir.HasOut() {
		slot, err := outputOf(m, cmd)
		if err != nil {
			return Request{}, err
		}
		req.Output = slot
	}

	return req, nil
}

// An attachment takes precedence over the inline region. The attachment has to match the size of the
// command word exactly.
func inputOf(m *devmsg.Msg, in *devmsg.DevCtlIn, cmd Cmd) ([]byte, error) {
	size := cmd.Size()

	if m.In.Data != nil {
		switch {
		case uint32(len(m.In.Data)) < size:
			return nil, fmt.Errorf("%w: %s declares %d bytes, attachment has %d", ErrMissingAttachment, cmd, size, len(m.In.Data))
		case uint32(len(m.In.Data)) > size:
			return nil, fmt.Errorf("%w: %s declares %d bytes, attachment has %d", ErrSizeMismatch, cmd, size, len(m.In.Data))
		}
		return m.In.Data, nil
	}

	if size > devmsg.DevCtlInlineIn {
		return nil, fmt.Errorf("%w: %s declares %d bytes but has no attachment", ErrMissingAttachment, cmd, size)
	}
	return in.Inline[:size:size], nil
}

func outputOf(m *devmsg.Msg, cmd Cmd) (*Slot, error) {
	size := cmd.Size()

	if size <= devmsg.DevCtlInlineOut {
		out, _ := m.DevCtlOut()
		return &Slot{buf: out.Inline[:size:size], inline: true}, nil
	}

	if uint32(len(m.Out.Data)) < size {
		return nil, fmt.Errorf("%w: %s returns %d bytes, lent buffer has %d", ErrMissingAttachment, cmd, size, len(m.Out.Data))
	}
	return &Slot{buf: m.Out.Data[:size:size]}, nil
}

// SenderPID returns the PID of the process that sent m. The value is stamped by the transport,
// nothing in the payload can influence it.
func SenderPID(m *devmsg.Msg) uint32 {
	return m.Sender()
}
