package ioctl

import (
	"github.com/thinkparq/devctl/common/devmsg"
	"golang.org/x/sys/unix"
)

// SetResponse fills the output side of m. The status and the command word are always written. Data is
// only copied when the request succeeded, the direction includes DirOut and data is non-nil: at most
// Cmd.Size() bytes go into the inline region or into the buffer the caller lent. If the lent buffer is
// missing or too short the status becomes -EFAULT, with or without data.
//
// On every other path the response data is cleared, except on success without data, where the
// handler may already have written into the response slot. The input side of m is never touched.
func SetResponse(m *devmsg.Msg, cmd Cmd, status Status, data []byte) {
	out, ok := m.DevCtlOut()
	if !ok {
		m.SetStatus(int32(status))
		return
	}
	out.Request = uint32(cmd)
	out.Err = int32(status)

	size := cmd.Size()
	succeeded := status >= 0 && cmd.Dir().HasOut()

	switch {
	case succeeded && data == nil:
		if size <= devmsg.DevCtlInlineOut {
			break
		}
		if uint32(len(m.Out.Data)) < size {
			out.Err = -int32(unix.EFAULT)
			clearOutput(m, out)
			return
		}
		m.Out.Data = m.Out.Data[:size]

	case succeeded:
		n := min(uint32(len(data)), size)
		if size <= devmsg.DevCtlInlineOut {
			copy(out.Inline[:n], data[:n])
			clear(out.Inline[n:size])
			m.Out.Data = nil
			return
		}
		if uint32(len(m.Out.Data)) < size {
			out.Err = -int32(unix.EFAULT)
			clearOutput(m, out)
			return
		}
		copy(m.Out.Data[:n], data[:n])
		clear(m.Out.Data[n:size])
		m.Out.Data = m.Out.Data[:size]

	default:
		clearOutput(m, out)
	}
}

// SetResponseErr is SetResponse without data.
func SetResponseErr(m *devmsg.Msg, cmd Cmd, status Status) {
	SetResponse(m, cmd, status, nil)
}

func clearOutput(m *devmsg.Msg, out *devmsg.DevCtlOut) {
	clear(out.Inline[:])
	m.Out.Data = nil
}
