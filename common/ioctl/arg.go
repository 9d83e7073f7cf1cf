package ioctl

import (
	"encoding/binary"
	"fmt"

	"github.com/thinkparq/devctl/common/devmsg"
)

// ArgKind tells how the argument of a request is interpreted.
type ArgKind uint8

const (
	KindNone ArgKind = iota
	KindValue
	KindIn
	KindOut
	KindInOut
)

func (k ArgKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValue:
		return "value"
	case KindIn:
		return "in"
	case KindOut:
		return "out"
	case KindInOut:
		return "inout"
	default:
		return "invalid"
	}
}

// Arg is the argument passed along with a command word. The kind has to match the direction of the
// command word, see Check.
type Arg struct {
	kind ArgKind
	val  uint64
	buf  []byte
}

// NoArg is the argument of commands without data.
func NoArg() Arg {
	return Arg{kind: KindNone}
}

// Value is an argument passed by value. It is truncated to the size of the command word.
func Value(v uint64) Arg {
	return Arg{kind: KindValue, val: v}
}

// In is an input buffer the server reads from.
func In(buf []byte) Arg {
	return Arg{kind: KindIn, buf: buf}
}

// Out is an output buffer the server writes into.
func Out(buf []byte) Arg {
	return Arg{kind: KindOut, buf: buf}
}

// InOut is a buffer that is sent to the server and overwritten by its response.
func InOut(buf []byte) Arg {
	return Arg{kind: KindInOut, buf: buf}
}

func (a Arg) Kind() ArgKind {
	return a.kind
}

// Check verifies that the argument fits the command word:
//
//	DirNone, size 0     NoArg
//	DirNone, size 1..8  Value
//	DirIn               In
//	DirOut              Out
//	DirInOut            InOut
//
// Buffers have to be exactly as long as the size encoded in the command word.
func (a Arg) Check(cmd Cmd) error {
	f := Decode(cmd)

	var want ArgKind
	switch f.Dir {
	case DirNone:
		switch {
		case f.Size == 0:
			want = KindNone
		case f.Size <= 8:
			want = KindValue
		default:
			return fmt.Errorf("%w: %s passes %d bytes by value, at most 8 are supported", ErrArgMismatch, cmd, f.Size)
		}
	case DirIn:
		want = KindIn
	case DirOut:
		want = KindOut
	case DirInOut:
		want = KindInOut
	}

	if a.kind != want {
		return fmt.Errorf("%w: %s takes a %s argument, got %s", ErrArgMismatch, cmd, want, a.kind)
	}
	if want >= KindIn && uint32(len(a.buf)) != f.Size {
		return fmt.Errorf("%w: %s takes a %d byte buffer, got %d bytes", ErrArgMismatch, cmd, f.Size, len(a.buf))
	}
	return nil
}

// NewRequest builds the request message for cmd on object id. Input that fits is placed inline,
// larger input is attached. When the response does not fit inline the caller's buffer is lent for it.
func NewRequest(cmd Cmd, id uint64, arg Arg) (*devmsg.Msg, error) {
	if err := arg.Check(cmd); err != nil {
		return nil, err
	}

	m := devmsg.New(devmsg.TypeDevCtl)
	in, _ := m.DevCtlIn()
	in.Request = uint32(cmd)
	in.ID = id

	size := cmd.Size()

	switch arg.kind {
	case KindValue:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], arg.val)
		copy(in.Inline[:size], b[:size])
	case KindIn, KindInOut:
		if size <= devmsg.DevCtlInlineIn {
			copy(in.Inline[:size], arg.buf)
		} else {
			m.In.Data = arg.buf
		}
	}

	if (arg.kind == KindOut || arg.kind == KindInOut) && size > devmsg.DevCtlInlineOut {
		m.Out.Data = arg.buf
	}

	return m, nil
}

// Collect copies the response in m into the caller's buffer and converts a failure status into a
// unix.Errno.
func (a Arg) Collect(m *devmsg.Msg) error {
	out, ok := m.DevCtlOut()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotIoctl, m.Type)
	}
	if err := Status(out.Err).Err(); err != nil {
		return err
	}

	if a.kind != KindOut && a.kind != KindInOut {
		return nil
	}

	size := len(a.buf)
	if size <= devmsg.DevCtlInlineOut {
		copy(a.buf, out.Inline[:size])
		return nil
	}
	if len(m.Out.Data) < size {
		return fmt.Errorf("%w: expected %d bytes of response data, got %d", ErrMissingAttachment, size, len(m.Out.Data))
	}
	copy(a.buf, m.Out.Data[:size])
	return nil
}
