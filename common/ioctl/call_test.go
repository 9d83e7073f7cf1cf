package ioctl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkparq/devctl/common/devmsg"
	"golang.org/x/sys/unix"
)

func TestCallExecute(t *testing.T) {
	m, _ := newDevCtl(FIONREAD, 1)
	m.SetSender(55)

	call, err := Begin(m)
	require.NoError(t, err)
	assert.Equal(t, StateUnpacked, call.State())

	var slot *Slot
	err = call.Execute(func(req *Request) ([]byte, error) {
		assert.Equal(t, StateExecuting, call.State())
		assert.EqualValues(t, 55, req.Sender)
		slot = req.Output
		return []byte{10, 0, 0, 0}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateResponded, call.State())

	out, _ := m.DevCtlOut()
	assert.EqualValues(t, 0, out.Err)
	assert.EqualValues(t, FIONREAD, out.Request)
	assert.Equal(t, []byte{10, 0, 0, 0}, out.Inline[:4])

	// The slot is no longer usable
	assert.Nil(t, slot.Bytes())

	// Exactly once
	assert.ErrorIs(t, call.Respond(-1, nil), ErrAlreadyResponded)
	assert.ErrorIs(t, call.Fail(assert.AnError), ErrAlreadyResponded)
	assert.ErrorIs(t, call.Execute(func(*Request) ([]byte, error) {
		t.Fatal("handler must not run twice")
		return nil, nil
	}), ErrAlreadyResponded)
	assert.EqualValues(t, 0, m.Status())
}

func TestCallHandlerError(t *testing.T) {
	m, _ := newDevCtl(FIONREAD, 1)

	call, err := Begin(m)
	require.NoError(t, err)

	err = call.Execute(func(req *Request) ([]byte, error) {
		return []byte{1, 2, 3, 4}, Status(-5)
	})
	assert.Equal(t, Status(-5), err)
	assert.EqualValues(t, -5, m.Status())
	out, _ := m.DevCtlOut()
	assert.Equal(t, [devmsg.DevCtlInlineOut]byte{}, out.Inline)
	assert.Nil(t, m.Out.Data)

	m, _ = newDevCtl(TIOCSPTLCK, 1)
	call, err = Begin(m)
	require.NoError(t, err)
	_ = call.Execute(func(req *Request) ([]byte, error) {
		return nil, fmt.Errorf("unknown request %s: %w", req.Cmd, ErrUnsupported)
	})
	assert.EqualValues(t, -int32(unix.ENOTTY), m.Status())
}

func TestCallHandlerResponds(t *testing.T) {
	m, _ := newDevCtl(TIOCGPTN, 1)

	call, err := Begin(m)
	require.NoError(t, err)

	err = call.Execute(func(req *Request) ([]byte, error) {
		assert.NoError(t, call.Respond(StatusOK, []byte{7, 0, 0, 0}))
		return nil, Status(-1)
	})
	assert.Error(t, err)

	// The first response is kept
	assert.EqualValues(t, 0, m.Status())
	out, _ := m.DevCtlOut()
	assert.Equal(t, []byte{7, 0, 0, 0}, out.Inline[:4])
}

func TestBeginMalformed(t *testing.T) {
	cmd := IOW('x', 1, 100)
	m, _ := newDevCtl(cmd, 1)
	m.In.Data = make([]byte, 10)

	call, err := Begin(m)
	assert.ErrorIs(t, err, ErrMissingAttachment)
	require.NotNil(t, call)
	assert.Equal(t, StateResponded, call.State())
	assert.EqualValues(t, -int32(unix.EFAULT), m.Status())
	out, _ := m.DevCtlOut()
	assert.EqualValues(t, cmd, out.Request)

	assert.ErrorIs(t, call.Execute(func(*Request) ([]byte, error) {
		t.Fatal("handler must not run for malformed requests")
		return nil, nil
	}), ErrAlreadyResponded)

	// An attachment on a command without input
	m, _ = newDevCtl(FIONREAD, 1)
	m.In.Data = make([]byte, 100)
	call, err = Begin(m)
	assert.ErrorIs(t, err, ErrSizeMismatch)
	assert.Equal(t, StateResponded, call.State())
	assert.EqualValues(t, -int32(unix.EINVAL), m.Status())
	assert.ErrorIs(t, call.Execute(func(*Request) ([]byte, error) {
		t.Fatal("handler must not run for malformed requests")
		return nil, nil
	}), ErrAlreadyResponded)

	// Not an ioctl at all
	m = devmsg.New(devmsg.TypeWrite)
	call, err = Begin(m)
	assert.ErrorIs(t, err, ErrNotIoctl)
	assert.Equal(t, StateResponded, call.State())
	assert.EqualValues(t, -int32(unix.EINVAL), m.Status())
}

func TestCallFail(t *testing.T) {
	m, _ := newDevCtl(IO('x', 1), 1)

	call, err := Begin(m)
	require.NoError(t, err)
	require.NoError(t, call.Fail(unix.EBUSY))
	assert.EqualValues(t, -int32(unix.EBUSY), m.Status())
	assert.ErrorIs(t, call.Fail(unix.EBUSY), ErrAlreadyResponded)
}
