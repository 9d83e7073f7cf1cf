package devsrv

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkparq/devctl/common/devmsg"
	"github.com/thinkparq/devctl/common/ioctl"
	"github.com/thinkparq/devctl/common/port"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// A device that only implements Ioctler.
type ioctlOnly struct {
	calls int
}

func (d *ioctlOnly) Ioctl(ctx context.Context, req *ioctl.Request) ([]byte, error) {
	d.calls++
	if req.Cmd == ioctl.FIONREAD {
		return []byte{1, 2, 3, 4}, nil
	}
	return nil, ioctl.Status(-5)
}

func TestHandleIoctl(t *testing.T) {
	dev := &ioctlOnly{}
	s := New(zap.NewNop(), nil, dev, Config{})
	ctx := context.Background()

	m, err := ioctl.NewRequest(ioctl.FIONREAD, 0, ioctl.Out(make([]byte, 4)))
	require.NoError(t, err)
	s.Handle(ctx, m)
	assert.EqualValues(t, 0, m.Status())
	out, _ := m.DevCtlOut()
	assert.Equal(t, []byte{1, 2, 3, 4}, out.Inline[:4])

	// Handler error -5 without data
	m, err = ioctl.NewRequest(ioctl.IO('x', 1), 0, ioctl.NoArg())
	require.NoError(t, err)
	s.Handle(ctx, m)
	assert.EqualValues(t, -5, m.Status())
	assert.Nil(t, m.Out.Data)

	// Malformed requests never reach the device
	calls := dev.calls
	m, err = ioctl.NewRequest(ioctl.IOW('x', 1, 100), 0, ioctl.In(make([]byte, 100)))
	require.NoError(t, err)
	m.In.Data = m.In.Data[:50]
	s.Handle(ctx, m)
	assert.EqualValues(t, -int32(unix.EFAULT), m.Status())
	assert.Equal(t, calls, dev.calls)
}

func TestHandleUnsupported(t *testing.T) {
	s := New(zap.NewNop(), nil, struct{}{}, Config{})
	ctx := context.Background()

	m, err := ioctl.NewRequest(ioctl.FIONREAD, 0, ioctl.Out(make([]byte, 4)))
	require.NoError(t, err)
	s.Handle(ctx, m)
	assert.EqualValues(t, -int32(unix.ENOTTY), m.Status())

	for _, typ := range []devmsg.Type{devmsg.TypeOpen, devmsg.TypeClose, devmsg.TypeRead, devmsg.TypeWrite,
		devmsg.TypeTruncate, devmsg.TypeCreate, devmsg.TypeLookup, devmsg.TypeGetAttr} {
		m := devmsg.New(typ)
		s.Handle(ctx, m)
		assert.EqualValues(t, -int32(unix.ENOSYS), m.Status(), typ.String())
	}

	// Only Ioctler
	s = New(zap.NewNop(), nil, &ioctlOnly{}, Config{})
	m = devmsg.New(devmsg.TypeRead)
	s.Handle(ctx, m)
	assert.EqualValues(t, -int32(unix.ENOSYS), m.Status())
}

type memDevice struct {
	mu   sync.Mutex
	data []byte
	pids []uint32
}

func (d *memDevice) Read(ctx context.Context, oid devmsg.OID, offs int64, buf []byte, pid uint32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if offs > int64(len(d.data)) {
		return 0, unix.EINVAL
	}
	return copy(buf, d.data[offs:]), nil
}

func (d *memDevice) Write(ctx context.Context, oid devmsg.OID, offs int64, data []byte, pid uint32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pids = append(d.pids, pid)
	d.data = append(d.data, data...)
	return len(data), nil
}

func (d *memDevice) Truncate(ctx context.Context, oid devmsg.OID, size int64, pid uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size > int64(len(d.data)) {
		return unix.EINVAL
	}
	d.data = d.data[:size]
	return nil
}

func TestServe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dev := &memDevice{}
	l := port.NewLocal(0)
	s := New(zap.NewNop(), l, dev, Config{Workers: 2})

	done := make(chan error)
	go func() { done <- s.Serve(ctx) }()

	caller := l.Endpoint(99)

	m := devmsg.New(devmsg.TypeWrite)
	in, _ := m.IOIn()
	in.Len = 5
	m.In.Data = []byte("hello")
	require.NoError(t, caller.Call(ctx, m))
	assert.EqualValues(t, 5, m.Status())

	m = devmsg.New(devmsg.TypeRead)
	in, _ = m.IOIn()
	in.Offs = 1
	in.Len = 3
	buf := make([]byte, 10)
	m.Out.Data = buf
	require.NoError(t, caller.Call(ctx, m))
	assert.EqualValues(t, 3, m.Status())
	assert.Equal(t, "ell", string(buf[:3]))

	m = devmsg.New(devmsg.TypeTruncate)
	in, _ = m.IOIn()
	in.Len = 100
	require.NoError(t, caller.Call(ctx, m))
	assert.EqualValues(t, -int32(unix.EINVAL), m.Status())

	assert.Equal(t, []uint32{99}, dev.pids)

	require.NoError(t, l.Close())
	assert.NoError(t, <-done)
}
