// Package devclient is the client side call surface for devices served on ports. It keeps a table of
// descriptors, each bound to a port and an object on it, and turns ioctl, open, close, read and write
// calls into messages. Failures reported by the device are returned as unix.Errno values.
package devclient

import (
	"context"
	"fmt"
	"path"
	"reflect"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/thinkparq/devctl/common/devmsg"
	"github.com/thinkparq/devctl/common/ioctl"
	"github.com/thinkparq/devctl/common/port"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

type descriptor struct {
	port port.Caller
	oid  devmsg.OID
}

// Client is safe for concurrent use.
type Client struct {
	log  *zap.Logger
	fds  *xsync.MapOf[int, descriptor]
	next atomic.Int64
}

func New(log *zap.Logger) *Client {
	return &Client{
		log: log.With(zap.String("component", path.Base(reflect.TypeOf(Client{}).PkgPath()))),
		fds: xsync.NewMapOf[int, descriptor](),
	}
}

// Attach binds a new descriptor to object oid on p without sending anything.
func (c *Client) Attach(p port.Caller, oid devmsg.OID) int {
	fd := int(c.next.Add(1)) - 1
	c.fds.Store(fd, descriptor{port: p, oid: oid})
	return fd
}

// Detach releases fd without notifying the device.
func (c *Client) Detach(fd int) error {
	if _, ok := c.fds.LoadAndDelete(fd); !ok {
		return unix.EBADF
	}
	return nil
}

func (c *Client) lookup(fd int) (descriptor, error) {
	d, ok := c.fds.Load(fd)
	if !ok {
		return descriptor{}, unix.EBADF
	}
	return d, nil
}

// call sends m and converts a failure status into an errno.
func (c *Client) call(ctx context.Context, d descriptor, m *devmsg.Msg) (int, error) {
	if err := d.port.Call(ctx, m); err != nil {
		return 0, fmt.Errorf("%s on %d:%d failed: %w", m.Type, d.oid.Port, d.oid.ID, err)
	}
	status := ioctl.Status(m.Status())
	if err := status.Err(); err != nil {
		return 0, err
	}
	return int(status), nil
}

// Ioctl issues cmd on fd. The argument has to match the direction and size of cmd, otherwise the
// call fails with an error matching both unix.EINVAL and ioctl.ErrArgMismatch and nothing is sent.
// Output is copied into the buffer of arg.
func (c *Client) Ioctl(ctx context.Context, fd int, cmd ioctl.Cmd, arg ioctl.Arg) error {
	d, err := c.lookup(fd)
	if err != nil {
		return err
	}

	m, err := ioctl.NewRequest(cmd, d.oid.ID, arg)
	if err != nil {
		return fmt.Errorf("%w: %w", unix.EINVAL, err)
	}

	if err := d.port.Call(ctx, m); err != nil {
		return fmt.Errorf("ioctl %s on %d:%d failed: %w", cmd, d.oid.Port, d.oid.ID, err)
	}

	if out, ok := m.DevCtlOut(); ok && ioctl.Cmd(out.Request) != cmd {
		c.log.Warn("reply does not echo the request", zap.Stringer("cmd", cmd), zap.Stringer("echoed", ioctl.Cmd(out.Request)))
	}
	return arg.Collect(m)
}

// Open opens object oid on p and returns a descriptor for it.
func (c *Client) Open(ctx context.Context, p port.Caller, oid devmsg.OID, flags uint32) (int, error) {
	m := devmsg.New(devmsg.TypeOpen)
	in, _ := m.OpenIn()
	in.OID = oid
	in.Flags = flags

	if _, err := c.call(ctx, descriptor{port: p, oid: oid}, m); err != nil {
		return -1, err
	}
	return c.Attach(p, oid), nil
}

// Close closes the object behind fd and releases the descriptor. The descriptor is released even if
// the device reports an error.
func (c *Client) Close(ctx context.Context, fd int) error {
	d, err := c.lookup(fd)
	if err != nil {
		return err
	}
	defer c.Detach(fd)

	m := devmsg.New(devmsg.TypeClose)
	in, _ := m.OpenIn()
	in.OID = d.oid

	_, err = c.call(ctx, d, m)
	return err
}

// Read reads up to len(buf) bytes at offset offs.
func (c *Client) Read(ctx context.Context, fd int, buf []byte, offs int64) (int, error) {
	d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}

	m := devmsg.New(devmsg.TypeRead)
	in, _ := m.IOIn()
	in.OID = d.oid
	in.Offs = offs
	in.Len = uint64(len(buf))
	m.Out.Data = buf

	n, err := c.call(ctx, d, m)
	if err != nil {
		return 0, err
	}
	// The reply normally lands in buf already, unless the transport had to allocate.
	n = copy(buf, m.Out.Data[:min(n, len(m.Out.Data))])
	return n, nil
}

// Write writes data at offset offs and returns the number of bytes the device accepted.
func (c *Client) Write(ctx context.Context, fd int, data []byte, offs int64) (int, error) {
	d, err := c.lookup(fd)
	if err != nil {
		return 0, err
	}

	m := devmsg.New(devmsg.TypeWrite)
	in, _ := m.IOIn()
	in.OID = d.oid
	in.Offs = offs
	in.Len = uint64(len(data))
	m.In.Data = data

	return c.call(ctx, d, m)
}
