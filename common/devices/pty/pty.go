// Package pty provides a loopback device modelling the control surface of a pseudo terminal master.
// Bytes written to it can be read back in order. It answers TIOCGPTN, TIOCSPTLCK and FIONREAD.
package pty

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"path"
	"reflect"
	"sync"

	"github.com/thinkparq/devctl/common/devmsg"
	"github.com/thinkparq/devctl/common/ioctl"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Device is a single pseudo terminal.
type Device struct {
	log    *zap.Logger
	number uint32

	mu       sync.Mutex
	locked   bool
	lockedBy uint32
	opened   map[uint32]int
	buf      bytes.Buffer
}

// New returns an unlocked pseudo terminal with the given number.
func New(log *zap.Logger, number uint32) *Device {
	return &Device{
		log:    log.With(zap.String("component", path.Base(reflect.TypeOf(Device{}).PkgPath())), zap.Uint32("pty", number)),
		number: number,
		opened: make(map[uint32]int),
	}
}

func (d *Device) Ioctl(ctx context.Context, req *ioctl.Request) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch req.Cmd {
	case ioctl.TIOCGPTN:
		out := req.Output.Bytes()
		if len(out) < 4 {
			return nil, ioctl.ErrMissingAttachment
		}
		binary.LittleEndian.PutUint32(out, d.number)
		return nil, nil

	case ioctl.TIOCSPTLCK:
		lock := int32(binary.LittleEndian.Uint32(req.Input)) != 0
		if d.locked && d.lockedBy != req.Sender {
			return nil, unix.EPERM
		}
		d.locked = lock
		d.lockedBy = req.Sender
		d.log.Debug("changed lock", zap.Bool("locked", lock), zap.Uint32("pid", req.Sender))
		return nil, nil

	case ioctl.FIONREAD:
		out := make([]byte, 4)
		binary.LittleEndian.PutUint32(out, uint32(d.buf.Len()))
		return out, nil
	}

	return nil, fmt.Errorf("%w: %s", ioctl.ErrUnsupported, req.Cmd)
}

// Open fails with EIO while the terminal is locked by another process.
func (d *Device) Open(ctx context.Context, oid devmsg.OID, flags uint32, pid uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.locked && d.lockedBy != pid {
		return unix.EIO
	}
	d.opened[pid]++
	return nil
}

func (d *Device) Close(ctx context.Context, oid devmsg.OID, pid uint32) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened[pid] == 0 {
		return unix.EBADF
	}
	d.opened[pid]--
	if d.opened[pid] == 0 {
		delete(d.opened, pid)
	}
	return nil
}

// Read drains up to len(buf) buffered bytes. Fails with EAGAIN if nothing is buffered.
func (d *Device) Read(ctx context.Context, oid devmsg.OID, offs int64, buf []byte, pid uint32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(buf) == 0 {
		return 0, nil
	}
	if d.buf.Len() == 0 {
		return 0, unix.EAGAIN
	}
	return d.buf.Read(buf)
}

func (d *Device) Write(ctx context.Context, oid devmsg.OID, offs int64, data []byte, pid uint32) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.buf.Write(data)
}

// Number returns the number of the terminal.
func (d *Device) Number() uint32 {
	return d.number
}

// Locked reports whether the terminal is locked.
func (d *Device) Locked() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.locked
}
