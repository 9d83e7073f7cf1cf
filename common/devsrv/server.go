// Package devsrv runs a device on a port: it receives messages, dispatches them by type to the device
// and sends the replies. Devices implement the subset of Ioctler, Opener, Reader, Writer and Truncater
// they support, every other message type is answered with -ENOSYS.
package devsrv

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"

	"github.com/thinkparq/devctl/common/devmsg"
	"github.com/thinkparq/devctl/common/ioctl"
	"github.com/thinkparq/devctl/common/port"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Ioctler handles device control requests. Data returned with a nil error becomes the response
// payload, alternatively the handler may write into req.Output directly. Unknown requests should
// return an error wrapping ioctl.ErrUnsupported.
type Ioctler interface {
	Ioctl(ctx context.Context, req *ioctl.Request) ([]byte, error)
}

type Opener interface {
	Open(ctx context.Context, oid devmsg.OID, flags uint32, pid uint32) error
	Close(ctx context.Context, oid devmsg.OID, pid uint32) error
}

type Reader interface {
	// Read fills buf and returns the number of bytes read.
	Read(ctx context.Context, oid devmsg.OID, offs int64, buf []byte, pid uint32) (int, error)
}

type Writer interface {
	Write(ctx context.Context, oid devmsg.OID, offs int64, data []byte, pid uint32) (int, error)
}

type Truncater interface {
	Truncate(ctx context.Context, oid devmsg.OID, size int64, pid uint32) error
}

// Config defines the configuration of a Server.
type Config struct {
	// Number of messages handled concurrently.
	Workers int `mapstructure:"workers"`
}

const defaultWorkers = 4

// Server serves a single device on a port.
type Server struct {
	log    *zap.Logger
	port   port.Receiver
	device any
	config Config
}

// New returns a server for device. The device should implement at least one of the handler
// interfaces of this package.
func New(log *zap.Logger, recv port.Receiver, device any, config Config) *Server {
	log = log.With(zap.String("component", path.Base(reflect.TypeOf(Server{}).PkgPath())))
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}
	return &Server{
		log:    log,
		port:   recv,
		device: device,
		config: config,
	}
}

// Serve handles messages with the configured number of workers until ctx is done or the port is
// closed.
func (s *Server) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range s.config.Workers {
		g.Go(func() error {
			return s.work(gctx, s.log.With(zap.Int("worker", i)))
		})
	}
	s.log.Info("serving device", zap.Int("workers", s.config.Workers), zap.String("device", fmt.Sprintf("%T", s.device)))
	err := g.Wait()
	s.log.Info("no longer serving device")
	return err
}

func (s *Server) work(ctx context.Context, log *zap.Logger) error {
	for {
		p, err := s.port.Recv(ctx)
		if err != nil {
			if errors.Is(err, port.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("receiving message: %w", err)
		}

		s.Handle(ctx, p.Msg)
		if err := p.Respond(); err != nil {
			log.Warn("unable to send reply", zap.Stringer("type", p.Msg.Type), zap.Uint32("sender", p.Msg.Sender()), zap.Error(err))
		}
	}
}

// Handle runs m against the device and fills in the output side of m.
func (s *Server) Handle(ctx context.Context, m *devmsg.Msg) {
	log := s.log.With(zap.Stringer("type", m.Type), zap.Uint32("sender", m.Sender()))

	switch m.Type {
	case devmsg.TypeDevCtl:
		s.handleIoctl(ctx, log, m)
	case devmsg.TypeOpen, devmsg.TypeClose:
		s.handleOpen(ctx, m)
	case devmsg.TypeRead:
		s.handleRead(ctx, m)
	case devmsg.TypeWrite:
		s.handleWrite(ctx, m)
	case devmsg.TypeTruncate:
		s.handleTruncate(ctx, m)
	default:
		unsupported(m)
	}

	if status := ioctl.Status(m.Status()); status < 0 {
		log.Debug("request failed", zap.Stringer("status", status))
	}
}

func (s *Server) handleIoctl(ctx context.Context, log *zap.Logger, m *devmsg.Msg) {
	call, err := ioctl.Begin(m)
	if err != nil {
		log.Debug("rejected malformed request", zap.Error(err))
		return
	}
	req := call.Request()
	log = log.With(zap.Stringer("cmd", req.Cmd), zap.Uint64("id", req.ID))

	d, ok := s.device.(Ioctler)
	if !ok {
		_ = call.Fail(fmt.Errorf("%w: %s", ioctl.ErrUnsupported, req.Cmd))
		return
	}

	if err := call.Execute(func(req *ioctl.Request) ([]byte, error) {
		return d.Ioctl(ctx, req)
	}); err != nil {
		log.Debug("ioctl failed", zap.Error(err))
	}
}

func (s *Server) handleOpen(ctx context.Context, m *devmsg.Msg) {
	d, ok := s.device.(Opener)
	in, _ := m.OpenIn()
	if !ok || in == nil {
		unsupported(m)
		return
	}

	var err error
	if m.Type == devmsg.TypeOpen {
		err = d.Open(ctx, in.OID, in.Flags, m.Sender())
	} else {
		err = d.Close(ctx, in.OID, m.Sender())
	}
	respond(m, 0, err)
}

func (s *Server) handleRead(ctx context.Context, m *devmsg.Msg) {
	d, ok := s.device.(Reader)
	in, _ := m.IOIn()
	if !ok || in == nil {
		unsupported(m)
		return
	}

	buf := m.Out.Data
	if uint64(len(buf)) > in.Len {
		buf = buf[:in.Len]
	}
	n, err := d.Read(ctx, in.OID, in.Offs, buf, m.Sender())
	if err == nil {
		m.Out.Data = buf[:n]
	}
	respond(m, n, err)
}

func (s *Server) handleWrite(ctx context.Context, m *devmsg.Msg) {
	d, ok := s.device.(Writer)
	in, _ := m.IOIn()
	if !ok || in == nil {
		unsupported(m)
		return
	}

	data := m.In.Data
	if uint64(len(data)) > in.Len {
		data = data[:in.Len]
	}
	n, err := d.Write(ctx, in.OID, in.Offs, data, m.Sender())
	m.Out.Data = nil
	respond(m, n, err)
}

func (s *Server) handleTruncate(ctx context.Context, m *devmsg.Msg) {
	d, ok := s.device.(Truncater)
	in, _ := m.IOIn()
	if !ok || in == nil {
		unsupported(m)
		return
	}
	respond(m, 0, d.Truncate(ctx, in.OID, int64(in.Len), m.Sender()))
}

// respond sets the status to n on success or to the negated errno of err.
func respond(m *devmsg.Msg, n int, err error) {
	if err != nil {
		m.SetStatus(int32(ioctl.StatusOf(err)))
		m.Out.Data = nil
		return
	}
	m.SetStatus(int32(n))
}

func unsupported(m *devmsg.Msg) {
	m.SetStatus(-int32(unix.ENOSYS))
	m.Out.Data = nil
}
