package port

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/thinkparq/devctl/common/devmsg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// frameWriter funnels whole frames to a single writer goroutine so concurrent replies or calls never
// interleave on the connection.
type frameWriter struct {
	frames chan []byte
	done   <-chan struct{}
}

func newFrameWriter(done <-chan struct{}) *frameWriter {
	return &frameWriter{frames: make(chan []byte), done: done}
}

func (w *frameWriter) send(ctx context.Context, frame []byte) error {
	select {
	case w.frames <- frame:
		return nil
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *frameWriter) run(ctx context.Context, conn net.Conn) error {
	for {
		select {
		case frame := <-w.frames:
			if err := devmsg.WriteFrame(ctx, conn, frame); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// Errors that mean the other side went away or we shut down.
func isDisconnect(err error) bool {
	return err == nil || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) ||
		errors.Is(err, context.Canceled) || errors.Is(err, ErrClosed)
}

// SERVER

// UnixListener is the server side of a port on a unix stream socket. The sender of every message is
// the PID of the connected process as reported by the kernel, whatever the client puts into the frame
// is ignored.
type UnixListener struct {
	log       *zap.Logger
	path      string
	listener  *net.UnixListener
	requests  chan *Pending
	conns     *xsync.MapOf[string, *net.UnixConn]
	done      chan struct{}
	closeOnce sync.Once
}

var _ Receiver = &UnixListener{}

// ListenUnix creates the socket at socketPath, replacing a stale socket file from an earlier run.
// Connections are only accepted once Serve is called.
func ListenUnix(log *zap.Logger, socketPath string) (*UnixListener, error) {

	// Cleanup old socket if needed:
	stat, err := os.Stat(socketPath)
	if err == nil {
		if stat.IsDir() {
			return nil, fmt.Errorf("the socket path %s is an existing directory, but must be a new or existing file path", socketPath)
		}
		if err = os.Remove(socketPath); err != nil {
			return nil, err
		}
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: socketPath, Net: "unix"})
	if err != nil {
		return nil, err
	}
	listener.SetUnlinkOnClose(true)

	return &UnixListener{
		log:      log.With(zap.String("component", path.Base(reflect.TypeOf(UnixListener{}).PkgPath())), zap.String("socket", socketPath)),
		path:     socketPath,
		listener: listener,
		requests: make(chan *Pending),
		conns:    xsync.NewMapOf[string, *net.UnixConn](),
		done:     make(chan struct{}),
	}, nil
}

// Path returns the path of the socket.
func (l *UnixListener) Path() string {
	return l.path
}

// Serve accepts connections until ctx is done or Close is called. Each connection gets its own reader
// and writer goroutine, received messages are handed out through Recv.
func (l *UnixListener) Serve(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-l.done:
		}
		l.shutdown()
		return nil
	})

	g.Go(func() error {
		l.log.Info("accepting connections")
		for {
			conn, err := l.listener.AcceptUnix()
			if err != nil {
				// Handle if we're gracefully shutting down and the socket was closed.
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accepting connection: %w", err)
			}
			g.Go(func() error {
				l.serveConn(gctx, conn)
				return nil
			})
		}
	})

	return g.Wait()
}

func (l *UnixListener) serveConn(ctx context.Context, conn *net.UnixConn) {
	id := uuid.NewString()
	log := l.log.With(zap.String("connID", id))

	pid, err := peerPID(conn)
	if err != nil {
		log.Warn("unable to determine the PID of the peer, its messages carry PID 0", zap.Error(err))
	}

	l.conns.Store(id, conn)
	defer l.conns.Delete(id)
	defer conn.Close()
	log.Debug("established connection", zap.Uint32("pid", pid))

	g, gctx := errgroup.WithContext(ctx)
	w := newFrameWriter(gctx.Done())

	g.Go(func() error {
		return w.run(gctx, conn)
	})

	g.Go(func() error {
		for {
			header, body, err := devmsg.ReadFrame(gctx, conn)
			if err != nil {
				return err
			}
			m, err := devmsg.DisassembleRequest(header, body)
			if err != nil {
				return err
			}
			m.SetSender(pid)

			seq := header.Seq
			p := &Pending{
				Msg: m,
				reply: func(reply *devmsg.Msg) error {
					frame, err := devmsg.AssembleResponse(reply, seq)
					if err != nil {
						return err
					}
					return w.send(gctx, frame)
				},
			}

			select {
			case l.requests <- p:
			case <-l.done:
				return ErrClosed
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	if err := g.Wait(); isDisconnect(err) {
		log.Debug("connection closed")
	} else {
		log.Warn("connection failed", zap.Error(err))
	}
}

func (l *UnixListener) Recv(ctx context.Context) (*Pending, error) {
	select {
	case p := <-l.requests:
		return p, nil
	case <-l.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops accepting connections, closes all open connections and removes the socket file.
func (l *UnixListener) Close() error {
	l.shutdown()
	return nil
}

func (l *UnixListener) shutdown() {
	l.closeOnce.Do(func() {
		close(l.done)
		if err := l.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.log.Error("unable to close socket", zap.Error(err))
		}
		l.conns.Range(func(id string, conn *net.UnixConn) bool {
			conn.Close()
			return true
		})
		l.log.Info("no longer accepting connections")
	})
}

// CLIENT

// UnixCaller is the client side of a port on a unix stream socket. Calls are pipelined over a single
// connection and matched with their replies by sequence number.
type UnixCaller struct {
	log     *zap.Logger
	conn    *net.UnixConn
	seq     atomic.Uint64
	pending *xsync.MapOf[uint64, chan *devmsg.Msg]
	w       *frameWriter
	done    <-chan struct{}
	cancel  context.CancelFunc
	g       *errgroup.Group
}

var _ Caller = &UnixCaller{}

// DialUnix connects to the port listening at socketPath.
func DialUnix(ctx context.Context, log *zap.Logger, socketPath string) (*UnixCaller, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", socketPath, err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(connCtx)

	c := &UnixCaller{
		log:     log.With(zap.String("component", path.Base(reflect.TypeOf(UnixCaller{}).PkgPath())), zap.String("socket", socketPath)),
		conn:    conn.(*net.UnixConn),
		pending: xsync.NewMapOf[uint64, chan *devmsg.Msg](),
		w:       newFrameWriter(gctx.Done()),
		done:    gctx.Done(),
		cancel:  cancel,
		g:       g,
	}

	g.Go(func() error {
		return c.w.run(gctx, c.conn)
	})
	g.Go(func() error {
		return c.readResponses(gctx)
	})

	return c, nil
}

func (c *UnixCaller) Call(ctx context.Context, m *devmsg.Msg) error {
	if err := checkType(m); err != nil {
		return err
	}

	seq := c.seq.Add(1)
	frame, err := devmsg.AssembleRequest(m, seq)
	if err != nil {
		return err
	}

	replies := make(chan *devmsg.Msg, 1)
	c.pending.Store(seq, replies)
	defer c.pending.Delete(seq)

	if err := c.w.send(ctx, frame); err != nil {
		return err
	}

	select {
	case reply := <-replies:
		m.AdoptReply(reply)
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readResponses reads replies in a loop and distributes them to the waiting calls.
func (c *UnixCaller) readResponses(ctx context.Context) error {
	for {
		header, body, err := devmsg.ReadFrame(ctx, c.conn)
		if err != nil {
			return err
		}

		reply, err := devmsg.DisassembleResponse(header, body)
		if err != nil {
			return err
		}

		replies, ok := c.pending.LoadAndDelete(header.Seq)
		if !ok {
			// The caller gave up waiting.
			c.log.Debug("dropping reply without a waiting call", zap.Uint64("seq", header.Seq), zap.Stringer("type", header.Type))
			continue
		}
		replies <- reply
	}
}

// Close closes the connection. Calls still waiting for a reply fail with ErrClosed.
func (c *UnixCaller) Close() error {
	c.cancel()
	err := c.conn.Close()
	if werr := c.g.Wait(); !isDisconnect(werr) {
		c.log.Debug("connection failed before it was closed", zap.Error(werr))
	}
	return err
}
