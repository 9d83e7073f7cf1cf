package port

import (
	"context"
	"sync"

	"github.com/thinkparq/devctl/common/devmsg"
)

// Local is an in-process port. Each Endpoint represents one client process. The server always works on
// a private copy of the message, so a caller that gives up waiting never shares memory with the
// server.
type Local struct {
	requests  chan *Pending
	done      chan struct{}
	closeOnce sync.Once
}

var _ Receiver = &Local{}

// NewLocal returns a local port that buffers up to queueLen undelivered messages.
func NewLocal(queueLen int) *Local {
	return &Local{
		requests: make(chan *Pending, queueLen),
		done:     make(chan struct{}),
	}
}

// Endpoint returns a Caller whose messages are stamped with pid.
func (l *Local) Endpoint(pid uint32) Caller {
	return &localEndpoint{port: l, pid: pid}
}

func (l *Local) Recv(ctx context.Context) (*Pending, error) {
	select {
	case p := <-l.requests:
		return p, nil
	case <-l.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the port down. Pending and future calls fail with ErrClosed.
func (l *Local) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

type localEndpoint struct {
	port *Local
	pid  uint32
}

func (e *localEndpoint) Call(ctx context.Context, m *devmsg.Msg) error {
	if err := checkType(m); err != nil {
		return err
	}

	req := m.Clone()
	req.SetSender(e.pid)

	replies := make(chan *devmsg.Msg, 1)
	p := &Pending{
		Msg: req,
		reply: func(reply *devmsg.Msg) error {
			replies <- reply
			return nil
		},
	}

	select {
	case e.port.requests <- p:
	case <-e.port.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case reply := <-replies:
		m.AdoptReply(reply)
		return nil
	case <-e.port.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
