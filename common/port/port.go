// Package port provides the transports that carry devmsg messages between clients and the server of a
// port. It only moves messages: delivery guarantees, retries and timeouts beyond the caller's context
// are not provided.
package port

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/thinkparq/devctl/common/devmsg"
	"golang.org/x/sys/unix"
)

var (
	ErrClosed           = errors.New("port closed")
	ErrAlreadyResponded = errors.New("message has already been responded to")
)

// Caller is the client side of a port. Call sends m and blocks until the reply has been merged into m
// or ctx is done. After an error m must not be used to interpret a reply.
type Caller interface {
	Call(ctx context.Context, m *devmsg.Msg) error
}

// Receiver is the server side of a port.
type Receiver interface {
	// Recv blocks until a message arrives, ctx is done or the port is closed (ErrClosed).
	Recv(ctx context.Context) (*Pending, error)
}

// Pending is a received message waiting for its reply. The server owns Msg exclusively until it calls
// Respond, after which it must not touch Msg anymore.
type Pending struct {
	Msg       *devmsg.Msg
	reply     func(*devmsg.Msg) error
	responded atomic.Bool
}

// Respond ships the output side of Msg back to the caller. Only the first invocation has an effect,
// later ones return ErrAlreadyResponded.
func (p *Pending) Respond() error {
	if !p.responded.CompareAndSwap(false, true) {
		return ErrAlreadyResponded
	}
	return p.reply(p.Msg)
}

func checkType(m *devmsg.Msg) error {
	if !m.Type.Valid() {
		return fmt.Errorf("cannot send message of type %s: %w", m.Type, unix.ENOSYS)
	}
	return nil
}
