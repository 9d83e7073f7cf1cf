package port

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkparq/devctl/common/devmsg"
	"golang.org/x/sys/unix"
)

// Answers every message with the sender PID as status and the input data reversed as output data.
func echoServer(t *testing.T, ctx context.Context, r Receiver) {
	for {
		p, err := r.Recv(ctx)
		if err != nil {
			return
		}
		p.Msg.SetStatus(int32(p.Msg.Sender()))
		if p.Msg.Out.Data != nil {
			for i, b := range p.Msg.In.Data {
				p.Msg.Out.Data[len(p.Msg.In.Data)-1-i] = b
			}
		}
		assert.NoError(t, p.Respond())
		assert.ErrorIs(t, p.Respond(), ErrAlreadyResponded)
	}
}

func TestLocalCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewLocal(0)
	defer l.Close()
	go echoServer(t, ctx, l)

	m := devmsg.New(devmsg.TypeWrite)
	m.SetSender(1) // ignored, the endpoint stamps its own PID
	m.In.Data = []byte{1, 2, 3}
	lent := make([]byte, 3)
	m.Out.Data = lent

	require.NoError(t, l.Endpoint(77).Call(ctx, m))
	assert.EqualValues(t, 77, m.Status())
	assert.Equal(t, []byte{3, 2, 1}, lent)
	assert.Equal(t, []byte{1, 2, 3}, m.In.Data)
}

func TestLocalServerGetsPrivateCopy(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l := NewLocal(1)
	m := devmsg.New(devmsg.TypeDevCtl)
	m.In.Data = []byte{1, 2, 3}

	callCtx, callCancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer callCancel()
	err := l.Endpoint(5).Call(callCtx, m)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// The server only picks the message up after the caller gave up
	p, err := l.Recv(ctx)
	require.NoError(t, err)
	p.Msg.In.Data[0] = 9
	assert.EqualValues(t, 1, m.In.Data[0])
	assert.EqualValues(t, 5, p.Msg.Sender())

	// Responding to an abandoned call does not block
	assert.NoError(t, p.Respond())
}

func TestLocalClose(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(0)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	_, err := l.Recv(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, l.Endpoint(1).Call(ctx, devmsg.New(devmsg.TypeOpen)), ErrClosed)
}

func TestUnknownType(t *testing.T) {
	l := NewLocal(1)
	defer l.Close()
	err := l.Endpoint(1).Call(context.Background(), devmsg.New(devmsg.Type(99)))
	assert.ErrorIs(t, err, unix.ENOSYS)
}
