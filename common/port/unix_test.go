package port

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkparq/devctl/common/devmsg"
	"go.uber.org/zap"
)

func startUnix(t *testing.T, ctx context.Context) (*UnixListener, *sync.WaitGroup) {
	t.Helper()
	l, err := ListenUnix(zap.NewNop(), filepath.Join(t.TempDir(), "port.sock"))
	require.NoError(t, err)

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, l.Serve(ctx))
	}()
	go func() {
		defer wg.Done()
		echoServer(t, ctx, l)
	}()
	return l, wg
}

func TestUnixCall(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l, wg := startUnix(t, ctx)

	c, err := DialUnix(ctx, zap.NewNop(), l.Path())
	require.NoError(t, err)

	m := devmsg.New(devmsg.TypeWrite)
	m.SetSender(1)
	m.In.Data = []byte{1, 2, 3, 4}
	lent := make([]byte, 4)
	m.Out.Data = lent

	require.NoError(t, c.Call(ctx, m))
	assert.Equal(t, []byte{4, 3, 2, 1}, lent)
	if runtime.GOOS == "linux" {
		// The sender is the connected process, not what the client claims
		assert.EqualValues(t, os.Getpid(), m.Status())
	}

	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.Call(ctx, devmsg.New(devmsg.TypeRead)), ErrClosed)

	cancel()
	wg.Wait()
	_, err = os.Stat(l.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestUnixPipelining(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l, wg := startUnix(t, ctx)
	defer func() {
		cancel()
		wg.Wait()
	}()

	c, err := DialUnix(ctx, zap.NewNop(), l.Path())
	require.NoError(t, err)
	defer c.Close()

	var calls sync.WaitGroup
	for i := 0; i < 50; i++ {
		calls.Add(1)
		go func(i int) {
			defer calls.Done()
			m := devmsg.New(devmsg.TypeWrite)
			m.In.Data = []byte{byte(i), 0}
			m.Out.Data = make([]byte, 2)
			if assert.NoError(t, c.Call(ctx, m)) {
				assert.Equal(t, []byte{0, byte(i)}, m.Out.Data)
			}
		}(i)
	}
	calls.Wait()
}

func TestUnixListenerClose(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	l, err := ListenUnix(zap.NewNop(), filepath.Join(t.TempDir(), "port.sock"))
	require.NoError(t, err)

	done := make(chan error)
	go func() { done <- l.Serve(ctx) }()

	c, err := DialUnix(ctx, zap.NewNop(), l.Path())
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, l.Close())
	assert.NoError(t, <-done)

	_, err = l.Recv(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	// The connection was closed by the server
	err = c.Call(ctx, devmsg.New(devmsg.TypeOpen))
	assert.Error(t, err)
}
