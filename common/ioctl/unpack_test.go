package ioctl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thinkparq/devctl/common/devmsg"
)

func newDevCtl(cmd Cmd, id uint64) (*devmsg.Msg, *devmsg.DevCtlIn) {
	m := devmsg.New(devmsg.TypeDevCtl)
	in, _ := m.DevCtlIn()
	in.Request = uint32(cmd)
	in.ID = id
	return m, in
}

func TestUnpackInlineInput(t *testing.T) {
	m, in := newDevCtl(TIOCSPTLCK, 7)
	m.SetSender(100)
	copy(in.Inline[:], []byte{0x01, 0x00, 0x00, 0x00})

	req, err := Unpack(m)
	require.NoError(t, err)
	assert.Equal(t, TIOCSPTLCK, req.Cmd)
	assert.EqualValues(t, 7, req.ID)
	assert.EqualValues(t, 100, req.Sender)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, req.Input)
	assert.Nil(t, req.Output)

	// Extended unpack of an input only request has no output slot
	req, err = UnpackEx(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x00}, req.Input)
	assert.Nil(t, req.Output)
}

func TestUnpackAttachment(t *testing.T) {
	cmd := IOW('x', 1, 100)
	payload := make([]byte, 100)
	payload[99] = 9

	m, _ := newDevCtl(cmd, 0)
	m.In.Data = payload

	req, err := Unpack(m)
	require.NoError(t, err)
	assert.Equal(t, payload, req.Input)

	// An attachment takes precedence over the inline region for small sizes too
	m, in := newDevCtl(IOW('x', 2, 4), 0)
	in.Inline[0] = 1
	m.In.Data = []byte{2, 0, 0, 0}
	req, err = Unpack(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 0, 0}, req.Input)
}

func TestUnpackMissingAttachment(t *testing.T) {
	cmd := IOW('x', 1, 100)

	// No attachment at all
	m, _ := newDevCtl(cmd, 0)
	_, err := Unpack(m)
	assert.ErrorIs(t, err, ErrMissingAttachment)

	// Attachment shorter than the declared size
	m.In.Data = make([]byte, 60)
	_, err = Unpack(m)
	assert.ErrorIs(t, err, ErrMissingAttachment)

	// Small declared size with a short attachment
	m, _ = newDevCtl(IOW('x', 2, 8), 0)
	m.In.Data = make([]byte, 4)
	_, err = Unpack(m)
	assert.ErrorIs(t, err, ErrMissingAttachment)
}

func TestUnpackSizeMismatch(t *testing.T) {
	m, _ := newDevCtl(IOW('x', 1, 4), 0)
	m.In.Data = make([]byte, 5)
	_, err := Unpack(m)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	// Pass by value larger than the inline region
	m, _ = newDevCtl(IOV('x', 1, devmsg.DevCtlInlineIn+1), 0)
	_, err = Unpack(m)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	// Commands without input must not carry an attachment
	for _, cmd := range []Cmd{FIONREAD, IO('x', 1), IOV('x', 2, 4), IOR('x', 3, 100)} {
		m, _ = newDevCtl(cmd, 0)
		m.In.Data = make([]byte, 100)
		m.Out.Data = make([]byte, 100)
		_, err = Unpack(m)
		assert.ErrorIs(t, err, ErrSizeMismatch, "cmd %s", cmd)
		_, err = UnpackEx(m)
		assert.ErrorIs(t, err, ErrSizeMismatch, "cmd %s", cmd)
	}

	// Even an empty one
	m, _ = newDevCtl(IO('x', 1), 0)
	m.In.Data = []byte{}
	_, err = Unpack(m)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestUnpackByValue(t *testing.T) {
	m, in := newDevCtl(IOV('x', 1, 2), 0)
	in.Inline[0] = 0x34
	in.Inline[1] = 0x12
	in.Inline[2] = 0xff

	req, err := UnpackEx(m)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x34, 0x12}, req.Input)
	assert.Nil(t, req.Output)

	m, _ = newDevCtl(IO('x', 1), 0)
	req, err = UnpackEx(m)
	require.NoError(t, err)
	assert.Nil(t, req.Input)
}

func TestUnpackOutputSlot(t *testing.T) {
	m, _ := newDevCtl(FIONREAD, 0)
	req, err := Unpack(m)
	require.NoError(t, err)
	assert.Nil(t, req.Input)
	assert.Nil(t, req.Output)

	req, err = UnpackEx(m)
	require.NoError(t, err)
	require.NotNil(t, req.Output)
	assert.True(t, req.Output.Inline())
	assert.Equal(t, 4, req.Output.Len())

	// Writing into the slot writes into the message
	copy(req.Output.Bytes(), []byte{1, 2, 3, 4})
	out, _ := m.DevCtlOut()
	assert.Equal(t, []byte{1, 2, 3, 4}, out.Inline[:4])

	// Large responses go into the lent buffer
	m, _ = newDevCtl(IOR('x', 1, 200), 0)
	m.Out.Data = make([]byte, 256)
	req, err = UnpackEx(m)
	require.NoError(t, err)
	assert.False(t, req.Output.Inline())
	assert.Equal(t, 200, req.Output.Len())
	req.Output.Bytes()[0] = 5
	assert.EqualValues(t, 5, m.Out.Data[0])

	// ... which has to be there
	m.Out.Data = nil
	_, err = UnpackEx(m)
	assert.ErrorIs(t, err, ErrMissingAttachment)
	m.Out.Data = make([]byte, 100)
	_, err = UnpackEx(m)
	assert.ErrorIs(t, err, ErrMissingAttachment)

	// Unpack does not care about the response side
	_, err = Unpack(m)
	assert.NoError(t, err)
}

func TestUnpackInOut(t *testing.T) {
	m, in := newDevCtl(IOWR('x', 1, 8), 0)
	in.Inline[0] = 1

	req, err := UnpackEx(m)
	require.NoError(t, err)
	assert.Len(t, req.Input, 8)
	assert.EqualValues(t, 1, req.Input[0])
	require.NotNil(t, req.Output)
	assert.Equal(t, 8, req.Output.Len())
}

func TestUnpackNotIoctl(t *testing.T) {
	_, err := Unpack(devmsg.New(devmsg.TypeRead))
	assert.ErrorIs(t, err, ErrNotIoctl)
	_, err = UnpackEx(devmsg.New(devmsg.TypeOpen))
	assert.ErrorIs(t, err, ErrNotIoctl)
}

func TestSenderPIDIndependentOfPayload(t *testing.T) {
	m, in := newDevCtl(IOW('x', 1, 8), 0)
	m.SetSender(4242)
	assert.EqualValues(t, 4242, SenderPID(m))

	// Fill the payload with values that look like PIDs
	for i := range in.Inline {
		in.Inline[i] = 0xff
	}
	in.ID = 1
	m.In.Data = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	assert.EqualValues(t, 4242, SenderPID(m))

	req, err := Unpack(m)
	require.NoError(t, err)
	assert.EqualValues(t, 4242, req.Sender)
}
