package devmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessorsCheckDiscriminant(t *testing.T) {
	m := New(TypeDevCtl)

	in, ok := m.DevCtlIn()
	require.True(t, ok)
	in.Request = 0x4004667f

	_, ok = m.IOIn()
	assert.False(t, ok)
	_, ok = m.OpenIn()
	assert.False(t, ok)
	_, ok = m.AttrOut()
	assert.False(t, ok)

	// Changing the type makes the devctl variant unreachable
	m.Type = TypeRead
	_, ok = m.DevCtlIn()
	assert.False(t, ok)
	io, ok := m.IOIn()
	require.True(t, ok)
	assert.Equal(t, IOIn{}, *io)

	// Read, write and truncate share the same variants
	for _, typ := range []Type{TypeRead, TypeWrite, TypeTruncate} {
		m := New(typ)
		_, ok := m.IOIn()
		assert.True(t, ok, typ.String())
		_, ok = m.IOOut()
		assert.True(t, ok, typ.String())
	}

	m = New(Type(1000))
	_, ok = m.DevCtlIn()
	assert.False(t, ok)
	_, ok = m.IOOut()
	assert.False(t, ok)
	assert.EqualValues(t, 0, m.Status())
}

func TestStatus(t *testing.T) {
	for typ := TypeOpen; typ < typeCount; typ++ {
		m := New(typ)
		m.SetStatus(-5)
		assert.EqualValues(t, -5, m.Status(), typ.String())
	}
}

func TestClone(t *testing.T) {
	m := New(TypeDevCtl)
	m.SetSender(42)
	in, _ := m.DevCtlIn()
	in.Request = 7
	in.Inline[0] = 1
	m.In.Data = []byte{1, 2, 3}
	m.Out.Data = make([]byte, 4)

	c := m.Clone()
	assert.Equal(t, m, c)

	cIn, _ := c.DevCtlIn()
	cIn.Inline[0] = 2
	c.In.Data[0] = 9
	c.Out.Data[0] = 9

	assert.EqualValues(t, 1, in.Inline[0])
	assert.EqualValues(t, 1, m.In.Data[0])
	assert.EqualValues(t, 0, m.Out.Data[0])
	assert.EqualValues(t, 42, c.Sender())
}

func TestAdoptReply(t *testing.T) {
	lent := make([]byte, 8)
	m := New(TypeDevCtl)
	m.In.Data = []byte{1}
	m.Out.Data = lent

	reply := m.Clone()
	out, _ := reply.DevCtlOut()
	out.Err = -22
	out.Inline[3] = 3
	reply.In.Data = []byte{5}
	reply.Out.Data = []byte{1, 2, 3, 4, 5, 6}

	m.AdoptReply(reply)
	assert.EqualValues(t, -22, m.Status())
	mOut, _ := m.DevCtlOut()
	assert.EqualValues(t, 3, mOut.Inline[3])
	// Reply data lands in the lent buffer
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, m.Out.Data)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 0, 0}, lent)
	// Input side untouched
	assert.Equal(t, []byte{1}, m.In.Data)

	// Larger replies are copied
	reply.Out.Data = make([]byte, 16)
	m.AdoptReply(reply)
	assert.Len(t, m.Out.Data, 16)
	reply.Out.Data[0] = 1
	assert.EqualValues(t, 0, m.Out.Data[0])

	reply.Out.Data = nil
	m.AdoptReply(reply)
	assert.Nil(t, m.Out.Data)
}
