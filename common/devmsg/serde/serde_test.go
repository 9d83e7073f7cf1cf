package serde

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ints struct {
	u8  uint8
	u16 uint16
	u32 uint32
	u64 uint64
	i8  int8
	i16 int16
	i32 int32
	i64 int64
}

func (t *ints) Serialize(s *Serializer) {
	SerializeInt(s, t.u8)
	SerializeInt(s, t.u16)
	SerializeInt(s, t.u32)
	SerializeInt(s, t.u64)
	SerializeInt(s, t.i8)
	SerializeInt(s, t.i16)
	SerializeInt(s, t.i32)
	SerializeInt(s, t.i64)
}

func (t *ints) Deserialize(d *Deserializer) {
	DeserializeInt(d, &t.u8)
	DeserializeInt(d, &t.u16)
	DeserializeInt(d, &t.u32)
	DeserializeInt(d, &t.u64)
	DeserializeInt(d, &t.i8)
	DeserializeInt(d, &t.i16)
	DeserializeInt(d, &t.i32)
	DeserializeInt(d, &t.i64)
}

func TestInt(t *testing.T) {
	s := NewSerializer([]byte{})

	in := ints{u8: 1, u16: 2, u32: 3, u64: 4, i8: -5, i16: 6, i32: -7, i64: 8}
	in.Serialize(&s)
	require.NoError(t, s.Finish())
	assert.Equal(t, 30, s.Buf.Len())

	d := NewDeserializer(s.Buf.Bytes())
	out := ints{}
	out.Deserialize(&d)

	assert.NoError(t, d.Finish())
	assert.Equal(t, in, out)
}

func TestLittleEndian(t *testing.T) {
	s := NewSerializer(nil)
	SerializeInt(&s, uint32(0x4004667f))
	require.NoError(t, s.Finish())
	assert.Equal(t, []byte{0x7f, 0x66, 0x04, 0x40}, s.Buf.Bytes())
}

func TestBlob(t *testing.T) {
	s := NewSerializer(nil)
	SerializeBlob(&s, []byte("attachment"))
	SerializeBlob(&s, nil)
	SerializeBlob(&s, []byte{})
	require.NoError(t, s.Finish())

	d := NewDeserializer(s.Buf.Bytes())
	var present, absent, empty []byte
	DeserializeBlob(&d, &present)
	DeserializeBlob(&d, &absent)
	DeserializeBlob(&d, &empty)
	require.NoError(t, d.Finish())

	assert.Equal(t, []byte("attachment"), present)
	assert.Nil(t, absent)
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)
}

func TestDeserializeErrors(t *testing.T) {
	// Too short for a uint64.
	d := NewDeserializer([]byte{1, 2, 3})
	var v uint64
	DeserializeInt(&d, &v)
	assert.Error(t, d.Finish())

	// Leftover bytes.
	d = NewDeserializer([]byte{1, 0, 0, 0, 0xff})
	var u uint32
	DeserializeInt(&d, &u)
	assert.EqualValues(t, 1, u)
	assert.ErrorContains(t, d.Finish(), "unconsumed")

	// A blob length prefix larger than the remaining input.
	d = NewDeserializer([]byte{10, 0, 0, 0, 'a'})
	var b []byte
	DeserializeBlob(&d, &b)
	assert.Error(t, d.Finish())

	// Non pointer target.
	d = NewDeserializer([]byte{1, 0, 0, 0})
	DeserializeInt(&d, u)
	assert.Error(t, d.Finish())
}
