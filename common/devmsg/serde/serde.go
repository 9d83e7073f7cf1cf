// Package serde contains the little-endian serialization primitives used to put devmsg frames on
// the wire. Errors are collected while (de)serializing and reported once by Finish(), so message
// types can describe their layout as a flat list of calls.
package serde

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"

	"github.com/thinkparq/devctl/common/types"
)

// NoBlob is the length prefix written for an absent (nil) blob. It distinguishes "no attachment"
// from an empty one.
const NoBlob = 0xFFFFFFFF

// MaxBlobLen bounds the length of a single blob accepted by the deserializer so a corrupted length
// prefix cannot trigger a huge allocation.
const MaxBlobLen = 1 << 24

// SERIALIZER

// Passed to the serialization methods. Contains the serialization buffer and the errors collected
// so far.
type Serializer struct {
	Buf    bytes.Buffer
	Errors types.MultiError
}

// NewSerializer returns a Serializer appending to buf. The caller must not use buf directly
// afterwards, use Serializer.Buf.Bytes() instead.
func NewSerializer(buf []byte) Serializer {
	return Serializer{Buf: *bytes.NewBuffer(buf)}
}

// Finish returns the errors collected during serialization, if any.
func (s *Serializer) Finish() error {
	return s.Errors.ErrOrNil()
}

// A serializable type
type Serializable interface {
	// Defines how to serialize the type. Must match its deserialization procedure.
	Serialize(*Serializer)
}

// Serializes a fixed size integer value in little endian order.
func SerializeInt(s *Serializer, value any) {
	s.Errors.Append(binary.Write(&s.Buf, binary.LittleEndian, value))
}

// Serializes a raw slice of bytes without a length prefix.
func SerializeBytes(s *Serializer, value []byte) {
	_, err := s.Buf.Write(value)
	s.Errors.Append(err)
}

// Serializes a length prefixed slice of bytes. A nil slice is written as NoBlob so the receiver can
// tell an absent blob from an empty one.
func SerializeBlob(s *Serializer, value []byte) {
	if value == nil {
		SerializeInt(s, uint32(NoBlob))
		return
	}
	if len(value) > MaxBlobLen {
		s.Errors.Append(fmt.Errorf("blob of %d bytes exceeds the maximum of %d bytes", len(value), MaxBlobLen))
		return
	}
	SerializeInt(s, uint32(len(value)))
	SerializeBytes(s, value)
}

// DESERIALIZER

// Passed to the deserialization methods. Contains the remaining input and the errors collected so
// far.
type Deserializer struct {
	Buf    bytes.Buffer
	Errors types.MultiError
}

// NewDeserializer returns a Deserializer reading from s.
func NewDeserializer(s []byte) Deserializer {
	return Deserializer{Buf: *bytes.NewBuffer(s)}
}

// Finish returns the errors collected during deserialization. Input that was not consumed is an
// error as well, because it means the frame did not have the expected layout.
func (d *Deserializer) Finish() error {
	if d.Buf.Len() != 0 {
		d.Errors.Append(fmt.Errorf("%d unconsumed bytes left after deserialization", d.Buf.Len()))
	}
	return d.Errors.ErrOrNil()
}

// A deserializable type
type Deserializable interface {
	// Defines how to deserialize the type. Must match its serialization procedure.
	Deserialize(*Deserializer)
}

// Deserializes a fixed size integer value in little endian order.
func DeserializeInt(d *Deserializer, into any) {
	if reflect.ValueOf(into).Type().Kind() != reflect.Pointer {
		d.Errors.Append(fmt.Errorf("attempt to deserialize int into non-pointer"))
		return
	}

	d.Errors.Append(binary.Read(&d.Buf, binary.LittleEndian, into))
}

// Deserializes exactly len(into) bytes.
func DeserializeBytes(d *Deserializer, into []byte) {
	if _, err := io.ReadFull(&d.Buf, into); err != nil {
		d.Errors.Append(fmt.Errorf("reading %d bytes: %w", len(into), err))
	}
}

// Deserializes a length prefixed slice of bytes. NoBlob results in a nil slice.
func DeserializeBlob(d *Deserializer, into *[]byte) {
	var l uint32
	DeserializeInt(d, &l)
	if l == NoBlob {
		*into = nil
		return
	}
	if l > MaxBlobLen {
		d.Errors.Append(fmt.Errorf("blob length %d exceeds the maximum of %d bytes", l, MaxBlobLen))
		return
	}

	*into = make([]byte, l)
	DeserializeBytes(d, *into)
}
