package devmsg

// The generic message envelope. A Msg always has an input side (filled by the client) and an output
// side (filled by the server). Both sides carry a small fixed-size variant whose layout depends on the
// message type plus an optional variable-length attachment.

import (
	"fmt"

	"github.com/thinkparq/devctl/common/devmsg/serde"
)

// Type is the message kind discriminant. The values are part of the wire format: new kinds must only
// be appended.
type Type uint32

const (
	TypeOpen Type = iota
	TypeClose
	TypeRead
	TypeWrite
	TypeTruncate
	TypeDevCtl
	TypeCreate
	TypeDestroy
	TypeSetAttr
	TypeGetAttr
	TypeLookup
	typeCount
)

func (t Type) String() string {
	switch t {
	case TypeOpen:
		return "open"
	case TypeClose:
		return "close"
	case TypeRead:
		return "read"
	case TypeWrite:
		return "write"
	case TypeTruncate:
		return "truncate"
	case TypeDevCtl:
		return "devctl"
	case TypeCreate:
		return "create"
	case TypeDestroy:
		return "destroy"
	case TypeSetAttr:
		return "setattr"
	case TypeGetAttr:
		return "getattr"
	case TypeLookup:
		return "lookup"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// Valid reports whether t is a known message kind.
func (t Type) Valid() bool {
	return t < typeCount
}

const (
	// RawSize is the size of the fixed inline region on each side of a message. Variants never
	// serialize to more than RawSize bytes.
	RawSize = 64
	// DevCtlInlineIn is the number of inline payload bytes available in a devctl request after the
	// request word and object ID.
	DevCtlInlineIn = RawSize - 4 - 8
	// DevCtlInlineOut is the number of inline payload bytes available in a devctl response after the
	// echoed request word and the status.
	DevCtlInlineOut = RawSize - 4 - 4
)

// OID identifies an object served on a port.
type OID struct {
	Port uint32
	ID   uint64
}

func (o *OID) Serialize(s *serde.Serializer) {
	serde.SerializeInt(s, o.Port)
	serde.SerializeInt(s, o.ID)
}

func (o *OID) Deserialize(d *serde.Deserializer) {
	serde.DeserializeInt(d, &o.Port)
	serde.DeserializeInt(d, &o.ID)
}

// In is implemented by the input variants.
type In interface {
	serde.Serializable
	serde.Deserializable
	accepts(Type) bool
	cloneIn() In
}

// Out is implemented by the output variants. Every output variant carries a status.
type Out interface {
	serde.Serializable
	serde.Deserializable
	accepts(Type) bool
	cloneOut() Out
	status() int32
	setStatus(int32)
}

// Input is the client filled side of a message.
type Input struct {
	fields In
	// Variable-length attachment. Nil means no attachment.
	Data []byte
}

// Output is the server filled side of a message.
type Output struct {
	fields Out
	// Variable-length attachment. On a request it is the buffer the client lends for the reply, on a
	// reply it holds the reply data. Nil means no attachment.
	Data []byte
}

// Msg is the transport envelope multiplexing all message kinds.
type Msg struct {
	Type Type
	// Process ID of the sender, stamped by the transport.
	sender uint32
	In     Input
	Out    Output
}

// New returns a message of type t with zeroed variants on both sides.
func New(t Type) *Msg {
	return &Msg{
		Type: t,
		In:   Input{fields: newIn(t)},
		Out:  Output{fields: newOut(t)},
	}
}

func newIn(t Type) In {
	switch t {
	case TypeOpen, TypeClose, TypeDestroy:
		return &OpenIn{}
	case TypeRead, TypeWrite, TypeTruncate:
		return &IOIn{}
	case TypeDevCtl:
		return &DevCtlIn{}
	case TypeCreate:
		return &CreateIn{}
	case TypeLookup:
		return &LookupIn{}
	case TypeSetAttr, TypeGetAttr:
		return &AttrIn{}
	}
	return nil
}

func newOut(t Type) Out {
	switch t {
	case TypeOpen, TypeClose, TypeDestroy, TypeRead, TypeWrite, TypeTruncate:
		return &IOOut{}
	case TypeDevCtl:
		return &DevCtlOut{}
	case TypeCreate:
		return &CreateOut{}
	case TypeLookup:
		return &LookupOut{}
	case TypeSetAttr, TypeGetAttr:
		return &AttrOut{}
	}
	return nil
}

// Sender returns the process ID the transport attached to the message.
func (m *Msg) Sender() uint32 {
	return m.sender
}

// SetSender records the sending process. Only transports should call it, payload contents never
// influence the sender.
func (m *Msg) SetSender(pid uint32) {
	m.sender = pid
}

func (m *Msg) in() In {
	if m.In.fields == nil || !m.In.fields.accepts(m.Type) {
		m.In.fields = newIn(m.Type)
	}
	return m.In.fields
}

func (m *Msg) out() Out {
	if m.Out.fields == nil || !m.Out.fields.accepts(m.Type) {
		m.Out.fields = newOut(m.Type)
	}
	return m.Out.fields
}

// Status returns the status of the output side. Zero or positive means success (for read and write
// the number of bytes transferred), negative values are errno style failures.
func (m *Msg) Status() int32 {
	if o := m.out(); o != nil {
		return o.status()
	}
	return 0
}

// SetStatus sets the status of the output side.
func (m *Msg) SetStatus(status int32) {
	if o := m.out(); o != nil {
		o.setStatus(status)
	}
}

// Clone returns a deep copy of m including the sender. Attachments are copied, so the clone shares no
// memory with m.
func (m *Msg) Clone() *Msg {
	c := &Msg{Type: m.Type, sender: m.sender}
	if in := m.in(); in != nil {
		c.In.fields = in.cloneIn()
	}
	if out := m.out(); out != nil {
		c.Out.fields = out.cloneOut()
	}
	c.In.Data = cloneBytes(m.In.Data)
	c.Out.Data = cloneBytes(m.Out.Data)
	return c
}

// AdoptReply copies the output side of reply into m. Reply data is copied into the buffer m already
// lends when it fits (so callers holding that buffer see the data), otherwise m takes a copy. A reply
// without data leaves m without output data. The input side of m is never touched.
func (m *Msg) AdoptReply(reply *Msg) {
	if out := reply.out(); out != nil {
		m.Out.fields = out.cloneOut()
	}

	switch {
	case reply.Out.Data == nil:
		m.Out.Data = nil
	case m.Out.Data != nil && len(m.Out.Data) >= len(reply.Out.Data):
		n := copy(m.Out.Data, reply.Out.Data)
		m.Out.Data = m.Out.Data[:n]
	default:
		m.Out.Data = cloneBytes(reply.Out.Data)
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
