package devmsg

import "github.com/thinkparq/devctl/common/devmsg/serde"

// Per-kind variants of the inline region. Each variant serializes to at most RawSize bytes and is
// only reachable through the accessor matching the message type, so fields of one kind can never be
// misread as another.

// DevCtlIn is the input variant of a TypeDevCtl message.
type DevCtlIn struct {
	// The raw ioctl command word.
	Request uint32
	// Object or stream ID chosen by the client. Unrelated to the sender identity.
	ID uint64
	// Small payloads travel inline, larger ones in Input.Data.
	Inline [DevCtlInlineIn]byte
}

func (v *DevCtlIn) accepts(t Type) bool { return t == TypeDevCtl }
func (v *DevCtlIn) cloneIn() In         { c := *v; return &c }

func (v *DevCtlIn) Serialize(s *serde.Serializer) {
	serde.SerializeInt(s, v.Request)
	serde.SerializeInt(s, v.ID)
	serde.SerializeBytes(s, v.Inline[:])
}

func (v *DevCtlIn) Deserialize(d *serde.Deserializer) {
	serde.DeserializeInt(d, &v.Request)
	serde.DeserializeInt(d, &v.ID)
	serde.DeserializeBytes(d, v.Inline[:])
}

// DevCtlOut is the output variant of a TypeDevCtl message.
type DevCtlOut struct {
	// The request word echoed back so replies can be correlated with requests.
	Request uint32
	Err     int32
	// Small responses are written inline, larger ones into Output.Data.
	Inline [DevCtlInlineOut]byte
}

func (v *DevCtlOut) accepts(t Type) bool { return t == TypeDevCtl }
func (v *DevCtlOut) cloneOut() Out       { c := *v; return &c }
func (v *DevCtlOut) status() int32       { return v.Err }
func (v *DevCtlOut) setStatus(e int32)   { v.Err = e }

func (v *DevCtlOut) Serialize(s *serde.Serializer) {
	serde.SerializeInt(s, v.Request)
	serde.SerializeInt(s, v.Err)
	serde.SerializeBytes(s, v.Inline[:])
}

func (v *DevCtlOut) Deserialize(d *serde.Deserializer) {
	serde.DeserializeInt(d, &v.Request)
	serde.DeserializeInt(d, &v.Err)
	serde.DeserializeBytes(d, v.Inline[:])
}

// OpenIn is the input variant of open, close and destroy.
type OpenIn struct {
	OID   OID
	Flags uint32
}

func (v *OpenIn) accepts(t Type) bool {
	return t == TypeOpen || t == TypeClose || t == TypeDestroy
}
func (v *OpenIn) cloneIn() In { c := *v; return &c }

func (v *OpenIn) Serialize(s *serde.Serializer) {
	v.OID.Serialize(s)
	serde.SerializeInt(s, v.Flags)
}

func (v *OpenIn) Deserialize(d *serde.Deserializer) {
	v.OID.Deserialize(d)
	serde.DeserializeInt(d, &v.Flags)
}

// IOIn is the input variant of read, write and truncate. Write data travels in Input.Data, read data
// comes back in Output.Data.
type IOIn struct {
	OID  OID
	Offs int64
	Len  uint64
	Mode uint32
}

func (v *IOIn) accepts(t Type) bool {
	return t == TypeRead || t == TypeWrite || t == TypeTruncate
}
func (v *IOIn) cloneIn() In { c := *v; return &c }

func (v *IOIn) Serialize(s *serde.Serializer) {
	v.OID.Serialize(s)
	serde.SerializeInt(s, v.Offs)
	serde.SerializeInt(s, v.Len)
	serde.SerializeInt(s, v.Mode)
}

func (v *IOIn) Deserialize(d *serde.Deserializer) {
	v.OID.Deserialize(d)
	serde.DeserializeInt(d, &v.Offs)
	serde.DeserializeInt(d, &v.Len)
	serde.DeserializeInt(d, &v.Mode)
}

// IOOut is the output variant of open, close, destroy, read, write and truncate. For read and write
// a non-negative Err is the number of bytes transferred.
type IOOut struct {
	Err int32
}

func (v *IOOut) accepts(t Type) bool {
	switch t {
	case TypeOpen, TypeClose, TypeDestroy, TypeRead, TypeWrite, TypeTruncate:
		return true
	}
	return false
}
func (v *IOOut) cloneOut() Out     { c := *v; return &c }
func (v *IOOut) status() int32     { return v.Err }
func (v *IOOut) setStatus(e int32) { v.Err = e }

func (v *IOOut) Serialize(s *serde.Serializer)     { serde.SerializeInt(s, v.Err) }
func (v *IOOut) Deserialize(d *serde.Deserializer) { serde.DeserializeInt(d, &v.Err) }

// CreateIn is the input variant of create. The name of the new object travels in Input.Data.
type CreateIn struct {
	Dir  OID
	Dev  OID
	Kind uint32
	Mode uint32
}

func (v *CreateIn) accepts(t Type) bool { return t == TypeCreate }
func (v *CreateIn) cloneIn() In         { c := *v; return &c }

func (v *CreateIn) Serialize(s *serde.Serializer) {
	v.Dir.Serialize(s)
	v.Dev.Serialize(s)
	serde.SerializeInt(s, v.Kind)
	serde.SerializeInt(s, v.Mode)
}

func (v *CreateIn) Deserialize(d *serde.Deserializer) {
	v.Dir.Deserialize(d)
	v.Dev.Deserialize(d)
	serde.DeserializeInt(d, &v.Kind)
	serde.DeserializeInt(d, &v.Mode)
}

type CreateOut struct {
	OID OID
	Err int32
}

func (v *CreateOut) accepts(t Type) bool { return t == TypeCreate }
func (v *CreateOut) cloneOut() Out       { c := *v; return &c }
func (v *CreateOut) status() int32       { return v.Err }
func (v *CreateOut) setStatus(e int32)   { v.Err = e }

func (v *CreateOut) Serialize(s *serde.Serializer) {
	v.OID.Serialize(s)
	serde.SerializeInt(s, v.Err)
}

func (v *CreateOut) Deserialize(d *serde.Deserializer) {
	v.OID.Deserialize(d)
	serde.DeserializeInt(d, &v.Err)
}

// LookupIn is the input variant of lookup. The name travels in Input.Data.
type LookupIn struct {
	Dir OID
}

func (v *LookupIn) accepts(t Type) bool               { return t == TypeLookup }
func (v *LookupIn) cloneIn() In                       { c := *v; return &c }
func (v *LookupIn) Serialize(s *serde.Serializer)     { v.Dir.Serialize(s) }
func (v *LookupIn) Deserialize(d *serde.Deserializer) { v.Dir.Deserialize(d) }

type LookupOut struct {
	Fil OID
	Dev OID
	Err int32
}

func (v *LookupOut) accepts(t Type) bool { return t == TypeLookup }
func (v *LookupOut) cloneOut() Out       { c := *v; return &c }
func (v *LookupOut) status() int32       { return v.Err }
func (v *LookupOut) setStatus(e int32)   { v.Err = e }

func (v *LookupOut) Serialize(s *serde.Serializer) {
	v.Fil.Serialize(s)
	v.Dev.Serialize(s)
	serde.SerializeInt(s, v.Err)
}

func (v *LookupOut) Deserialize(d *serde.Deserializer) {
	v.Fil.Deserialize(d)
	v.Dev.Deserialize(d)
	serde.DeserializeInt(d, &v.Err)
}

// AttrIn is the input variant of getattr and setattr.
type AttrIn struct {
	OID  OID
	Attr uint32
	Val  int64
}

func (v *AttrIn) accepts(t Type) bool { return t == TypeGetAttr || t == TypeSetAttr }
func (v *AttrIn) cloneIn() In         { c := *v; return &c }

func (v *AttrIn) Serialize(s *serde.Serializer) {
	v.OID.Serialize(s)
	serde.SerializeInt(s, v.Attr)
	serde.SerializeInt(s, v.Val)
}

func (v *AttrIn) Deserialize(d *serde.Deserializer) {
	v.OID.Deserialize(d)
	serde.DeserializeInt(d, &v.Attr)
	serde.DeserializeInt(d, &v.Val)
}

type AttrOut struct {
	Val int64
	Err int32
}

func (v *AttrOut) accepts(t Type) bool { return t == TypeGetAttr || t == TypeSetAttr }
func (v *AttrOut) cloneOut() Out       { c := *v; return &c }
func (v *AttrOut) status() int32       { return v.Err }
func (v *AttrOut) setStatus(e int32)   { v.Err = e }

func (v *AttrOut) Serialize(s *serde.Serializer) {
	serde.SerializeInt(s, v.Val)
	serde.SerializeInt(s, v.Err)
}

func (v *AttrOut) Deserialize(d *serde.Deserializer) {
	serde.DeserializeInt(d, &v.Val)
	serde.DeserializeInt(d, &v.Err)
}

// Accessors. Each returns ok=false when the message is of a different kind.

func (m *Msg) DevCtlIn() (*DevCtlIn, bool) {
	if m.Type != TypeDevCtl {
		return nil, false
	}
	v, ok := m.in().(*DevCtlIn)
	return v, ok
}

func (m *Msg) DevCtlOut() (*DevCtlOut, bool) {
	if m.Type != TypeDevCtl {
		return nil, false
	}
	v, ok := m.out().(*DevCtlOut)
	return v, ok
}

func (m *Msg) OpenIn() (*OpenIn, bool) {
	v, ok := m.in().(*OpenIn)
	return v, ok
}

func (m *Msg) IOIn() (*IOIn, bool) {
	v, ok := m.in().(*IOIn)
	return v, ok
}

func (m *Msg) IOOut() (*IOOut, bool) {
	v, ok := m.out().(*IOOut)
	return v, ok
}

func (m *Msg) CreateIn() (*CreateIn, bool) {
	v, ok := m.in().(*CreateIn)
	return v, ok
}

func (m *Msg) CreateOut() (*CreateOut, bool) {
	v, ok := m.out().(*CreateOut)
	return v, ok
}

func (m *Msg) LookupIn() (*LookupIn, bool) {
	v, ok := m.in().(*LookupIn)
	return v, ok
}

func (m *Msg) LookupOut() (*LookupOut, bool) {
	v, ok := m.out().(*LookupOut)
	return v, ok
}

func (m *Msg) AttrIn() (*AttrIn, bool) {
	v, ok := m.in().(*AttrIn)
	return v, ok
}

func (m *Msg) AttrOut() (*AttrOut, bool) {
	v, ok := m.out().(*AttrOut)
	return v, ok
}
