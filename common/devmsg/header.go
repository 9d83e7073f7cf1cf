package devmsg

// The frame header used when messages travel over a byte stream.

import (
	"encoding/binary"
	"fmt"

	"github.com/thinkparq/devctl/common/devmsg/serde"
)

const (
	HeaderLen = 32
	// Fixed value for identifying frames ("DEVM"). The low 32 bits carry the protocol version.
	MsgPrefix = (0x4445564D << 32) + 1
	// MaxMsgLen bounds the size of a single frame.
	MaxMsgLen = HeaderLen + 2*RawSize + 3*4 + 2*serde.MaxBlobLen
)

// Header flags.
const (
	// FlagResponse marks a frame carrying the output side of a message.
	FlagResponse uint16 = 1 << 0
)

// The frame header
type Header struct {
	// The total frame length, including the header
	MsgLen uint32
	Flags  uint16
	// Unused, keeps Prefix 8 byte aligned
	Reserved uint16
	// Fixed value that identifies frames (see const MsgPrefix)
	MsgPrefix uint64
	Type      Type
	// The sender PID as seen by the party that wrote the frame. Servers ignore the value received
	// from clients and use the identity of the connection instead.
	Sender uint32
	// Correlates responses with requests on a pipelined connection.
	Seq uint64
}

// Returns a new header for a frame of the given type. MsgLen is filled with 0xFF as a placeholder and
// overwritten once the body has been serialized.
func NewHeader(t Type, seq uint64, flags uint16) Header {
	return Header{
		MsgLen:    0xFFFFFFFF,
		Flags:     flags,
		MsgPrefix: MsgPrefix,
		Type:      t,
		Seq:       seq,
	}
}

// IsResponse reports whether the frame carries a response.
func (t *Header) IsResponse() bool {
	return t.Flags&FlagResponse != 0
}

func (t *Header) Serialize(s *serde.Serializer) {
	serde.SerializeInt(s, t.MsgLen)
	serde.SerializeInt(s, t.Flags)
	serde.SerializeInt(s, t.Reserved)
	serde.SerializeInt(s, t.MsgPrefix)
	serde.SerializeInt(s, uint32(t.Type))
	serde.SerializeInt(s, t.Sender)
	serde.SerializeInt(s, t.Seq)
}

func (t *Header) Deserialize(d *serde.Deserializer) {
	var msgType uint32
	serde.DeserializeInt(d, &t.MsgLen)
	serde.DeserializeInt(d, &t.Flags)
	serde.DeserializeInt(d, &t.Reserved)
	serde.DeserializeInt(d, &t.MsgPrefix)
	serde.DeserializeInt(d, &msgType)
	serde.DeserializeInt(d, &t.Sender)
	serde.DeserializeInt(d, &t.Seq)
	t.Type = Type(msgType)
}

// Checks the given slice for being a serialized header
func IsSerializedHeader(serHeader []byte) bool {
	return len(serHeader) == HeaderLen && binary.LittleEndian.Uint64(serHeader[8:16]) == MsgPrefix
}

// Retrieves the MsgLen field from a serialized header. Returns an error if the byte slice is not a
// valid header or the length is out of range.
func ExtractMsgLen(serHeader []byte) (uint32, error) {
	if !IsSerializedHeader(serHeader) {
		return 0, fmt.Errorf("invalid header")
	}

	msgLen := binary.LittleEndian.Uint32(serHeader[0:4])
	if msgLen < HeaderLen || msgLen > MaxMsgLen {
		return 0, fmt.Errorf("invalid frame length %d", msgLen)
	}
	return msgLen, nil
}

// Sets the MsgLen field in the serialized header. Necessary because the length of the body is only
// known after it has been serialized, but the header has to go into the buffer first.
func OverwriteMsgLen(serHeader []byte, msgLen uint32) error {
	if !IsSerializedHeader(serHeader) {
		return fmt.Errorf("invalid header")
	}

	binary.LittleEndian.PutUint32(serHeader[0:4], msgLen)

	return nil
}
