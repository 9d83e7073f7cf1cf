package devmsg

import (
	"fmt"

	"github.com/thinkparq/devctl/common/devmsg/serde"
)

// AssembleRequest serializes the input side of m into a complete frame (header + body). The body also
// carries the size of the output buffer the client lends, so the receiver can allocate it.
func AssembleRequest(m *Msg, seq uint64) ([]byte, error) {
	in := m.in()
	if in == nil {
		return nil, fmt.Errorf("cannot assemble message of type %s", m.Type)
	}

	header := NewHeader(m.Type, seq, 0)
	header.Sender = m.sender

	return assemble(header, func(s *serde.Serializer) {
		in.Serialize(s)
		serde.SerializeBlob(s, m.In.Data)
		if m.Out.Data == nil {
			serde.SerializeInt(s, uint32(serde.NoBlob))
		} else {
			serde.SerializeInt(s, uint32(len(m.Out.Data)))
		}
	})
}

// AssembleResponse serializes the output side of m into a complete frame.
func AssembleResponse(m *Msg, seq uint64) ([]byte, error) {
	out := m.out()
	if out == nil {
		return nil, fmt.Errorf("cannot assemble message of type %s", m.Type)
	}

	header := NewHeader(m.Type, seq, FlagResponse)
	header.Sender = m.sender

	return assemble(header, func(s *serde.Serializer) {
		out.Serialize(s)
		serde.SerializeBlob(s, m.Out.Data)
	})
}

func assemble(header Header, body func(*serde.Serializer)) ([]byte, error) {
	s := serde.NewSerializer(make([]byte, 0, 256))
	header.Serialize(&s)
	body(&s)
	if err := s.Finish(); err != nil {
		return nil, fmt.Errorf("frame serialization failed: %w", err)
	}

	// Once the buffer is handed to NewSerializer it may be reallocated, so only touch the final
	// buffer from here on.
	finalBuf := s.Buf.Bytes()
	if err := OverwriteMsgLen(finalBuf[0:HeaderLen], uint32(len(finalBuf))); err != nil {
		return nil, err
	}
	return finalBuf, nil
}

// DisassembleHeader deserializes a serialized header.
func DisassembleHeader(bufHeader []byte) (Header, error) {
	header := Header{}
	if !IsSerializedHeader(bufHeader) {
		return header, fmt.Errorf("invalid header")
	}
	d := serde.NewDeserializer(bufHeader)
	header.Deserialize(&d)
	if err := d.Finish(); err != nil {
		return header, fmt.Errorf("header deserialization failed: %w", err)
	}
	if !header.Type.Valid() {
		return header, fmt.Errorf("unknown message type %d", uint32(header.Type))
	}
	return header, nil
}

// DisassembleRequest builds a new message from a request frame body. If the client lends an output
// buffer, a zeroed buffer of the same size is allocated. The sender is taken from the header, servers
// are expected to overwrite it with the identity of the connection.
func DisassembleRequest(header Header, bufBody []byte) (*Msg, error) {
	if header.IsResponse() {
		return nil, fmt.Errorf("expected a request frame, got a response")
	}

	m := New(header.Type)
	m.sender = header.Sender

	var outCap uint32
	d := serde.NewDeserializer(bufBody)
	m.In.fields.Deserialize(&d)
	serde.DeserializeBlob(&d, &m.In.Data)
	serde.DeserializeInt(&d, &outCap)
	if err := d.Finish(); err != nil {
		return nil, fmt.Errorf("request deserialization failed: %w", err)
	}

	if outCap != serde.NoBlob {
		if outCap > serde.MaxBlobLen {
			return nil, fmt.Errorf("lent output buffer of %d bytes exceeds the maximum of %d bytes", outCap, serde.MaxBlobLen)
		}
		m.Out.Data = make([]byte, outCap)
	}
	return m, nil
}

// DisassembleResponse deserializes a response frame body into a new message carrying only the
// output side. Use Msg.AdoptReply to merge it into the original request.
func DisassembleResponse(header Header, bufBody []byte) (*Msg, error) {
	if !header.IsResponse() {
		return nil, fmt.Errorf("expected a response frame, got a request")
	}

	m := New(header.Type)
	m.sender = header.Sender

	d := serde.NewDeserializer(bufBody)
	m.Out.fields.Deserialize(&d)
	serde.DeserializeBlob(&d, &m.Out.Data)
	if err := d.Finish(); err != nil {
		return nil, fmt.Errorf("response deserialization failed: %w", err)
	}
	return m, nil
}
