package history

import "encoding/binary"

// messageHeaderSize is the fixed framing header size used both on the wire
// and inside a ResetStream payload: a big-endian uint16 payload length,
// followed by a one-byte type and a one-byte context id.
const messageHeaderSize = 4

// DecodeMessages splits a buffer of concatenated framed messages into
// Message values. It returns the messages decoded so far and the number of
// bytes consumed; a short trailing header or payload is left unconsumed for
// the caller to carry forward into the next chunk.
func DecodeMessages(buf []byte) (msgs []Message, consumed int) {
	for {
		if len(buf)-consumed < messageHeaderSize {
			return msgs, consumed
		}
		hdr := buf[consumed : consumed+messageHeaderSize]
		length := int(binary.BigEndian.Uint16(hdr[0:2]))
		typ := MessageType(hdr[2])
		ctx := hdr[3]

		total := messageHeaderSize + length
		if len(buf)-consumed < total {
			return msgs, consumed
		}

		payload := make([]byte, length)
		copy(payload, buf[consumed+messageHeaderSize:consumed+total])
		msgs = append(msgs, NewMessage(typ, ctx, payload))
		consumed += total
	}
}

// EncodeMessage frames a single message using the same header layout
// DecodeMessages expects.
func EncodeMessage(m Message) []byte {
	out := make([]byte, messageHeaderSize+len(m.payload))
	binary.BigEndian.PutUint16(out[0:2], uint16(len(m.payload)))
	out[2] = byte(m.typ)
	out[3] = m.contextID
	copy(out[messageHeaderSize:], m.payload)
	return out
}
