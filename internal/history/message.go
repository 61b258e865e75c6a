package history

// MessageType identifies the wire type of a Message. The history engine
// treats most types as opaque payload; a handful of control/meta types are
// inspected to enforce the invariants in session.go and reset.go.
type MessageType uint8

// Control and server-meta type ranges mirror the wire protocol's own
// classification: types below firstControlType are regular canvas
// mutations, types in [firstControlType, firstServerMetaType) are session
// control messages, and types >= firstServerMetaType are server metadata
// (chat, join/leave notices, reset markers, and so on).
const (
	firstControlType    MessageType = 128
	firstServerMetaType MessageType = 192
)

// Well-known server-meta message types the engine constructs or inspects
// directly; everything else above firstServerMetaType is opaque chat/meta.
const (
	TypeResetStream   MessageType = 192
	TypeServerCommand MessageType = 193
	TypeSoftReset     MessageType = 194
	TypeCaughtUp      MessageType = 195
)

// Message is an opaque, immutable record in a session's append-only log.
// Payload is shared, never mutated after construction; copying a Message
// value is cheap.
type Message struct {
	typ       MessageType
	contextID uint8
	payload   []byte
}

// NewMessage constructs a Message. payload is retained, not copied: callers
// must not mutate it afterward.
func NewMessage(typ MessageType, contextID uint8, payload []byte) Message {
	return Message{typ: typ, contextID: contextID, payload: payload}
}

// Type returns the message's wire type.
func (m Message) Type() MessageType { return m.typ }

// ContextID returns the one-byte origin id (0 = server).
func (m Message) ContextID() uint8 { return m.contextID }

// Length returns the number of payload bytes, the unit size accounting is
// measured in.
func (m Message) Length() uint {
	return uint(len(m.payload))
}

// Payload returns the raw message bytes. Callers must treat the result as
// read-only.
func (m Message) Payload() []byte { return m.payload }

// IsControl reports whether the message is a session control message
// (join/leave, ping, and similar — never user canvas data).
func (m Message) IsControl() bool {
	return m.typ >= firstControlType && m.typ < firstServerMetaType
}

// IsServerMeta reports whether the message is server-originated metadata
// (chat, reset markers, commands).
func (m Message) IsServerMeta() bool {
	return m.typ >= firstServerMetaType
}

// ResetStreamPayload returns the raw bytes carried by a ResetStream message
// and whether the message actually is one.
func (m Message) ResetStreamPayload() ([]byte, bool) {
	if m.typ != TypeResetStream {
		return nil, false
	}
	return m.payload, true
}

// ServerCommandPayload returns the JSON blob carried by a ServerCommand
// message and whether the message actually is one.
func (m Message) ServerCommandPayload() ([]byte, bool) {
	if m.typ != TypeServerCommand {
		return nil, false
	}
	return m.payload, true
}

// WithContextID returns a copy of m with its context id replaced. Used by
// the streamed-reset consumer to force ownership of inbound messages onto
// the streaming client's context.
func (m Message) WithContextID(ctxID uint8) Message {
	m.contextID = ctxID
	return m
}
