package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version embedded into every envelope.
const Version = "v1"

// Wire-stable envelope types.
const (
	TypeHello    = "hello"
	TypeHelloAck = "hello_ack"

	TypeJoin    = "join"
	TypeJoinAck = "join_ack"

	TypeData = "data" // opaque canvas message, client<->server<->broadcast

	TypeCatchup  = "catchup"
	TypeCaughtUp = "caught_up"

	TypeServerCommand = "server_command"
	TypeServerReply   = "server_reply"

	TypeError = "error"
)

var allowedTypes = map[string]struct{}{
	TypeHello:         {},
	TypeHelloAck:      {},
	TypeJoin:          {},
	TypeJoinAck:       {},
	TypeData:          {},
	TypeCatchup:       {},
	TypeCaughtUp:      {},
	TypeServerCommand: {},
	TypeServerReply:   {},
	TypeError:         {},
}

// Envelope is the canonical wire wrapper exchanged over the websocket.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation of an inbound Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}
	if _, ok := allowedTypes[e.Type]; !ok {
		return fmt.Errorf("unknown type: %q", e.Type)
	}
	return nil
}

// HelloPayload starts a session handshake.
type HelloPayload struct {
	ClientKey string `json:"client_key"`
}

// HelloAckPayload acknowledges the handshake.
type HelloAckPayload struct {
	ConnectionID string `json:"connection_id"`
}

// JoinPayload requests membership in a canvas session.
type JoinPayload struct {
	SessionID   string `json:"session_id"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password,omitempty"`
	Invite      string `json:"invite,omitempty"`
}

// JoinAckPayload echoes the accepted join and the position the client
// should start tracking for canSkipToHistoryIndex purposes.
type JoinAckPayload struct {
	SessionID  string `json:"session_id"`
	StartID    int64  `json:"start_id"`
	HistoryPos int64  `json:"history_pos"`
	Op         bool   `json:"op"`
	Trusted    bool   `json:"trusted"`
}

// DataPayload carries one opaque history message.
type DataPayload struct {
	Type      uint8  `json:"type"`
	ContextID uint8  `json:"context_id"`
	Body      []byte `json:"body"`
}

// CatchupPayload announces the size of the backlog about to be streamed to
// a newly joined client, tagged with a rotating catch-up key so the client
// can recognize when it has drained the backlog up to this point.
type CatchupPayload struct {
	Key   int   `json:"key"`
	Count int64 `json:"count"`
}

// ErrorPayload is a generic error response payload.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
