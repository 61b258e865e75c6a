package gateway

import (
	"time"

	"canvasd/internal/ids"
)

// NewConnectionID returns a ULID used as a websocket connection's session id.
func NewConnectionID(now time.Time) (string, error) {
	return ids.New(now)
}

// NewEnvelopeID returns a ULID used as an envelope id. ULID is preferable to
// random hex for tracing and ordering in logs.
func NewEnvelopeID(now time.Time) (string, error) {
	return ids.New(now)
}
