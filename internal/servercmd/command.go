// Package servercmd implements the JSON command/reply codec that rides on
// top of opaque history.Message payloads: ServerCommand carries operator
// requests from client to server, ServerReply carries structured
// notifications back. The codec itself only ever sees raw JSON bytes —
// wrapping those bytes in a history.Message (type ServerCommand) is the
// caller's job, keeping this package free of a dependency on history.
package servercmd

import (
	"encoding/json"
	"log/slog"
)

// ServerCommand is a client->server operator command: {cmd, args?, kwargs?}.
type ServerCommand struct {
	Cmd    string         `json:"cmd"`
	Args   []any          `json:"args,omitempty"`
	Kwargs map[string]any `json:"kwargs,omitempty"`
}

// Empty reports whether c is the tolerant-parse sentinel (no command name).
func (c ServerCommand) Empty() bool { return c.Cmd == "" }

// Encode marshals c to its JSON wire form.
func (c ServerCommand) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeServerCommand decodes payload into a ServerCommand. Malformed JSON
// never fails the caller: it logs a warning (when log is non-nil) and
// returns the empty sentinel.
func DecodeServerCommand(payload []byte, log *slog.Logger) ServerCommand {
	var cmd ServerCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		if log != nil {
			log.Warn("servercmd.parse.bad_json", "err", err)
		}
		return ServerCommand{}
	}
	return cmd
}

// RateAutoresetOS rates a client-reported OS/platform string for the
// upper layer's auto-reset delegate choice: -1 for mobile/web platforms
// (prefer a lightweight delegate), 1 for desktop platforms (can afford a
// full raster delegate), 0 when unknown.
func RateAutoresetOS(os string) int {
	switch os {
	case "windows", "macos", "linux", "freebsd":
		return 1
	case "android", "ios", "web":
		return -1
	default:
		return 0
	}
}
