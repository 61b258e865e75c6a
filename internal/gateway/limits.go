package gateway

import "time"

// Security/performance limits for the canvas websocket gateway.
const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 256 << 10 // 256 KiB, large enough for a batch of canvas drawing commands

	// Max bytes of a single canvas data message payload.
	maxMessagePayloadBytes = 192 << 10
)

const (
	// Heartbeat defaults (can be overridden by env in ws_gateway.go).
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection rate limits (events per window).
	rateLimitEvents = 120
	rateLimitWindow = 10 * time.Second
)
