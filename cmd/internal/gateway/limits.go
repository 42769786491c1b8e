package gateway

import "time"

// Transport limits.
const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 64 << 10 // 64 KiB

	// Max description/choice field length (runes) accepted from a client.
	maxFieldChars = 500
)

const (
	// Heartbeat defaults (can be overridden by env in gateway.go).
	heartbeatInterval = 25 * time.Second
	heartbeatTimeout  = 5 * time.Second

	// Per-connection rate limits (events per window).
	rateLimitEvents = 60
	rateLimitWindow = 10 * time.Second
)

const (
	// Window the roll initiator has to pick exclusions before the whole
	// assignment is abandoned.
	defaultRollSelectTimeout = 60 * time.Second
)
