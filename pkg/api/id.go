package api

import (
	"fmt"
	"time"
)

// NewRequestID returns the per-request identifier that response, message
// and call IDs are derived from: the current time in nanoseconds, hex
// encoded. Monotonic within a process and cheap to correlate with logs.
func NewRequestID() string {
	return fmt.Sprintf("%x", time.Now().UnixNano())
}

// ResponseIDFor derives the response ID for a request.
func ResponseIDFor(requestID string) string {
	return "resp_" + requestID
}
