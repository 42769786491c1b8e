package gateway

import (
	"sync"

	v1 "rally/shared/contracts/coord/v1"
)

// Client represents one connected websocket session.
//
// Design notes:
// - Send is intentionally NOT closed by the server to avoid panics from concurrent broadcasters.
// - memberID is written by the read loop during hello and read by the writer
//   and heartbeat goroutines, so access goes through the mutex.
// - done is used to signal goroutines to stop; Close is idempotent.
type Client struct {
	ConnID string
	Send   chan v1.Envelope

	mu       sync.Mutex
	memberID string

	done      chan struct{}
	closeOnce sync.Once
}

// NewClient constructs a Client with a bounded send queue.
func NewClient(connID string, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		ConnID: connID,
		Send:   make(chan v1.Envelope, sendQueueSize),
		done:   make(chan struct{}),
	}
}

// SetMemberID records the identity established by hello.
func (c *Client) SetMemberID(id string) {
	c.mu.Lock()
	c.memberID = id
	c.mu.Unlock()
}

// MemberID returns the identity established by hello, or "" before it.
func (c *Client) MemberID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.memberID
}

// Done returns a channel that is closed when the client is shutting down.
func (c *Client) Done() <-chan struct{} {
	if c == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// Close signals the client goroutines to stop (idempotent).
// It does NOT close Send to keep broadcast safe under concurrency.
func (c *Client) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
