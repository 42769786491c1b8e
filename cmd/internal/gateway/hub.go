package gateway

import (
	"log/slog"
	"sync"

	v1 "rally/shared/contracts/coord/v1"
)

// Hub tracks connected clients and their room membership, and fans
// envelopes out to them. Sends are non-blocking: a client whose queue
// is full drops the frame (the drop is logged, the client stays up).
type Hub struct {
	log *slog.Logger

	mu       sync.RWMutex
	clients  map[string]*Client            // connID -> client
	byMember map[string]map[string]*Client // memberID -> connID -> client
	rooms    map[string]map[string]*Client // roomID -> connID -> client
	inRoom   map[string]string             // connID -> roomID (one room per conn)
}

// NewHub constructs an empty Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:      log,
		clients:  make(map[string]*Client),
		byMember: make(map[string]map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
		inRoom:   make(map[string]string),
	}
}

// Register adds an identified client and reports whether it was accepted.
// A client that is already shutting down is refused: Drop closes clients
// under this same lock, so a registration racing a teardown either lands
// before the removal or observes the closed client here.
func (h *Hub) Register(c *Client) bool {
	if c == nil || c.ConnID == "" {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	select {
	case <-c.Done():
		return false
	default:
	}

	h.clients[c.ConnID] = c
	if member := c.MemberID(); member != "" {
		conns := h.byMember[member]
		if conns == nil {
			conns = make(map[string]*Client)
			h.byMember[member] = conns
		}
		conns[c.ConnID] = c
	}
	return true
}

// Unregister removes a client and any room membership it held.
// It returns the room the connection was in, or "" if none.
func (h *Hub) Unregister(connID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.unregisterLocked(connID)
}

// Drop closes the client and removes it from the hub in one step under the
// hub lock. It returns the room the connection was in and whether the
// connection was actually registered.
func (h *Hub) Drop(c *Client) (string, bool) {
	if c == nil {
		return "", false
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	c.Close()
	_, registered := h.clients[c.ConnID]
	roomID := h.unregisterLocked(c.ConnID)
	return roomID, registered
}

func (h *Hub) unregisterLocked(connID string) string {
	c, ok := h.clients[connID]
	if !ok {
		return ""
	}
	delete(h.clients, connID)

	if member := c.MemberID(); member != "" {
		if conns := h.byMember[member]; conns != nil {
			delete(conns, connID)
			if len(conns) == 0 {
				delete(h.byMember, member)
			}
		}
	}

	roomID := h.inRoom[connID]
	if roomID != "" {
		h.leaveRoomLocked(roomID, connID)
	}
	return roomID
}

// JoinRoom places the connection in roomID, leaving any previous room
// first. It returns the room the connection left, or "" if none.
func (h *Hub) JoinRoom(roomID string, c *Client) string {
	if c == nil || roomID == "" {
		return ""
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	prev := h.inRoom[c.ConnID]
	if prev == roomID {
		return ""
	}
	if prev != "" {
		h.leaveRoomLocked(prev, c.ConnID)
	}

	members := h.rooms[roomID]
	if members == nil {
		members = make(map[string]*Client)
		h.rooms[roomID] = members
	}
	members[c.ConnID] = c
	h.inRoom[c.ConnID] = roomID
	return prev
}

// LeaveRoom removes the connection from roomID if it is a member.
func (h *Hub) LeaveRoom(roomID, connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inRoom[connID] != roomID {
		return
	}
	h.leaveRoomLocked(roomID, connID)
}

func (h *Hub) leaveRoomLocked(roomID, connID string) {
	if members := h.rooms[roomID]; members != nil {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	delete(h.inRoom, connID)
}

// RoomSize reports how many connections are in roomID.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastAll sends env to every connected client.
func (h *Hub) BroadcastAll(env v1.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		h.offer(c, env)
	}
}

// BroadcastRoom sends env to every connection in roomID.
func (h *Hub) BroadcastRoom(roomID string, env v1.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.rooms[roomID] {
		h.offer(c, env)
	}
}

// SendToMember sends env to every connection held by memberID.
// It reports whether at least one connection received the frame.
func (h *Hub) SendToMember(memberID string, env v1.Envelope) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := false
	for _, c := range h.byMember[memberID] {
		if h.offer(c, env) {
			sent = true
		}
	}
	return sent
}

// SendToConn sends env to a single connection.
func (h *Hub) SendToConn(connID string, env v1.Envelope) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	if !ok {
		return false
	}
	return h.offer(c, env)
}

func (h *Hub) offer(c *Client, env v1.Envelope) bool {
	select {
	case c.Send <- env:
		return true
	default:
		h.log.Warn("ws.drop.slow_client", "conn_id", c.ConnID, "type", env.Type)
		return false
	}
}
