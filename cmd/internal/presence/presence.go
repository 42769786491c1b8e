// Package presence answers "who is currently in this room". The coordinator
// captures vote eligibility and roll pools from it at operation start.
package presence

import (
	"context"
	"sort"
	"sync"
)

// Provider is the room-presence lookup boundary.
type Provider interface {
	// MembersIn returns the member ids currently present in roomID.
	MembersIn(ctx context.Context, roomID string) ([]string, error)
}

// Memory tracks presence in-process, fed by the gateway's room join/leave
// traffic. It is the default when no database is configured.
type Memory struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewMemory constructs an empty in-memory presence tracker.
func NewMemory() *Memory {
	return &Memory{rooms: make(map[string]map[string]struct{})}
}

// Join records memberID as present in roomID.
func (m *Memory) Join(roomID, memberID string) {
	if roomID == "" || memberID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.rooms[roomID]
	if r == nil {
		r = make(map[string]struct{})
		m.rooms[roomID] = r
	}
	r[memberID] = struct{}{}
}

// Leave removes memberID from roomID, dropping the room once empty.
func (m *Memory) Leave(roomID, memberID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.rooms[roomID]
	if r == nil {
		return
	}
	delete(r, memberID)
	if len(r) == 0 {
		delete(m.rooms, roomID)
	}
}

// MembersIn returns the members present in roomID, sorted for determinism.
func (m *Memory) MembersIn(ctx context.Context, roomID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	r := m.rooms[roomID]
	out := make([]string, 0, len(r))
	for id := range r {
		out = append(out, id)
	}
	m.mu.RUnlock()

	sort.Strings(out)
	return out, nil
}
