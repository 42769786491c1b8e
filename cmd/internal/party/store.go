package party

import (
	"sort"
	"sync"
)

// Store is the registry of live sessions, keyed by owner: an owner may have
// at most one live session at a time.
//
// The store's lock guards only the index. Roster state inside each session is
// guarded by the session's own mutex, so operations on different sessions
// proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	byOwner map[string]*Session
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{byOwner: make(map[string]*Session)}
}

// Put registers a session for its owner.
// Returns ErrDuplicateSession when the owner already has a live session.
func (st *Store) Put(ownerID string, s *Session) error {
	if ownerID == "" || s == nil {
		return ErrInvalidInput
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.byOwner[ownerID]; ok {
		return ErrDuplicateSession
	}
	st.byOwner[ownerID] = s
	return nil
}

// Get returns the owner's live session, if any.
func (st *Store) Get(ownerID string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.byOwner[ownerID]
	return s, ok
}

// FindByID returns the session with the given id.
// Linear scan: the live-session population is interactively small.
func (st *Store) FindByID(sessionID string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, s := range st.byOwner {
		if s.ID == sessionID {
			return s, true
		}
	}
	return nil, false
}

// Remove drops the owner's session from the index.
func (st *Store) Remove(ownerID string) {
	st.mu.Lock()
	delete(st.byOwner, ownerID)
	st.mu.Unlock()
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.byOwner)
}

// All returns consistent snapshots of every live session, ordered by creation
// time. Each session is locked individually while snapshotting, so no session
// appears in a partially mutated state; sessions terminated mid-iteration are
// skipped.
func (st *Store) All() []Snapshot {
	st.mu.RLock()
	live := make([]*Session, 0, len(st.byOwner))
	for _, s := range st.byOwner {
		live = append(live, s)
	}
	st.mu.RUnlock()

	out := make([]Snapshot, 0, len(live))
	for _, s := range live {
		s.mu.Lock()
		if !s.ended {
			out = append(out, s.snapshotLocked())
		}
		s.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
