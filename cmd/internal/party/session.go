// Package party implements recruitment sessions: a keyed store of live
// sessions and the lifecycle operations that admit, remove, and terminate
// participants under capacity and ownership constraints.
package party

import (
	"sync"
	"time"
)

// Status is the capacity state of a session. There is no terminal status
// value: a terminated session is removed from the store, not tombstoned.
type Status string

const (
	StatusOpen Status = "open"
	StatusFull Status = "full"
)

// Participant is one roster entry. PreferredRole is empty when the member
// joined without stating a preference.
type Participant struct {
	MemberID      string
	PreferredRole string
}

// Session is one live recruitment post.
//
// Concurrency model: the struct's own mutex is the per-session critical
// section. All roster reads and writes go through it; the Store's lock only
// guards the owner index. The immutable header fields (ID, OwnerID, capacity,
// schedule) are written once at construction and never mutated after.
type Session struct {
	ID          string
	OwnerID     string
	Mode        string
	Rank        string
	Preset      string
	Capacity    int
	Description string
	Schedule    Schedule
	VoiceTarget string
	CreatedAt   time.Time

	mu           sync.Mutex
	ended        bool
	participants []Participant
}

// newSession constructs a live session. The owner occupies the first roster
// slot from the start, so a "trio" session needs two joiners to fill.
func newSession(id, owner, mode, rank, preset string, capacity int, desc string, sched Schedule, voice string, now time.Time) *Session {
	return &Session{
		ID:           id,
		OwnerID:      owner,
		Mode:         mode,
		Rank:         rank,
		Preset:       preset,
		Capacity:     capacity,
		Description:  desc,
		Schedule:     sched,
		VoiceTarget:  voice,
		CreatedAt:    now,
		participants: []Participant{{MemberID: owner}},
	}
}

func (s *Session) statusLocked() Status {
	if len(s.participants) >= s.Capacity {
		return StatusFull
	}
	return StatusOpen
}

func (s *Session) indexOfLocked(memberID string) int {
	for i, p := range s.participants {
		if p.MemberID == memberID {
			return i
		}
	}
	return -1
}

func (s *Session) snapshotLocked() Snapshot {
	roster := make([]Participant, len(s.participants))
	copy(roster, s.participants)

	return Snapshot{
		ID:           s.ID,
		OwnerID:      s.OwnerID,
		Mode:         s.Mode,
		Rank:         s.Rank,
		Preset:       s.Preset,
		Capacity:     s.Capacity,
		Description:  s.Description,
		Schedule:     s.Schedule,
		VoiceTarget:  s.VoiceTarget,
		CreatedAt:    s.CreatedAt,
		Participants: roster,
		Status:       s.statusLocked(),
	}
}

// Snapshot is an immutable copy of session state handed to renderers.
type Snapshot struct {
	ID           string
	OwnerID      string
	Mode         string
	Rank         string
	Preset       string
	Capacity     int
	Description  string
	Schedule     Schedule
	VoiceTarget  string
	CreatedAt    time.Time
	Participants []Participant
	Status       Status
}

// SlotsLeft reports how many more members can join.
func (s Snapshot) SlotsLeft() int {
	n := s.Capacity - len(s.Participants)
	if n < 0 {
		return 0
	}
	return n
}

// Relocation instructs the transport collaborator to move a member into a
// voice room. Execution is best-effort and independent of session state.
type Relocation struct {
	MemberID string
	Target   string
}

// Notification is a message addressed to a specific audience, never broadcast
// beyond it.
type Notification struct {
	Audience []string
	Message  string
}
