package party

import (
	"log/slog"
	"strings"
	"time"

	"rally/cmd/internal/catalog"
	"rally/cmd/internal/ids"
)

// Capacity presets. "custom" is a ten-slot lobby for in-house matches.
var defaultPresets = map[string]int{
	"duo":    2,
	"trio":   3,
	"full":   5,
	"custom": 10,
}

// Service implements the recruitment lifecycle over a Store.
//
// Every operation resolves the target session, then enters that session's
// critical section; check-then-act sequences (capacity check, duplicate
// check) never leave it. Operations on different sessions run concurrently.
type Service struct {
	log   *slog.Logger
	store *Store

	presets map[string]int
	newID   func(time.Time) (string, error)
	prefs   map[string]struct{}
}

// Option configures the Service.
type Option func(*Service) error

// WithPresets replaces the capacity preset table.
func WithPresets(presets map[string]int) Option {
	return func(s *Service) error {
		if len(presets) == 0 {
			return ErrInvalidInput
		}
		for _, n := range presets {
			if n < 1 {
				return ErrInvalidInput
			}
		}
		s.presets = presets
		return nil
	}
}

// WithIDFunc replaces the session id generator (tests use fixed ids).
func WithIDFunc(fn func(time.Time) (string, error)) Option {
	return func(s *Service) error {
		if fn == nil {
			return ErrInvalidInput
		}
		s.newID = fn
		return nil
	}
}

// NewService constructs a Service with the default preset table and ULID ids.
func NewService(log *slog.Logger, store *Store, opts ...Option) (*Service, error) {
	if log == nil || store == nil {
		return nil, ErrInvalidInput
	}

	prefs := make(map[string]struct{})
	for _, e := range catalog.RolePreferences() {
		prefs[e.Value] = struct{}{}
	}

	s := &Service{
		log:     log,
		store:   store,
		presets: defaultPresets,
		newID:   ids.NewULID,
		prefs:   prefs,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// CreateInput describes session creation.
type CreateInput struct {
	OwnerID        string
	Mode           string
	Rank           string
	CapacityPreset string

	// ScheduleKind is "now", "time", or "date"; TimeOfDay and DateTime carry
	// the raw user input for the latter two.
	ScheduleKind string
	TimeOfDay    string
	DateTime     string

	VoiceTarget string
	Description string
	Now         time.Time
}

// Create opens a new recruitment session for the owner.
//
// The returned Relocation is non-nil only for immediate sessions, directing
// the owner into the voice target. Its execution is the caller's concern and
// does not affect session state.
func (s *Service) Create(in CreateInput) (Snapshot, *Relocation, error) {
	owner := strings.TrimSpace(in.OwnerID)
	if owner == "" {
		return Snapshot{}, nil, ErrInvalidInput
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	capacity, ok := s.presets[in.CapacityPreset]
	if !ok {
		return Snapshot{}, nil, ErrUnknownPreset
	}

	sched, err := ParseSchedule(in.ScheduleKind, in.TimeOfDay, in.DateTime, now)
	if err != nil {
		return Snapshot{}, nil, err
	}
	if sched.Kind == ScheduleNow && strings.TrimSpace(in.VoiceTarget) == "" {
		return Snapshot{}, nil, ErrVoiceRequired
	}

	id, err := s.newID(now)
	if err != nil {
		return Snapshot{}, nil, err
	}

	sess := newSession(id, owner, in.Mode, in.Rank, in.CapacityPreset, capacity, in.Description, sched, strings.TrimSpace(in.VoiceTarget), now)
	if err := s.store.Put(owner, sess); err != nil {
		return Snapshot{}, nil, err
	}

	sess.mu.Lock()
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	var reloc *Relocation
	if sched.Kind == ScheduleNow && sess.VoiceTarget != "" {
		reloc = &Relocation{MemberID: owner, Target: sess.VoiceTarget}
	}

	s.log.Info("party.create", "session_id", id, "owner_id", owner, "preset", in.CapacityPreset, "capacity", capacity, "schedule", sched.Display)
	return snap, reloc, nil
}

// Join adds the actor to the roster.
//
// When the join crosses into Full, the returned Notification is addressed to
// the owner. The Relocation (immediate sessions only) targets the actor.
func (s *Service) Join(actor, sessionID, preferredRole string) (Snapshot, *Relocation, *Notification, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return Snapshot{}, nil, nil, ErrInvalidInput
	}
	if preferredRole != "" {
		if _, ok := s.prefs[preferredRole]; !ok {
			return Snapshot{}, nil, nil, ErrUnknownRole
		}
	}

	sess, ok := s.store.FindByID(sessionID)
	if !ok {
		return Snapshot{}, nil, nil, ErrNotFound
	}

	sess.mu.Lock()
	if sess.ended {
		sess.mu.Unlock()
		return Snapshot{}, nil, nil, ErrNotFound
	}
	if sess.indexOfLocked(actor) >= 0 {
		sess.mu.Unlock()
		return Snapshot{}, nil, nil, ErrAlreadyJoined
	}
	if len(sess.participants) >= sess.Capacity {
		sess.mu.Unlock()
		return Snapshot{}, nil, nil, ErrFull
	}

	sess.participants = append(sess.participants, Participant{MemberID: actor, PreferredRole: preferredRole})
	becameFull := len(sess.participants) == sess.Capacity
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	var reloc *Relocation
	if sess.Schedule.Kind == ScheduleNow && sess.VoiceTarget != "" {
		reloc = &Relocation{MemberID: actor, Target: sess.VoiceTarget}
	}

	var note *Notification
	if becameFull {
		note = &Notification{
			Audience: []string{sess.OwnerID},
			Message:  "your party is full and ready to go",
		}
	}

	s.log.Info("party.join", "session_id", sess.ID, "member_id", actor, "role", preferredRole, "status", snap.Status)
	return snap, reloc, note, nil
}

// Leave removes the actor from the roster. Owners must Terminate instead.
func (s *Service) Leave(actor, sessionID string) (Snapshot, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return Snapshot{}, ErrInvalidInput
	}

	sess, ok := s.store.FindByID(sessionID)
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	sess.mu.Lock()
	if sess.ended {
		sess.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}
	if actor == sess.OwnerID {
		sess.mu.Unlock()
		return Snapshot{}, ErrOwnerCannotLeave
	}
	i := sess.indexOfLocked(actor)
	if i < 0 {
		sess.mu.Unlock()
		return Snapshot{}, ErrNotJoined
	}

	sess.participants = append(sess.participants[:i], sess.participants[i+1:]...)
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	s.log.Info("party.leave", "session_id", sess.ID, "member_id", actor, "status", snap.Status)
	return snap, nil
}

// Terminate ends the session and removes it from the store. Terminal: once a
// session is ended no further mutation is possible through any handle.
//
// The returned member ids are the joiners (owner excluded) for the closure
// notification.
func (s *Service) Terminate(actor, sessionID string) (Snapshot, []string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return Snapshot{}, nil, ErrInvalidInput
	}

	sess, ok := s.store.FindByID(sessionID)
	if !ok {
		return Snapshot{}, nil, ErrNotFound
	}

	sess.mu.Lock()
	if sess.ended {
		sess.mu.Unlock()
		return Snapshot{}, nil, ErrNotFound
	}
	if actor != sess.OwnerID {
		sess.mu.Unlock()
		return Snapshot{}, nil, ErrNotOwner
	}

	sess.ended = true
	snap := sess.snapshotLocked()
	sess.mu.Unlock()

	s.store.Remove(sess.OwnerID)

	joiners := make([]string, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		if p.MemberID != sess.OwnerID {
			joiners = append(joiners, p.MemberID)
		}
	}

	s.log.Info("party.end", "session_id", sess.ID, "owner_id", sess.OwnerID, "joiners", len(joiners))
	return snap, joiners, nil
}

// List returns snapshots of all live sessions; an empty result is not an error.
func (s *Service) List() []Snapshot {
	return s.store.All()
}

// Count reports the number of live sessions.
func (s *Service) Count() int {
	return s.store.Len()
}
