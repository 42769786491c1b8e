// Package ballot implements time-windowed vote rounds: one choice per
// eligible voter, overwritable until the deadline, resolved with a
// deterministic-plus-random tie-break policy.
package ballot

import (
	"log/slog"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"rally/cmd/internal/ids"
	"rally/cmd/internal/rng"
)

// DefaultWindow is the voting window when the caller does not override it.
const DefaultWindow = 2 * time.Minute

// Round is one live vote over a fixed eligible-voter set and a closed choice
// catalog.
//
// All state sits behind the round's own mutex; the deadline is re-checked
// inside the critical section on every cast, so a ballot racing the closing
// timer observes ErrRoundClosed rather than landing after resolution.
type Round struct {
	ID       string
	RoomID   string
	Deadline time.Time

	mu         sync.Mutex
	eligible   map[string]struct{}
	catalog    []string
	ballots    map[string]string
	tally      map[string]int
	closed     bool
	resolution *Resolution
	rnd        *rand.Rand
}

// Standing is one choice's running count.
type Standing struct {
	Choice string
	Votes  int
}

// Snapshot is the rendering view of a round: standings sorted by votes
// (catalog order breaking ties), remaining window, and voter progress.
type Snapshot struct {
	RoundID   string
	RoomID    string
	Standings []Standing
	Remaining time.Duration
	Voters    int
	Eligible  int
	Closed    bool
}

func (r *Round) snapshotLocked(now time.Time) Snapshot {
	standings := make([]Standing, 0, len(r.catalog))
	for _, c := range r.catalog {
		standings = append(standings, Standing{Choice: c, Votes: r.tally[c]})
	}
	sort.SliceStable(standings, func(i, j int) bool { return standings[i].Votes > standings[j].Votes })

	remaining := r.Deadline.Sub(now)
	if remaining < 0 || r.closed {
		remaining = 0
	}

	return Snapshot{
		RoundID:   r.ID,
		RoomID:    r.RoomID,
		Standings: standings,
		Remaining: remaining,
		Voters:    len(r.ballots),
		Eligible:  len(r.eligible),
		Closed:    r.closed,
	}
}

// Cast records the voter's latest choice.
//
// A prior ballot by the same voter is decremented (floored at zero) before
// the new choice is counted; only the latest ballot per voter ever counts.
func (r *Round) Cast(voter, choice string, now time.Time) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || !now.Before(r.Deadline) {
		return Snapshot{}, ErrRoundClosed
	}
	if _, ok := r.eligible[voter]; !ok {
		return Snapshot{}, ErrIneligible
	}
	if _, ok := r.tally[choice]; !ok {
		return Snapshot{}, ErrUnknownChoice
	}

	if prev, ok := r.ballots[voter]; ok {
		if r.tally[prev] > 0 {
			r.tally[prev]--
		}
	}
	r.ballots[voter] = choice
	r.tally[choice]++

	return r.snapshotLocked(now), nil
}

// Close resolves the round. Idempotent: the first call resolves, later calls
// return the stored resolution.
func (r *Round) Close(now time.Time) (Resolution, Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return *r.resolution, r.snapshotLocked(now)
	}

	r.closed = true
	res := Resolve(r.tally, r.catalog, r.rnd)
	r.resolution = &res
	return res, r.snapshotLocked(now)
}

// Aggregator tracks at most one live round per room.
type Aggregator struct {
	log    *slog.Logger
	window time.Duration

	newID   func(time.Time) (string, error)
	newRand func() (*rand.Rand, error)

	mu     sync.Mutex
	rounds map[string]*Round
}

// AggregatorOption configures the Aggregator.
type AggregatorOption func(*Aggregator) error

// WithWindow sets the voting window.
func WithWindow(d time.Duration) AggregatorOption {
	return func(a *Aggregator) error {
		if d <= 0 {
			return ErrInvalidInput
		}
		a.window = d
		return nil
	}
}

// WithRandFunc replaces the randomness constructor (tests inject fixed seeds).
func WithRandFunc(fn func() (*rand.Rand, error)) AggregatorOption {
	return func(a *Aggregator) error {
		if fn == nil {
			return ErrInvalidInput
		}
		a.newRand = fn
		return nil
	}
}

// WithIDFunc replaces the round id generator.
func WithIDFunc(fn func(time.Time) (string, error)) AggregatorOption {
	return func(a *Aggregator) error {
		if fn == nil {
			return ErrInvalidInput
		}
		a.newID = fn
		return nil
	}
}

// NewAggregator constructs an Aggregator with the default window.
func NewAggregator(log *slog.Logger, opts ...AggregatorOption) (*Aggregator, error) {
	if log == nil {
		return nil, ErrInvalidInput
	}
	a := &Aggregator{
		log:     log,
		window:  DefaultWindow,
		newID:   ids.NewULID,
		newRand: rng.New,
		rounds:  make(map[string]*Round),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Window returns the configured voting window.
func (a *Aggregator) Window() time.Duration { return a.window }

// Start opens a round for the room with zeroed tallies and a fixed deadline.
// The eligible-voter set is closed at this point; no voter can be added later.
func (a *Aggregator) Start(roomID string, eligibleVoters, choiceCatalog []string, now time.Time) (*Round, Snapshot, error) {
	if roomID == "" || len(choiceCatalog) == 0 {
		return nil, Snapshot{}, ErrInvalidInput
	}
	if len(eligibleVoters) < 2 {
		return nil, Snapshot{}, ErrInsufficientVoters
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := a.newID(now)
	if err != nil {
		return nil, Snapshot{}, err
	}
	rnd, err := a.newRand()
	if err != nil {
		return nil, Snapshot{}, err
	}

	eligible := make(map[string]struct{}, len(eligibleVoters))
	for _, v := range eligibleVoters {
		eligible[v] = struct{}{}
	}
	tally := make(map[string]int, len(choiceCatalog))
	catalogCopy := make([]string, len(choiceCatalog))
	copy(catalogCopy, choiceCatalog)
	for _, c := range catalogCopy {
		tally[c] = 0
	}

	r := &Round{
		ID:       id,
		RoomID:   roomID,
		Deadline: now.Add(a.window),
		eligible: eligible,
		catalog:  catalogCopy,
		ballots:  make(map[string]string, len(eligible)),
		tally:    tally,
		rnd:      rnd,
	}

	a.mu.Lock()
	if _, ok := a.rounds[roomID]; ok {
		a.mu.Unlock()
		return nil, Snapshot{}, ErrRoundActive
	}
	a.rounds[roomID] = r
	a.mu.Unlock()

	r.mu.Lock()
	snap := r.snapshotLocked(now)
	r.mu.Unlock()

	a.log.Info("vote.start", "round_id", id, "room_id", roomID, "eligible", len(eligible), "choices", len(catalogCopy), "deadline", r.Deadline)
	return r, snap, nil
}

// Cast records a ballot in the room's live round.
func (a *Aggregator) Cast(roomID, voter, choice string, now time.Time) (Snapshot, error) {
	a.mu.Lock()
	r, ok := a.rounds[roomID]
	a.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNoRound
	}
	return r.Cast(voter, choice, now)
}

// Close resolves the room's round and retires it. Safe to call more than
// once; after the round is retired further calls report ErrNoRound.
func (a *Aggregator) Close(roomID string, now time.Time) (Resolution, Snapshot, error) {
	a.mu.Lock()
	r, ok := a.rounds[roomID]
	if ok {
		delete(a.rounds, roomID)
	}
	a.mu.Unlock()
	if !ok {
		return Resolution{}, Snapshot{}, ErrNoRound
	}

	res, snap := r.Close(now)
	a.log.Info("vote.close", "round_id", r.ID, "room_id", roomID, "choice", res.Choice, "method", res.Method, "votes", res.Votes)
	return res, snap, nil
}
