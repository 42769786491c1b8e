package ballot

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"rally/cmd/internal/rng"
)

var testCatalog = []string{"ascent", "bind", "haven", "split"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAggregator(t *testing.T, seed uint64, opts ...AggregatorOption) *Aggregator {
	t.Helper()

	var seq int
	base := []AggregatorOption{
		WithIDFunc(func(_ time.Time) (string, error) {
			seq++
			return fmt.Sprintf("round-%04d", seq), nil
		}),
		WithRandFunc(func() (*rand.Rand, error) {
			return rng.NewSeeded(seed), nil
		}),
	}
	a, err := NewAggregator(testLogger(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return a
}

func TestStartValidation(t *testing.T) {
	t.Parallel()
	a := newTestAggregator(t, 1)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if _, _, err := a.Start("", []string{"a", "b"}, testCatalog, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty room: err=%v want=%v", err, ErrInvalidInput)
	}
	if _, _, err := a.Start("room-1", []string{"solo"}, testCatalog, now); !errors.Is(err, ErrInsufficientVoters) {
		t.Fatalf("one voter: err=%v want=%v", err, ErrInsufficientVoters)
	}

	if _, _, err := a.Start("room-1", []string{"a", "b"}, testCatalog, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := a.Start("room-1", []string{"a", "b"}, testCatalog, now); !errors.Is(err, ErrRoundActive) {
		t.Fatalf("second start: err=%v want=%v", err, ErrRoundActive)
	}

	// A second room is independent.
	if _, _, err := a.Start("room-2", []string{"a", "b"}, testCatalog, now); err != nil {
		t.Fatalf("second room start: %v", err)
	}
}

func TestCastRules(t *testing.T) {
	t.Parallel()
	a := newTestAggregator(t, 1)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if _, err := a.Cast("room-1", "a", "ascent", now); !errors.Is(err, ErrNoRound) {
		t.Fatalf("cast without round: err=%v want=%v", err, ErrNoRound)
	}

	if _, _, err := a.Start("room-1", []string{"a", "b", "c"}, testCatalog, now); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := a.Cast("room-1", "stranger", "ascent", now); !errors.Is(err, ErrIneligible) {
		t.Fatalf("ineligible: err=%v want=%v", err, ErrIneligible)
	}
	if _, err := a.Cast("room-1", "a", "fracture", now); !errors.Is(err, ErrUnknownChoice) {
		t.Fatalf("unknown choice: err=%v want=%v", err, ErrUnknownChoice)
	}

	snap, err := a.Cast("room-1", "a", "ascent", now)
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if snap.Voters != 1 {
		t.Fatalf("voters=%d want=1", snap.Voters)
	}
	if got := votesFor(snap, "ascent"); got != 1 {
		t.Fatalf("ascent=%d want=1", got)
	}
}

func TestRevoteMovesTheBallot(t *testing.T) {
	t.Parallel()
	a := newTestAggregator(t, 1)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if _, _, err := a.Start("room-1", []string{"a", "b"}, testCatalog, now); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := a.Cast("room-1", "a", "ascent", now); err != nil {
		t.Fatalf("cast: %v", err)
	}
	snap, err := a.Cast("room-1", "a", "bind", now.Add(time.Second))
	if err != nil {
		t.Fatalf("revote: %v", err)
	}

	if snap.Voters != 1 {
		t.Fatalf("voters=%d want=1 after revote", snap.Voters)
	}
	if got := votesFor(snap, "ascent"); got != 0 {
		t.Fatalf("ascent=%d want=0 after revote", got)
	}
	if got := votesFor(snap, "bind"); got != 1 {
		t.Fatalf("bind=%d want=1 after revote", got)
	}

	total := 0
	for _, st := range snap.Standings {
		total += st.Votes
	}
	if total != 1 {
		t.Fatalf("total votes=%d want=1 (one ballot per voter)", total)
	}
}

func TestCastAfterDeadlineIsRejected(t *testing.T) {
	t.Parallel()
	a := newTestAggregator(t, 1, WithWindow(time.Minute))
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if _, _, err := a.Start("room-1", []string{"a", "b"}, testCatalog, now); err != nil {
		t.Fatalf("start: %v", err)
	}

	if _, err := a.Cast("room-1", "a", "ascent", now.Add(59*time.Second)); err != nil {
		t.Fatalf("cast inside window: %v", err)
	}
	if _, err := a.Cast("room-1", "b", "bind", now.Add(time.Minute)); !errors.Is(err, ErrRoundClosed) {
		t.Fatalf("cast at deadline: err=%v want=%v", err, ErrRoundClosed)
	}
	if _, err := a.Cast("room-1", "b", "bind", now.Add(2*time.Minute)); !errors.Is(err, ErrRoundClosed) {
		t.Fatalf("cast after deadline: err=%v want=%v", err, ErrRoundClosed)
	}
}

func TestCloseResolvesAndRetires(t *testing.T) {
	t.Parallel()
	a := newTestAggregator(t, 1)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	r, _, err := a.Start("room-1", []string{"a", "b", "c"}, testCatalog, now)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := a.Cast("room-1", "a", "haven", now); err != nil {
		t.Fatalf("cast: %v", err)
	}
	if _, err := a.Cast("room-1", "b", "haven", now); err != nil {
		t.Fatalf("cast: %v", err)
	}

	end := now.Add(DefaultWindow)
	res, snap, err := a.Close("room-1", end)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if res.Choice != "haven" || res.Method != MethodPlurality || res.Votes != 2 {
		t.Fatalf("resolution=%+v want haven/plurality/2", res)
	}
	if !snap.Closed || snap.Remaining != 0 {
		t.Fatalf("snapshot=%+v want closed with zero remaining", snap)
	}

	// Retired: the aggregator no longer knows the round.
	if _, _, err := a.Close("room-1", end); !errors.Is(err, ErrNoRound) {
		t.Fatalf("double close: err=%v want=%v", err, ErrNoRound)
	}

	// The round handle itself stays idempotent for racing timers.
	res2, _ := r.Close(end.Add(time.Second))
	if res2.Choice != res.Choice || res2.Method != res.Method {
		t.Fatalf("re-close resolution=%+v want=%+v", res2, res)
	}

	// A ballot racing the close observes the closed round.
	if _, err := r.Cast("c", "bind", end.Add(time.Second)); !errors.Is(err, ErrRoundClosed) {
		t.Fatalf("cast after close: err=%v want=%v", err, ErrRoundClosed)
	}
}

func TestStandingsSortedByVotes(t *testing.T) {
	t.Parallel()
	a := newTestAggregator(t, 1)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	if _, _, err := a.Start("room-1", []string{"a", "b", "c"}, testCatalog, now); err != nil {
		t.Fatalf("start: %v", err)
	}
	for voter, choice := range map[string]string{"a": "split", "b": "split", "c": "bind"} {
		if _, err := a.Cast("room-1", voter, choice, now); err != nil {
			t.Fatalf("cast %s: %v", voter, err)
		}
	}

	snap, err := a.Cast("room-1", "a", "split", now)
	if err != nil {
		t.Fatalf("final cast: %v", err)
	}
	if snap.Standings[0].Choice != "split" || snap.Standings[0].Votes != 2 {
		t.Fatalf("leader=%+v want split with 2", snap.Standings[0])
	}
	if len(snap.Standings) != len(testCatalog) {
		t.Fatalf("standings=%d want full catalog %d", len(snap.Standings), len(testCatalog))
	}
}

func votesFor(snap Snapshot, choice string) int {
	for _, st := range snap.Standings {
		if st.Choice == choice {
			return st.Votes
		}
	}
	return -1
}
