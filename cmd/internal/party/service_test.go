package party

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	var seq int
	svc, err := NewService(testLogger(), NewStore(), WithIDFunc(func(_ time.Time) (string, error) {
		seq++
		return fmt.Sprintf("sess-%04d", seq), nil
	}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func mustCreate(t *testing.T, svc *Service, owner, preset string) Snapshot {
	t.Helper()

	snap, _, err := svc.Create(CreateInput{
		OwnerID:        owner,
		Mode:           "competitive",
		Rank:           "gold",
		CapacityPreset: preset,
		ScheduleKind:   "now",
		VoiceTarget:    "voice-1",
		Now:            time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create(%s, %s): %v", owner, preset, err)
	}
	return snap
}

func TestCreateSeedsOwnerInRoster(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	snap := mustCreate(t, svc, "owner-1", "trio")

	if snap.Capacity != 3 {
		t.Fatalf("capacity=%d want=3", snap.Capacity)
	}
	if len(snap.Participants) != 1 || snap.Participants[0].MemberID != "owner-1" {
		t.Fatalf("roster=%v want owner only", snap.Participants)
	}
	if snap.Status != StatusOpen {
		t.Fatalf("status=%q want=%q", snap.Status, StatusOpen)
	}
	if snap.SlotsLeft() != 2 {
		t.Fatalf("slots=%d want=2", snap.SlotsLeft())
	}
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	cases := []struct {
		name    string
		in      CreateInput
		wantErr error
	}{
		{
			name:    "blank owner",
			in:      CreateInput{OwnerID: "  ", CapacityPreset: "duo", ScheduleKind: "now", VoiceTarget: "v"},
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown preset",
			in:      CreateInput{OwnerID: "o", CapacityPreset: "squad", ScheduleKind: "now", VoiceTarget: "v"},
			wantErr: ErrUnknownPreset,
		},
		{
			name:    "immediate without voice target",
			in:      CreateInput{OwnerID: "o", CapacityPreset: "duo", ScheduleKind: "now"},
			wantErr: ErrVoiceRequired,
		},
		{
			name:    "bad schedule",
			in:      CreateInput{OwnerID: "o", CapacityPreset: "duo", ScheduleKind: "time", TimeOfDay: "not-a-time"},
			wantErr: ErrBadTimeFormat,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := svc.Create(tc.in)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err=%v want=%v", err, tc.wantErr)
			}
		})
	}
}

func TestCreateDuplicateOwner(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	mustCreate(t, svc, "owner-1", "duo")

	_, _, err := svc.Create(CreateInput{
		OwnerID:        "owner-1",
		CapacityPreset: "duo",
		ScheduleKind:   "now",
		VoiceTarget:    "voice-1",
	})
	if !errors.Is(err, ErrDuplicateSession) {
		t.Fatalf("err=%v want=%v", err, ErrDuplicateSession)
	}
}

func TestJoinFillsAndNotifies(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	sess := mustCreate(t, svc, "owner-1", "trio")

	snap, reloc, note, err := svc.Join("member-a", sess.ID, "duelist")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if snap.Status != StatusOpen {
		t.Fatalf("status after first join=%q want=%q", snap.Status, StatusOpen)
	}
	if reloc == nil || reloc.MemberID != "member-a" || reloc.Target != "voice-1" {
		t.Fatalf("relocation=%+v want member-a -> voice-1", reloc)
	}
	if note != nil {
		t.Fatalf("unexpected notification before full: %+v", note)
	}

	snap, _, note, err = svc.Join("member-b", sess.ID, "")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if snap.Status != StatusFull {
		t.Fatalf("status after second join=%q want=%q", snap.Status, StatusFull)
	}
	if note == nil || len(note.Audience) != 1 || note.Audience[0] != "owner-1" {
		t.Fatalf("full notification=%+v want audience [owner-1]", note)
	}

	_, _, _, err = svc.Join("member-c", sess.ID, "")
	if !errors.Is(err, ErrFull) {
		t.Fatalf("join when full: err=%v want=%v", err, ErrFull)
	}
}

func TestJoinValidation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	sess := mustCreate(t, svc, "owner-1", "trio")

	if _, _, _, err := svc.Join("member-a", sess.ID, "healer"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("unknown role: err=%v want=%v", err, ErrUnknownRole)
	}
	if _, _, _, err := svc.Join("member-a", "no-such-session", ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing session: err=%v want=%v", err, ErrNotFound)
	}
	if _, _, _, err := svc.Join("owner-1", sess.ID, ""); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("owner rejoining: err=%v want=%v", err, ErrAlreadyJoined)
	}

	if _, _, _, err := svc.Join("member-a", sess.ID, "any"); err != nil {
		t.Fatalf("role preference any: %v", err)
	}
	if _, _, _, err := svc.Join("member-a", sess.ID, ""); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("double join: err=%v want=%v", err, ErrAlreadyJoined)
	}
}

func TestLeaveReopensFullSession(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	sess := mustCreate(t, svc, "owner-1", "duo")

	if _, _, _, err := svc.Join("member-a", sess.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	snap, err := svc.Leave("member-a", sess.ID)
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if snap.Status != StatusOpen {
		t.Fatalf("status after leave=%q want=%q", snap.Status, StatusOpen)
	}

	// The freed slot is joinable again, including by the same member.
	snap, _, _, err = svc.Join("member-a", sess.ID, "")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if snap.Status != StatusFull {
		t.Fatalf("status after rejoin=%q want=%q", snap.Status, StatusFull)
	}
}

func TestLeaveValidation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	sess := mustCreate(t, svc, "owner-1", "duo")

	if _, err := svc.Leave("owner-1", sess.ID); !errors.Is(err, ErrOwnerCannotLeave) {
		t.Fatalf("owner leave: err=%v want=%v", err, ErrOwnerCannotLeave)
	}
	if _, err := svc.Leave("stranger", sess.ID); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("stranger leave: err=%v want=%v", err, ErrNotJoined)
	}
	if _, err := svc.Leave("member-a", "no-such-session"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing session: err=%v want=%v", err, ErrNotFound)
	}
}

func TestTerminate(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	sess := mustCreate(t, svc, "owner-1", "trio")
	if _, _, _, err := svc.Join("member-a", sess.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, _, _, err := svc.Join("member-b", sess.ID, ""); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, _, err := svc.Terminate("member-a", sess.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("non-owner terminate: err=%v want=%v", err, ErrNotOwner)
	}

	snap, joiners, err := svc.Terminate("owner-1", sess.ID)
	if err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if len(snap.Participants) != 3 {
		t.Fatalf("final roster size=%d want=3", len(snap.Participants))
	}
	if len(joiners) != 2 {
		t.Fatalf("joiners=%v want two members, owner excluded", joiners)
	}
	for _, j := range joiners {
		if j == "owner-1" {
			t.Fatalf("owner leaked into joiner list: %v", joiners)
		}
	}

	// Terminal: no handle can mutate an ended session.
	if _, _, _, err := svc.Join("member-c", sess.ID, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("join after terminate: err=%v want=%v", err, ErrNotFound)
	}
	if _, _, err := svc.Terminate("owner-1", sess.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double terminate: err=%v want=%v", err, ErrNotFound)
	}

	// The owner is free to recruit again.
	mustCreate(t, svc, "owner-1", "duo")
}

func TestConcurrentJoinNeverExceedsCapacity(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	sess := mustCreate(t, svc, "owner-1", "full") // capacity 5, owner seated

	const contenders = 24
	var wg sync.WaitGroup
	errs := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, _, errs[i] = svc.Join(fmt.Sprintf("member-%02d", i), sess.ID, "")
		}(i)
	}
	wg.Wait()

	admitted := 0
	for i, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrFull):
		default:
			t.Fatalf("contender %d: unexpected err: %v", i, err)
		}
	}
	if admitted != 4 {
		t.Fatalf("admitted=%d want=4 (owner holds the fifth slot)", admitted)
	}

	got, ok := svc.store.FindByID(sess.ID)
	if !ok {
		t.Fatalf("session vanished")
	}
	got.mu.Lock()
	n := len(got.participants)
	got.mu.Unlock()
	if n != 5 {
		t.Fatalf("roster size=%d want=5", n)
	}
}

func TestListOrderedByCreation(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)

	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	for i, owner := range []string{"o1", "o2", "o3"} {
		_, _, err := svc.Create(CreateInput{
			OwnerID:        owner,
			CapacityPreset: "duo",
			ScheduleKind:   "now",
			VoiceTarget:    "v",
			Now:            base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("create %s: %v", owner, err)
		}
	}

	list := svc.List()
	if len(list) != 3 {
		t.Fatalf("list size=%d want=3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.Before(list[i-1].CreatedAt) {
			t.Fatalf("list out of order at %d: %v before %v", i, list[i].CreatedAt, list[i-1].CreatedAt)
		}
	}
	if svc.Count() != 3 {
		t.Fatalf("count=%d want=3", svc.Count())
	}
}
