package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	v1 "rally/shared/contracts/coord/v1"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(connID, memberID string, queue int) *Client {
	c := NewClient(connID, queue)
	c.SetMemberID(memberID)
	return c
}

func testEnvelope(typ string) v1.Envelope {
	return v1.Envelope{
		V:       v1.Version,
		Type:    typ,
		ID:      "env-1",
		TS:      time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
		Payload: json.RawMessage(`{}`),
	}
}

func drain(t *testing.T, c *Client) []v1.Envelope {
	t.Helper()
	var out []v1.Envelope
	for {
		select {
		case env := <-c.Send:
			out = append(out, env)
		default:
			return out
		}
	}
}

func TestHubRegisterAndSendToMember(t *testing.T) {
	t.Parallel()
	h := NewHub(testLogger())

	// Two connections for the same member, one for another.
	a1 := testClient("conn-a1", "ada", 4)
	a2 := testClient("conn-a2", "ada", 4)
	b := testClient("conn-b", "bob", 4)
	h.Register(a1)
	h.Register(a2)
	h.Register(b)

	if !h.SendToMember("ada", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("send to ada failed")
	}
	if got := len(drain(t, a1)); got != 1 {
		t.Fatalf("a1 frames=%d want=1", got)
	}
	if got := len(drain(t, a2)); got != 1 {
		t.Fatalf("a2 frames=%d want=1", got)
	}
	if got := len(drain(t, b)); got != 0 {
		t.Fatalf("b frames=%d want=0", got)
	}

	if h.SendToMember("ghost", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("send to unknown member reported success")
	}
	if !h.SendToConn("conn-b", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("send to conn-b failed")
	}
	if h.SendToConn("conn-x", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("send to unknown conn reported success")
	}
}

func TestHubRoomMembershipAndBroadcast(t *testing.T) {
	t.Parallel()
	h := NewHub(testLogger())

	a := testClient("conn-a", "ada", 4)
	b := testClient("conn-b", "bob", 4)
	c := testClient("conn-c", "cyd", 4)
	h.Register(a)
	h.Register(b)
	h.Register(c)

	if prev := h.JoinRoom("room-1", a); prev != "" {
		t.Fatalf("first join returned prev=%q want empty", prev)
	}
	h.JoinRoom("room-1", b)
	h.JoinRoom("room-2", c)

	if got := h.RoomSize("room-1"); got != 2 {
		t.Fatalf("room-1 size=%d want=2", got)
	}

	h.BroadcastRoom("room-1", testEnvelope(v1.TypeVoteSnapshot))
	if len(drain(t, a)) != 1 || len(drain(t, b)) != 1 {
		t.Fatalf("room-1 members missed the broadcast")
	}
	if len(drain(t, c)) != 0 {
		t.Fatalf("room-2 member received room-1 traffic")
	}

	// One room per connection: joining another leaves the first.
	if prev := h.JoinRoom("room-2", a); prev != "room-1" {
		t.Fatalf("rejoin returned prev=%q want room-1", prev)
	}
	if got := h.RoomSize("room-1"); got != 1 {
		t.Fatalf("room-1 size after move=%d want=1", got)
	}

	// Joining the current room again is a no-op.
	if prev := h.JoinRoom("room-2", a); prev != "" {
		t.Fatalf("same-room join returned prev=%q want empty", prev)
	}

	h.LeaveRoom("room-2", "conn-a")
	h.BroadcastRoom("room-2", testEnvelope(v1.TypeVoteSnapshot))
	if len(drain(t, a)) != 0 {
		t.Fatalf("left member still receives room traffic")
	}

	// LeaveRoom ignores a room the connection is not in.
	h.LeaveRoom("room-1", "conn-b")
	if got := h.RoomSize("room-1"); got != 1 {
		t.Fatalf("mismatched leave mutated room-1: size=%d want=1", got)
	}
}

func TestHubUnregisterVacatesRoom(t *testing.T) {
	t.Parallel()
	h := NewHub(testLogger())

	a := testClient("conn-a", "ada", 4)
	h.Register(a)
	h.JoinRoom("room-1", a)

	if room := h.Unregister("conn-a"); room != "room-1" {
		t.Fatalf("unregister returned room=%q want room-1", room)
	}
	if got := h.RoomSize("room-1"); got != 0 {
		t.Fatalf("room-1 size after unregister=%d want=0", got)
	}
	if h.SendToMember("ada", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("unregistered member still reachable")
	}
	if room := h.Unregister("conn-a"); room != "" {
		t.Fatalf("double unregister returned room=%q want empty", room)
	}
}

func TestHubRegisterRefusesClosedClient(t *testing.T) {
	t.Parallel()
	h := NewHub(testLogger())

	c := testClient("conn-a", "ada", 4)
	c.Close()

	if h.Register(c) {
		t.Fatalf("closed client was registered")
	}
	if h.SendToConn("conn-a", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("closed client reachable by conn id")
	}
	if h.SendToMember("ada", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("closed client reachable by member id")
	}
}

func TestHubDropClosesAndUnregisters(t *testing.T) {
	t.Parallel()
	h := NewHub(testLogger())

	c := testClient("conn-a", "ada", 4)
	if !h.Register(c) {
		t.Fatalf("register refused a live client")
	}
	h.JoinRoom("room-1", c)

	roomID, registered := h.Drop(c)
	if !registered || roomID != "room-1" {
		t.Fatalf("drop=(%q,%v) want=(room-1,true)", roomID, registered)
	}
	select {
	case <-c.Done():
	default:
		t.Fatalf("dropped client not closed")
	}
	if got := h.RoomSize("room-1"); got != 0 {
		t.Fatalf("room-1 size after drop=%d want=0", got)
	}
	if h.SendToMember("ada", testEnvelope(v1.TypeNotice)) {
		t.Fatalf("dropped client still reachable")
	}

	if _, registered := h.Drop(c); registered {
		t.Fatalf("second drop reported registered")
	}
}

func TestHubRegisterRacingDropNeverStrandsClient(t *testing.T) {
	t.Parallel()
	h := NewHub(testLogger())

	// A hello identifying the client races a teardown. Whichever order the
	// hub observes, the connection must not stay registered afterwards.
	for i := 0; i < 500; i++ {
		c := NewClient(fmt.Sprintf("conn-%d", i), 4)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.SetMemberID("ada")
			h.Register(c)
		}()
		go func() {
			defer wg.Done()
			h.Drop(c)
		}()
		wg.Wait()

		if h.SendToConn(c.ConnID, testEnvelope(v1.TypeNotice)) {
			t.Fatalf("iteration %d: dropped connection still reachable", i)
		}
		if h.SendToMember("ada", testEnvelope(v1.TypeNotice)) {
			t.Fatalf("iteration %d: dropped member still reachable", i)
		}
	}
}

func TestHubBroadcastAllSkipsFullQueues(t *testing.T) {
	t.Parallel()
	h := NewHub(testLogger())

	fast := testClient("conn-fast", "ada", 4)
	slow := testClient("conn-slow", "bob", 1)
	h.Register(fast)
	h.Register(slow)

	// Fill the slow client's queue; further frames must drop, not block.
	slow.Send <- testEnvelope(v1.TypeNotice)

	done := make(chan struct{})
	go func() {
		h.BroadcastAll(testEnvelope(v1.TypePartySnapshot))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a full queue")
	}

	if got := len(drain(t, fast)); got != 1 {
		t.Fatalf("fast client frames=%d want=1", got)
	}
	if got := len(drain(t, slow)); got != 1 {
		t.Fatalf("slow client frames=%d want=1 (the pre-filled frame)", got)
	}
}

func TestClientCloseIdempotent(t *testing.T) {
	t.Parallel()

	c := NewClient("conn-a", 4)
	c.Close()
	c.Close()

	select {
	case <-c.Done():
	default:
		t.Fatalf("done channel still open after close")
	}
}
