// Package main provides a CI-friendly WebSocket smoke test for the rally
// coordinator.
//
// It validates:
//   - handshake + subprotocol selection
//   - hello/ack identification
//   - room join fanout
//   - party create -> snapshot broadcast (+ relocate for immediate sessions)
//   - party join -> full snapshot + owner notice
//   - duplicate session rejection
//   - vote start + cast -> snapshot fanout
//   - party end -> closed broadcast
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	v1 "rally/shared/contracts/coord/v1"

	"github.com/coder/websocket"
)

const (
	defaultSubprotocol = "rally.v1"
	maxReadBytes       = 1 << 20 // 1MiB
)

type smokeClient struct {
	name     string
	memberID string
	conn     *websocket.Conn
	connID   string

	inbox chan v1.Envelope
	errCh chan error
}

func main() {
	var (
		wsURL   = flag.String("url", "ws://127.0.0.1:8080/ws", "WebSocket URL")
		origin  = flag.String("origin", "http://localhost", "Origin header to send (browser-like WS handshake)")
		roomID  = flag.String("room", "dev-room-1", "Room ID to join")
		voice   = flag.String("voice", "dev-voice-1", "Voice target for the immediate session")
		timeout = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateWSURL(*wsURL); err != nil {
		fatalf("invalid -url: %v", err)
	}
	if err := validateOrigin(*origin); err != nil {
		fatalf("invalid -origin: %v", err)
	}

	root := context.Background()

	owner := mustConnect(root, "A", "smoke-owner", *wsURL, *origin, *timeout)
	defer closeWS(owner.conn)

	joiner := mustConnect(root, "B", "smoke-joiner", *wsURL, *origin, *timeout)
	defer closeWS(joiner.conn)

	if *verbose {
		fmt.Printf("connected: A=%s B=%s origin=%q\n", owner.connID, joiner.connID, *origin)
	}

	mustJoinRoom(root, owner, *roomID, *timeout)
	mustJoinRoom(root, joiner, *roomID, *timeout)

	sessionID := mustCreateParty(root, owner, *voice, *timeout)
	if *verbose {
		fmt.Printf("party created: session_id=%s\n", sessionID)
	}

	// A second create by the same owner must be rejected while the first
	// session is live.
	mustCreateConflict(root, owner, *voice, *timeout)

	mustJoinParty(root, owner, joiner, sessionID, *timeout)

	mustVoteRound(root, owner, joiner, *roomID, *timeout)

	mustEndParty(root, owner, sessionID, *timeout)

	fmt.Printf("OK: A=%s B=%s room=%s session_id=%s\n", owner.connID, joiner.connID, *roomID, sessionID)
}

func validateWSURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	if strings.TrimSpace(u.Path) == "" {
		return errors.New("missing path")
	}
	return nil
}

func validateOrigin(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must be http/https, got: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("origin missing host")
	}
	return nil
}

func mustConnect(parent context.Context, name, memberID, wsURL, origin string, stepTimeout time.Duration) *smokeClient {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		Subprotocols: []string{defaultSubprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		fatalf("connect %s: %v", name, err)
	}

	assertSubprotocol(resp, defaultSubprotocol)

	conn.SetReadLimit(maxReadBytes)

	c := &smokeClient{
		name:     name,
		memberID: memberID,
		conn:     conn,
		inbox:    make(chan v1.Envelope, 512),
		errCh:    make(chan error, 1),
	}
	c.startReadLoop()

	hello := newSmokeEnvelope(fmt.Sprintf("%s-hello", name), v1.TypeHello, v1.HelloPayload{MemberID: memberID})
	mustWriteWithTimeout(parent, conn, hello, stepTimeout)

	ack := c.mustReadUntilType(parent, v1.TypeHelloAck, stepTimeout, nil)

	var p v1.HelloAckPayload
	if err := json.Unmarshal(ack.Payload, &p); err != nil {
		fatalf("unmarshal hello_ack payload (%s): %v", name, err)
	}
	if strings.TrimSpace(p.ConnID) == "" {
		fatalf("hello_ack missing conn_id (%s)", name)
	}
	if p.MemberID != memberID {
		fatalf("hello_ack member mismatch (%s): got=%q want=%q", name, p.MemberID, memberID)
	}
	c.connID = p.ConnID

	return c
}

func assertSubprotocol(resp *http.Response, want string) {
	if resp == nil {
		return
	}
	got := strings.TrimSpace(resp.Header.Get("Sec-WebSocket-Protocol"))
	if got == "" {
		return
	}
	if got != want {
		fatalf("subprotocol mismatch: got=%q want=%q", got, want)
	}
}

func (c *smokeClient) startReadLoop() {
	go func() {
		defer close(c.inbox)

		for {
			mt, data, err := c.conn.Read(context.Background())
			if err != nil {
				select {
				case c.errCh <- err:
				default:
				}
				return
			}

			if mt != websocket.MessageText && mt != websocket.MessageBinary {
				select {
				case c.errCh <- fmt.Errorf("unsupported message type: %v", mt):
				default:
				}
				return
			}

			var env v1.Envelope
			if err := json.Unmarshal(data, &env); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad json: %w", err):
				default:
				}
				return
			}
			if err := env.Validate(); err != nil {
				select {
				case c.errCh <- fmt.Errorf("bad envelope: %w", err):
				default:
				}
				return
			}

			select {
			case c.inbox <- env:
			default:
				select {
				case c.errCh <- errors.New("inbox overflow: consumer too slow"):
				default:
				}
				return
			}
		}
	}()
}

func mustJoinRoom(parent context.Context, c *smokeClient, roomID string, stepTimeout time.Duration) {
	env := newSmokeEnvelope(fmt.Sprintf("%s-room-join", c.name), v1.TypeRoomJoin, v1.RoomJoinPayload{RoomID: roomID})
	mustWriteWithTimeout(parent, c.conn, env, stepTimeout)

	echo := c.mustReadUntilType(parent, v1.TypeRoomJoined, stepTimeout, nil)

	var p v1.RoomJoinedPayload
	if err := json.Unmarshal(echo.Payload, &p); err != nil {
		fatalf("unmarshal room_joined payload (%s): %v", c.name, err)
	}
	if p.RoomID != roomID {
		fatalf("room_joined room mismatch (%s): got=%q want=%q", c.name, p.RoomID, roomID)
	}
}

func mustCreateParty(parent context.Context, owner *smokeClient, voice string, stepTimeout time.Duration) string {
	env := newSmokeEnvelope(fmt.Sprintf("%s-party-create", owner.name), v1.TypePartyCreate, v1.PartyCreatePayload{
		Mode:           "competitive",
		Rank:           "gold",
		CapacityPreset: "duo",
		ScheduleKind:   "now",
		VoiceTarget:    voice,
	})
	mustWriteWithTimeout(parent, owner.conn, env, stepTimeout)

	skip := map[string]struct{}{v1.TypeRelocate: {}, v1.TypeRoomJoined: {}}
	snap := owner.mustReadUntilType(parent, v1.TypePartySnapshot, stepTimeout, skip)

	var p v1.PartySnapshotPayload
	if err := json.Unmarshal(snap.Payload, &p); err != nil {
		fatalf("unmarshal party_snapshot payload (%s): %v", owner.name, err)
	}
	if p.OwnerID != owner.memberID {
		fatalf("party owner mismatch: got=%q want=%q", p.OwnerID, owner.memberID)
	}
	if p.Players != 1 || p.Capacity != 2 {
		fatalf("unexpected duo roster: players=%d capacity=%d", p.Players, p.Capacity)
	}
	if strings.TrimSpace(p.SessionID) == "" {
		fatalf("party_snapshot missing session_id")
	}
	return p.SessionID
}

func mustCreateConflict(parent context.Context, owner *smokeClient, voice string, stepTimeout time.Duration) {
	env := newSmokeEnvelope(fmt.Sprintf("%s-party-create-dup", owner.name), v1.TypePartyCreate, v1.PartyCreatePayload{
		Mode:           "competitive",
		Rank:           "gold",
		CapacityPreset: "duo",
		ScheduleKind:   "now",
		VoiceTarget:    voice,
	})
	mustWriteWithTimeout(parent, owner.conn, env, stepTimeout)

	errEnv := owner.mustReadUntilTypeAllowError(parent, v1.TypeError, stepTimeout)
	var ep v1.ErrorPayload
	if err := json.Unmarshal(errEnv.Payload, &ep); err != nil {
		fatalf("unmarshal error payload (%s): %v", owner.name, err)
	}
	if ep.Code != "conflict" {
		fatalf("duplicate create: got code=%q want=%q", ep.Code, "conflict")
	}
}

func mustJoinParty(parent context.Context, owner, joiner *smokeClient, sessionID string, stepTimeout time.Duration) {
	env := newSmokeEnvelope(fmt.Sprintf("%s-party-join", joiner.name), v1.TypePartyJoin, v1.PartyJoinPayload{
		SessionID:     sessionID,
		PreferredRole: "duelist",
	})
	mustWriteWithTimeout(parent, joiner.conn, env, stepTimeout)

	skip := map[string]struct{}{v1.TypeRelocate: {}}
	snap := joiner.mustReadUntilType(parent, v1.TypePartySnapshot, stepTimeout, skip)

	var p v1.PartySnapshotPayload
	if err := json.Unmarshal(snap.Payload, &p); err != nil {
		fatalf("unmarshal party_snapshot payload (%s): %v", joiner.name, err)
	}
	if p.Status != "full" {
		fatalf("duo after join: got status=%q want=%q", p.Status, "full")
	}

	// The owner hears about the full roster.
	skipOwner := map[string]struct{}{v1.TypePartySnapshot: {}, v1.TypeRelocate: {}}
	notice := owner.mustReadUntilType(parent, v1.TypeNotice, stepTimeout, skipOwner)
	var np v1.NoticePayload
	if err := json.Unmarshal(notice.Payload, &np); err != nil {
		fatalf("unmarshal notice payload (%s): %v", owner.name, err)
	}
	if len(np.Audience) != 1 || np.Audience[0] != owner.memberID {
		fatalf("full notice audience mismatch: %v", np.Audience)
	}
}

func mustVoteRound(parent context.Context, owner, joiner *smokeClient, roomID string, stepTimeout time.Duration) {
	start := newSmokeEnvelope(fmt.Sprintf("%s-vote-start", owner.name), v1.TypeVoteStart, v1.VoteStartPayload{RoomID: roomID})
	mustWriteWithTimeout(parent, owner.conn, start, stepTimeout)

	snap := owner.mustReadUntilType(parent, v1.TypeVoteSnapshot, stepTimeout, nil)
	var sp v1.VoteSnapshotPayload
	if err := json.Unmarshal(snap.Payload, &sp); err != nil {
		fatalf("unmarshal vote_snapshot payload (%s): %v", owner.name, err)
	}
	if sp.Eligible < 2 {
		fatalf("vote eligible too low: %d", sp.Eligible)
	}

	cast := newSmokeEnvelope(fmt.Sprintf("%s-vote-cast", joiner.name), v1.TypeVoteCast, v1.VoteCastPayload{
		RoomID: roomID,
		Choice: "ascent",
	})
	mustWriteWithTimeout(parent, joiner.conn, cast, stepTimeout)

	after := joiner.mustReadUntilType(parent, v1.TypeVoteSnapshot, stepTimeout, nil)
	var ap v1.VoteSnapshotPayload
	if err := json.Unmarshal(after.Payload, &ap); err != nil {
		fatalf("unmarshal vote_snapshot payload (%s): %v", joiner.name, err)
	}
	if ap.Voters < 1 {
		fatalf("vote_cast not counted: voters=%d", ap.Voters)
	}
}

func mustEndParty(parent context.Context, owner *smokeClient, sessionID string, stepTimeout time.Duration) {
	env := newSmokeEnvelope(fmt.Sprintf("%s-party-end", owner.name), v1.TypePartyEnd, v1.PartyEndPayload{SessionID: sessionID})
	mustWriteWithTimeout(parent, owner.conn, env, stepTimeout)

	skip := map[string]struct{}{v1.TypeVoteSnapshot: {}, v1.TypeVoteResult: {}, v1.TypeNotice: {}}
	closed := owner.mustReadUntilType(parent, v1.TypePartyClosed, stepTimeout, skip)

	var p v1.PartyClosedPayload
	if err := json.Unmarshal(closed.Payload, &p); err != nil {
		fatalf("unmarshal party_closed payload (%s): %v", owner.name, err)
	}
	if p.SessionID != sessionID {
		fatalf("party_closed session mismatch: got=%q want=%q", p.SessionID, sessionID)
	}
}

// mustReadUntilTypeAllowError waits for an envelope of wantType without
// treating server errors as fatal (used when an error IS the expectation).
func (c *smokeClient) mustReadUntilTypeAllowError(parent context.Context, wantType string, stepTimeout time.Duration) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
		}
	}
}

func (c *smokeClient) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration, skipTypes map[string]struct{}) v1.Envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q (%s): %v", wantType, c.name, ctx.Err())
		case err := <-c.errCh:
			if err == nil {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			fatalf("connection error while waiting for %q (%s): %v", wantType, c.name, err)
		case env, ok := <-c.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q (%s)", wantType, c.name)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == v1.TypeError {
				var ep v1.ErrorPayload
				_ = json.Unmarshal(env.Payload, &ep)
				fatalf("server error (%s): code=%q msg=%q", c.name, ep.Code, ep.Message)
			}
			if skipTypes != nil {
				if _, ok := skipTypes[env.Type]; ok {
					continue
				}
			}
			fatalf("unexpected envelope type (%s): got=%q want=%q", c.name, env.Type, wantType)
		}
	}
}

func mustWriteWithTimeout(parent context.Context, conn *websocket.Conn, env v1.Envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func newSmokeEnvelope(id, typ string, payload any) v1.Envelope {
	b, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return v1.Envelope{
		V:       v1.Version,
		Type:    typ,
		ID:      id,
		TS:      time.Now().UTC(),
		Payload: b,
	}
}

func closeWS(conn *websocket.Conn) {
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
