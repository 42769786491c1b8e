package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"rally/cmd/internal/ballot"
	"rally/cmd/internal/catalog"
	"rally/cmd/internal/party"
	"rally/cmd/internal/render"
	"rally/cmd/internal/roster"
	v1 "rally/shared/contracts/coord/v1"
)

var errBadPayload = errors.New("invalid payload")

// ---- handshake ----

func (g *Gateway) onHello(ctx context.Context, client *Client, env v1.Envelope) error {
	if client.MemberID() != "" {
		return errors.New("already identified")
	}

	var p v1.HelloPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	member := strings.TrimSpace(p.MemberID)
	if member == "" {
		return errors.New("missing member_id")
	}

	client.SetMemberID(member)
	if !g.hub.Register(client) {
		// The connection tore down mid-hello; the hub refused it.
		return errors.New("connection closing")
	}
	metricConnections.Inc()

	ackPayload, _ := json.Marshal(v1.HelloAckPayload{ConnID: client.ConnID, MemberID: member})
	ack := newEnvelope(v1.TypeHelloAck, ackPayload, time.Now().UTC())

	if !g.enqueue(ctx, client, ack) {
		return errors.New("backpressure: hello.ack")
	}
	return nil
}

// ---- rooms ----

func (g *Gateway) onRoomJoin(ctx context.Context, client *Client, env v1.Envelope) error {
	var p v1.RoomJoinPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return fmt.Errorf("%w: missing room_id", errBadPayload)
	}

	member := client.MemberID()
	prev := g.hub.JoinRoom(roomID, client)
	if g.mirror != nil {
		if prev != "" {
			g.mirror.Leave(prev, member)
		}
		g.mirror.Join(roomID, member)
	}

	members, err := g.presence.MembersIn(ctx, roomID)
	if err != nil {
		g.log.Warn("presence.lookup.fail", "room_id", roomID, "err", err)
	}

	payload, _ := json.Marshal(v1.RoomJoinedPayload{RoomID: roomID, Members: len(members)})
	g.hub.BroadcastRoom(roomID, newEnvelope(v1.TypeRoomJoined, payload, time.Now().UTC()))
	g.log.Info("room.join", "room_id", roomID, "member_id", member)
	return nil
}

func (g *Gateway) onRoomLeave(client *Client, env v1.Envelope) error {
	var p v1.RoomLeavePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return fmt.Errorf("%w: missing room_id", errBadPayload)
	}

	member := client.MemberID()
	g.hub.LeaveRoom(roomID, client.ConnID)
	if g.mirror != nil {
		g.mirror.Leave(roomID, member)
	}
	g.log.Info("room.leave", "room_id", roomID, "member_id", member)
	return nil
}

// ---- recruitment ----

func (g *Gateway) onPartyCreate(ctx context.Context, client *Client, env v1.Envelope, now time.Time) error {
	var p v1.PartyCreatePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	if len([]rune(p.Description)) > maxFieldChars {
		return fmt.Errorf("%w: description too long: max=%d chars", errBadPayload, maxFieldChars)
	}

	snap, reloc, err := g.parties.Create(party.CreateInput{
		OwnerID:        client.MemberID(),
		Mode:           p.Mode,
		Rank:           p.Rank,
		CapacityPreset: p.CapacityPreset,
		ScheduleKind:   p.ScheduleKind,
		TimeOfDay:      p.TimeOfDay,
		DateTime:       p.DateTime,
		VoiceTarget:    p.VoiceTarget,
		Description:    p.Description,
		Now:            now,
	})
	if err != nil {
		return err
	}

	g.broadcastPartySnapshot(snap)
	g.sendRelocation(reloc)
	metricPartiesActive.Set(float64(g.parties.Count()))
	return nil
}

func (g *Gateway) onPartyJoin(ctx context.Context, client *Client, env v1.Envelope) error {
	var p v1.PartyJoinPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}

	snap, reloc, note, err := g.parties.Join(client.MemberID(), p.SessionID, p.PreferredRole)
	if err != nil {
		return err
	}

	g.broadcastPartySnapshot(snap)
	g.sendRelocation(reloc)
	g.sendNotice(note)
	return nil
}

func (g *Gateway) onPartyLeave(client *Client, env v1.Envelope) error {
	var p v1.PartyLeavePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}

	snap, err := g.parties.Leave(client.MemberID(), p.SessionID)
	if err != nil {
		return err
	}

	g.broadcastPartySnapshot(snap)
	return nil
}

func (g *Gateway) onPartyEnd(client *Client, env v1.Envelope) error {
	var p v1.PartyEndPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}

	snap, joiners, err := g.parties.Terminate(client.MemberID(), p.SessionID)
	if err != nil {
		return err
	}

	payload, _ := json.Marshal(v1.PartyClosedPayload{
		SessionID: snap.ID,
		Members:   joiners,
		Summary:   fmt.Sprintf("party %s has been closed by its owner", snap.ID),
	})
	g.hub.BroadcastAll(newEnvelope(v1.TypePartyClosed, payload, time.Now().UTC()))

	g.sendNotice(&party.Notification{
		Audience: joiners,
		Message:  "the party you joined has been closed",
	})
	metricPartiesActive.Set(float64(g.parties.Count()))
	return nil
}

func (g *Gateway) onPartyList(ctx context.Context, client *Client) error {
	list := g.parties.List()

	payload, _ := json.Marshal(v1.PartyListResultPayload{
		Count:   len(list),
		Summary: render.PartyList(list),
	})
	env := newEnvelope(v1.TypePartyListResult, payload, time.Now().UTC())

	if !g.enqueue(ctx, client, env) {
		return errors.New("backpressure: party list")
	}
	return nil
}

func (g *Gateway) broadcastPartySnapshot(snap party.Snapshot) {
	payload, _ := json.Marshal(v1.PartySnapshotPayload{
		SessionID: snap.ID,
		OwnerID:   snap.OwnerID,
		Status:    string(snap.Status),
		Players:   len(snap.Participants),
		Capacity:  snap.Capacity,
		Summary:   render.Party(snap),
	})
	g.hub.BroadcastAll(newEnvelope(v1.TypePartySnapshot, payload, time.Now().UTC()))
}

// sendRelocation delivers a voice-move directive to its target. Delivery is
// best effort: a failed or unexecuted move never rolls back session state.
func (g *Gateway) sendRelocation(reloc *party.Relocation) {
	if reloc == nil {
		return
	}
	payload, _ := json.Marshal(v1.RelocatePayload{MemberID: reloc.MemberID, Target: reloc.Target})
	if !g.hub.SendToMember(reloc.MemberID, newEnvelope(v1.TypeRelocate, payload, time.Now().UTC())) {
		g.log.Warn("relocate.drop", "member_id", reloc.MemberID, "target", reloc.Target)
	}
}

func (g *Gateway) sendNotice(note *party.Notification) {
	if note == nil || len(note.Audience) == 0 {
		return
	}
	payload, _ := json.Marshal(v1.NoticePayload{Audience: note.Audience, Message: note.Message})
	env := newEnvelope(v1.TypeNotice, payload, time.Now().UTC())
	for _, member := range note.Audience {
		if !g.hub.SendToMember(member, env) {
			g.log.Info("notice.drop", "member_id", member)
		}
	}
}

// ---- votes ----

func (g *Gateway) onVoteStart(ctx context.Context, client *Client, env v1.Envelope, now time.Time) error {
	var p v1.VoteStartPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return fmt.Errorf("%w: missing room_id", errBadPayload)
	}

	members, err := g.presence.MembersIn(ctx, roomID)
	if err != nil {
		return fmt.Errorf("presence lookup: %w", err)
	}

	r, snap, err := g.votes.Start(roomID, members, catalog.Values(catalog.Maps()), now)
	if err != nil {
		return err
	}

	// The round closes itself when the window elapses; late ballots racing
	// this timer observe ErrRoundClosed inside the round's critical section.
	time.AfterFunc(time.Until(r.Deadline), func() { g.finishVote(roomID) })

	g.broadcastVoteSnapshot(snap)
	return nil
}

func (g *Gateway) onVoteCast(client *Client, env v1.Envelope, now time.Time) error {
	var p v1.VoteCastPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}

	snap, err := g.votes.Cast(strings.TrimSpace(p.RoomID), client.MemberID(), p.Choice, now)
	if err != nil {
		return err
	}

	metricBallots.Inc()
	g.broadcastVoteSnapshot(snap)
	return nil
}

func (g *Gateway) finishVote(roomID string) {
	res, snap, err := g.votes.Close(roomID, time.Now().UTC())
	if err != nil {
		// Round already retired.
		return
	}
	metricRoundsResolved.WithLabelValues(string(res.Method)).Inc()

	payload, _ := json.Marshal(v1.VoteResultPayload{
		RoomID:  roomID,
		RoundID: snap.RoundID,
		Choice:  res.Choice,
		Method:  string(res.Method),
		Votes:   res.Votes,
		Summary: render.VoteResult(res, snap),
	})
	g.hub.BroadcastRoom(roomID, newEnvelope(v1.TypeVoteResult, payload, time.Now().UTC()))
}

func (g *Gateway) broadcastVoteSnapshot(snap ballot.Snapshot) {
	payload, _ := json.Marshal(v1.VoteSnapshotPayload{
		RoomID:           snap.RoomID,
		RoundID:          snap.RoundID,
		RemainingSeconds: int(snap.Remaining.Seconds()),
		Voters:           snap.Voters,
		Eligible:         snap.Eligible,
		Summary:          render.VoteStatus(snap),
	})
	g.hub.BroadcastRoom(snap.RoomID, newEnvelope(v1.TypeVoteSnapshot, payload, time.Now().UTC()))
}

// ---- rolls ----

func (g *Gateway) onRollStart(ctx context.Context, client *Client, env v1.Envelope, now time.Time) error {
	var p v1.RollStartPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return fmt.Errorf("%w: missing room_id", errBadPayload)
	}

	pool, err := g.presence.MembersIn(ctx, roomID)
	if err != nil {
		return fmt.Errorf("presence lookup: %w", err)
	}
	if len(pool) < roster.PoolSize {
		return roster.ErrInsufficientMembers
	}

	if len(pool) == roster.PoolSize {
		return g.assignRoles(roomID, pool)
	}

	// Oversized room: the initiator narrows the pool before the dice land.
	deadline := now.Add(g.rollTimeout)
	if err := g.stagePendingRoll(roomID, client.ConnID, pool, deadline); err != nil {
		return err
	}

	payload, _ := json.Marshal(v1.RollPromptPayload{
		RoomID:          roomID,
		Pool:            pool,
		ExcludeCount:    len(pool) - roster.PoolSize,
		DeadlineSeconds: int(g.rollTimeout.Seconds()),
	})
	if !g.hub.SendToConn(client.ConnID, newEnvelope(v1.TypeRollPrompt, payload, time.Now().UTC())) {
		g.abandonPendingRoll(roomID, client.ConnID)
		return errors.New("backpressure: roll prompt")
	}
	g.log.Info("roll.prompt", "room_id", roomID, "pool", len(pool), "exclude", len(pool)-roster.PoolSize)
	return nil
}

func (g *Gateway) onRollExclude(client *Client, env v1.Envelope) error {
	var p v1.RollExcludePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	roomID := strings.TrimSpace(p.RoomID)
	if roomID == "" {
		return fmt.Errorf("%w: missing room_id", errBadPayload)
	}

	pool, err := g.resolvePendingRoll(roomID, client.ConnID, p.Excluded)
	if err != nil {
		return err
	}
	return g.assignRoles(roomID, pool)
}

func (g *Gateway) assignRoles(roomID string, pool []string) error {
	rnd, err := g.newRand()
	if err != nil {
		return fmt.Errorf("rng: %w", err)
	}

	assignments, err := roster.Assign(pool, catalog.Roles(), rnd)
	if err != nil {
		return err
	}
	metricRolls.Inc()

	wire := make([]v1.RollAssignment, 0, len(assignments))
	for _, a := range assignments {
		wire = append(wire, v1.RollAssignment{MemberID: a.MemberID, Role: a.Role.Value, Random: a.Random})
	}
	payload, _ := json.Marshal(v1.RollResultPayload{
		RoomID:      roomID,
		Assignments: wire,
		Summary:     render.Roll(assignments),
	})
	g.hub.BroadcastRoom(roomID, newEnvelope(v1.TypeRollResult, payload, time.Now().UTC()))
	g.log.Info("roll.assign", "room_id", roomID, "pool", len(pool))
	return nil
}

// ---- error taxonomy ----

// errCode maps service errors onto the wire error classes.
func errCode(err error) string {
	switch {
	case errors.Is(err, party.ErrDuplicateSession),
		errors.Is(err, party.ErrAlreadyJoined),
		errors.Is(err, party.ErrFull),
		errors.Is(err, ballot.ErrRoundActive),
		errors.Is(err, ballot.ErrRoundClosed),
		errors.Is(err, errRollPending):
		return "conflict"

	case errors.Is(err, party.ErrNotOwner),
		errors.Is(err, party.ErrOwnerCannotLeave),
		errors.Is(err, ballot.ErrIneligible),
		errors.Is(err, errNotRollInitiator):
		return "forbidden"

	case errors.Is(err, party.ErrNotFound),
		errors.Is(err, ballot.ErrNoRound),
		errors.Is(err, errNoPendingRoll):
		return "not_found"

	case errors.Is(err, roster.ErrSelectionTimeout):
		return "timeout"

	case errors.Is(err, errBadPayload),
		errors.Is(err, party.ErrInvalidInput),
		errors.Is(err, party.ErrUnknownPreset),
		errors.Is(err, party.ErrVoiceRequired),
		errors.Is(err, party.ErrBadTimeFormat),
		errors.Is(err, party.ErrScheduleInPast),
		errors.Is(err, party.ErrUnknownRole),
		errors.Is(err, party.ErrNotJoined),
		errors.Is(err, ballot.ErrInvalidInput),
		errors.Is(err, ballot.ErrInsufficientVoters),
		errors.Is(err, ballot.ErrUnknownChoice),
		errors.Is(err, roster.ErrInvalidCatalog),
		errors.Is(err, roster.ErrInsufficientMembers),
		errors.Is(err, roster.ErrPoolTooLarge),
		errors.Is(err, roster.ErrBadExclusion):
		return "validation"

	default:
		return "internal"
	}
}
