// Package v1 defines the rally coordination protocol v1 contract.
//
// This package is intentionally stable and dependency-light. It is the
// authoritative wire shape for clients of the gateway.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	Version = 1

	// Session handshake.
	TypeHello    = "hello"
	TypeHelloAck = "hello_ack"

	// Room membership (voice-room presence mirroring).
	TypeRoomJoin   = "room_join"
	TypeRoomJoined = "room_joined"
	TypeRoomLeave  = "room_leave"

	// Recruitment actions.
	TypePartyCreate = "party_create"
	TypePartyJoin   = "party_join"
	TypePartyLeave  = "party_leave"
	TypePartyEnd    = "party_end"
	TypePartyList   = "party_list"

	// Recruitment outcomes.
	TypePartySnapshot   = "party_snapshot"
	TypePartyListResult = "party_list_result"
	TypePartyClosed     = "party_closed"

	// Vote actions and outcomes.
	TypeVoteStart    = "vote_start"
	TypeVoteCast     = "vote_cast"
	TypeVoteSnapshot = "vote_snapshot"
	TypeVoteResult   = "vote_result"

	// Role-roll actions and outcomes.
	TypeRollStart   = "roll_start"
	TypeRollExclude = "roll_exclude"
	TypeRollPrompt  = "roll_prompt"
	TypeRollResult  = "roll_result"

	// Side-effect directives.
	TypeRelocate = "relocate"
	TypeNotice   = "notice"

	TypeError = "error"
)

// AllowedTypes is the closed set of envelope types for this protocol version.
var AllowedTypes = map[string]struct{}{
	TypeHello:           {},
	TypeHelloAck:        {},
	TypeRoomJoin:        {},
	TypeRoomJoined:      {},
	TypeRoomLeave:       {},
	TypePartyCreate:     {},
	TypePartyJoin:       {},
	TypePartyLeave:      {},
	TypePartyEnd:        {},
	TypePartyList:       {},
	TypePartySnapshot:   {},
	TypePartyListResult: {},
	TypePartyClosed:     {},
	TypeVoteStart:       {},
	TypeVoteCast:        {},
	TypeVoteSnapshot:    {},
	TypeVoteResult:      {},
	TypeRollStart:       {},
	TypeRollExclude:     {},
	TypeRollPrompt:      {},
	TypeRollResult:      {},
	TypeRelocate:        {},
	TypeNotice:          {},
	TypeError:           {},
}

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if e.V != Version {
		return fmt.Errorf("invalid protocol version: got=%d want=%d", e.V, Version)
	}
	if e.Type == "" {
		return errors.New("missing type")
	}
	if _, ok := AllowedTypes[e.Type]; !ok {
		return fmt.Errorf("unsupported type: %s", e.Type)
	}
	if e.ID == "" {
		return errors.New("missing id")
	}
	if e.TS.IsZero() {
		return errors.New("missing ts")
	}
	if e.Payload == nil {
		return errors.New("missing payload")
	}
	return nil
}

// ---- handshake ----

type HelloPayload struct {
	MemberID string `json:"member_id"`
}

type HelloAckPayload struct {
	ConnID   string `json:"conn_id"`
	MemberID string `json:"member_id"`
}

// ---- rooms ----

type RoomJoinPayload struct {
	RoomID string `json:"room_id"`
}

type RoomJoinedPayload struct {
	RoomID  string `json:"room_id"`
	Members int    `json:"members"`
}

type RoomLeavePayload struct {
	RoomID string `json:"room_id"`
}

// ---- recruitment ----

type PartyCreatePayload struct {
	Mode           string `json:"mode"`
	Rank           string `json:"rank"`
	CapacityPreset string `json:"capacity_preset"`
	ScheduleKind   string `json:"schedule_kind"`
	TimeOfDay      string `json:"time_of_day,omitempty"`
	DateTime       string `json:"date_time,omitempty"`
	VoiceTarget    string `json:"voice_target,omitempty"`
	Description    string `json:"description,omitempty"`
}

type PartyJoinPayload struct {
	SessionID     string `json:"session_id"`
	PreferredRole string `json:"preferred_role,omitempty"`
}

type PartyLeavePayload struct {
	SessionID string `json:"session_id"`
}

type PartyEndPayload struct {
	SessionID string `json:"session_id"`
}

type PartyListPayload struct{}

type PartySnapshotPayload struct {
	SessionID string `json:"session_id"`
	OwnerID   string `json:"owner_id"`
	Status    string `json:"status"`
	Players   int    `json:"players"`
	Capacity  int    `json:"capacity"`
	Summary   string `json:"summary"`
}

type PartyListResultPayload struct {
	Count   int    `json:"count"`
	Summary string `json:"summary"`
}

type PartyClosedPayload struct {
	SessionID string   `json:"session_id"`
	Members   []string `json:"members"`
	Summary   string   `json:"summary"`
}

// ---- votes ----

type VoteStartPayload struct {
	RoomID string `json:"room_id"`
}

type VoteCastPayload struct {
	RoomID string `json:"room_id"`
	Choice string `json:"choice"`
}

type VoteSnapshotPayload struct {
	RoomID           string `json:"room_id"`
	RoundID          string `json:"round_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Voters           int    `json:"voters"`
	Eligible         int    `json:"eligible"`
	Summary          string `json:"summary"`
}

type VoteResultPayload struct {
	RoomID  string `json:"room_id"`
	RoundID string `json:"round_id"`
	Choice  string `json:"choice"`
	Method  string `json:"method"`
	Votes   int    `json:"votes"`
	Summary string `json:"summary"`
}

// ---- rolls ----

type RollStartPayload struct {
	RoomID string `json:"room_id"`
}

type RollExcludePayload struct {
	RoomID   string   `json:"room_id"`
	Excluded []string `json:"excluded"`
}

type RollPromptPayload struct {
	RoomID          string   `json:"room_id"`
	Pool            []string `json:"pool"`
	ExcludeCount    int      `json:"exclude_count"`
	DeadlineSeconds int      `json:"deadline_seconds"`
}

type RollAssignment struct {
	MemberID string `json:"member_id"`
	Role     string `json:"role"`
	Random   bool   `json:"random,omitempty"`
}

type RollResultPayload struct {
	RoomID      string           `json:"room_id"`
	Assignments []RollAssignment `json:"assignments"`
	Summary     string           `json:"summary"`
}

// ---- directives ----

type RelocatePayload struct {
	MemberID string `json:"member_id"`
	Target   string `json:"target"`
}

type NoticePayload struct {
	Audience []string `json:"audience"`
	Message  string   `json:"message"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
