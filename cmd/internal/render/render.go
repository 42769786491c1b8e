// Package render produces the human-readable summaries of coordinator state.
// Everything here is deterministic string assembly over immutable snapshots.
package render

import (
	"fmt"
	"strings"

	"rally/cmd/internal/ballot"
	"rally/cmd/internal/catalog"
	"rally/cmd/internal/party"
	"rally/cmd/internal/roster"
)

const (
	maxBarCells      = 10
	maxLiveStandings = 8
	maxFinalRows     = 5
)

// Party renders one session snapshot.
func Party(s party.Snapshot) string {
	var b strings.Builder

	title := "🎮 Party"
	if s.Status == party.StatusFull {
		title = "🎮 Party [FULL]"
	}
	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "Mode: %s | Rank: %s\n", label(catalog.Modes(), s.Mode), label(catalog.Ranks(), s.Rank))
	fmt.Fprintf(&b, "Players: %d/%d\n", len(s.Participants), s.Capacity)
	fmt.Fprintf(&b, "Start: %s\n", s.Schedule.Display)
	if s.Schedule.Kind == party.ScheduleNow && s.VoiceTarget != "" {
		fmt.Fprintf(&b, "Voice: %s\n", s.VoiceTarget)
	}
	if s.Description != "" {
		fmt.Fprintf(&b, "Notes: %s\n", s.Description)
	}

	b.WriteString("Roster:\n")
	for _, p := range s.Participants {
		line := "  • " + p.MemberID
		if p.MemberID == s.OwnerID {
			line += " (owner)"
		}
		if p.PreferredRole != "" {
			if e, ok := catalog.Find(catalog.RolePreferences(), p.PreferredRole); ok {
				line += fmt.Sprintf(" - wants %s %s", e.Emoji, e.Label)
			}
		}
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "Session: %s", s.ID)
	return b.String()
}

// PartyList renders the live-session listing; an empty list is a valid page.
func PartyList(list []party.Snapshot) string {
	if len(list) == 0 {
		return "📋 No parties are recruiting right now."
	}

	var b strings.Builder
	b.WriteString("📋 Open parties\n")
	for _, s := range list {
		fmt.Fprintf(&b, "• %s | %s | %d/%d | owner %s | starts %s\n",
			label(catalog.Modes(), s.Mode), label(catalog.Ranks(), s.Rank),
			len(s.Participants), s.Capacity, s.OwnerID, s.Schedule.Display)
	}
	return strings.TrimRight(b.String(), "\n")
}

// VoteStatus renders a live round: leading standings with bars, remaining
// window, voter progress.
func VoteStatus(s ballot.Snapshot) string {
	var b strings.Builder
	b.WriteString("🗺️ Map vote\n")
	fmt.Fprintf(&b, "⏱️ Remaining: %s | 👥 Voted: %d/%d\n", clock(s), s.Voters, s.Eligible)

	rows := s.Standings
	if len(rows) > maxLiveStandings {
		rows = rows[:maxLiveStandings]
	}
	for i, st := range rows {
		prefix := "📍"
		if i == 0 && st.Votes > 0 {
			prefix = "🏆"
		}
		fmt.Fprintf(&b, "%s %s: %s %d\n", prefix, choiceLabel(st.Choice), bar(st.Votes), st.Votes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// VoteResult renders a resolution with its method annotation and the final
// standings.
func VoteResult(res ballot.Resolution, s ballot.Snapshot) string {
	var b strings.Builder
	b.WriteString("🏆 Map vote result\n")
	fmt.Fprintf(&b, "Winner: %s", choiceLabel(res.Choice))

	switch res.Method {
	case ballot.MethodRandomNoVotes:
		b.WriteString(" (no votes cast, picked at random)\n")
	case ballot.MethodTieRandom:
		fmt.Fprintf(&b, " (tied at %d, picked at random among the tied)\n", res.Votes)
	default:
		fmt.Fprintf(&b, " (%d votes)\n", res.Votes)
	}

	rows := s.Standings
	if len(rows) > maxFinalRows {
		rows = rows[:maxFinalRows]
	}
	for _, st := range rows {
		fmt.Fprintf(&b, "%s: %s %d\n", choiceLabel(st.Choice), bar(st.Votes), st.Votes)
	}
	fmt.Fprintf(&b, "👥 %d/%d voted", s.Voters, s.Eligible)
	return b.String()
}

// Roll renders an assignment result; the random fifth slot is marked.
func Roll(assignments []roster.Assignment) string {
	var b strings.Builder
	b.WriteString("🎲 Role assignment\n")
	for _, a := range assignments {
		suffix := ""
		if a.Random {
			suffix = " 🎲"
		}
		fmt.Fprintf(&b, "%s: %s %s%s\n", a.MemberID, a.Role.Emoji, a.Role.Label, suffix)
	}
	b.WriteString("One member per role, fifth slot rolled from the full catalog")
	return b.String()
}

func label(entries []catalog.Entry, value string) string {
	if e, ok := catalog.Find(entries, value); ok {
		return e.Label
	}
	return value
}

func choiceLabel(value string) string {
	if e, ok := catalog.Find(catalog.Maps(), value); ok {
		return e.Emoji + " " + e.Label
	}
	return value
}

func bar(votes int) string {
	n := votes
	if n > maxBarCells {
		n = maxBarCells
	}
	if n <= 0 {
		return ""
	}
	return strings.Repeat("█", n)
}

func clock(s ballot.Snapshot) string {
	secs := int(s.Remaining.Seconds())
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
