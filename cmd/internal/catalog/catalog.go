// Package catalog holds the closed enumerations the coordinator operates on:
// game modes, rank tiers, the map pool, and the role catalog.
//
// These are configuration data, not behavior. Other packages treat them as
// opaque value/label pairs; only the gateway and renderer care about labels.
package catalog

// Entry is one value of a closed enumeration: a wire-stable value plus a
// human-facing label and an optional emoji used by the renderer.
type Entry struct {
	Value string
	Label string
	Emoji string
}

// Modes returns the recruitment game modes.
func Modes() []Entry {
	return []Entry{
		{Value: "competitive", Label: "Competitive"},
		{Value: "unrated", Label: "Unrated"},
		{Value: "spikerush", Label: "Spike Rush"},
		{Value: "deathmatch", Label: "Deathmatch"},
		{Value: "escalation", Label: "Escalation"},
		{Value: "replication", Label: "Replication"},
		{Value: "custom", Label: "Custom"},
	}
}

// Ranks returns the recruitment rank tiers, lowest first.
func Ranks() []Entry {
	return []Entry{
		{Value: "any", Label: "Any"},
		{Value: "iron", Label: "Iron"},
		{Value: "bronze", Label: "Bronze"},
		{Value: "silver", Label: "Silver"},
		{Value: "gold", Label: "Gold"},
		{Value: "platinum", Label: "Platinum"},
		{Value: "diamond", Label: "Diamond"},
		{Value: "ascendant", Label: "Ascendant"},
		{Value: "immortal", Label: "Immortal"},
		{Value: "radiant", Label: "Radiant"},
	}
}

// Maps returns the votable map pool.
func Maps() []Entry {
	return []Entry{
		{Value: "bind", Label: "Bind", Emoji: "🟫"},
		{Value: "haven", Label: "Haven", Emoji: "🟩"},
		{Value: "split", Label: "Split", Emoji: "🟪"},
		{Value: "ascent", Label: "Ascent", Emoji: "⬜"},
		{Value: "icebox", Label: "Icebox", Emoji: "🟦"},
		{Value: "breeze", Label: "Breeze", Emoji: "🟨"},
		{Value: "fracture", Label: "Fracture", Emoji: "🟥"},
		{Value: "pearl", Label: "Pearl", Emoji: "🔵"},
		{Value: "lotus", Label: "Lotus", Emoji: "🟢"},
		{Value: "sunset", Label: "Sunset", Emoji: "🟠"},
		{Value: "abyss", Label: "Abyss", Emoji: "⚫"},
		{Value: "corrode", Label: "Corrode", Emoji: "🔴"},
	}
}

// Roles returns the four assignable roles. This is the catalog the assignment
// engine draws from; it never includes the "any" preference marker.
func Roles() []Entry {
	return []Entry{
		{Value: "duelist", Label: "Duelist", Emoji: "⚔️"},
		{Value: "initiator", Label: "Initiator", Emoji: "🔍"},
		{Value: "controller", Label: "Controller", Emoji: "🛡️"},
		{Value: "sentinel", Label: "Sentinel", Emoji: "🏰"},
	}
}

// RolePreferences returns the choices a joiner may state as a preferred role:
// the four roles plus the "any" wildcard.
func RolePreferences() []Entry {
	return append(Roles(), Entry{Value: "any", Label: "Any role", Emoji: "🎲"})
}

// Values extracts the wire values of a catalog slice, preserving order.
func Values(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	return out
}

// Find returns the entry with the given value, if present.
func Find(entries []Entry, value string) (Entry, bool) {
	for _, e := range entries {
		if e.Value == value {
			return e, true
		}
	}
	return Entry{}, false
}
