// Package roster implements randomized fair role assignment: a five-member
// pool partitioned over a four-role catalog.
package roster

import (
	"math/rand/v2"

	"rally/cmd/internal/catalog"
)

// PoolSize is the fixed number of members one assignment covers.
const PoolSize = 5

// RoleCount is the fixed number of distinct roles in the catalog.
const RoleCount = 4

// Assignment maps one member to one role. Random marks the fifth member,
// whose role is drawn from the full catalog independently of the other four
// and may duplicate one of them.
type Assignment struct {
	MemberID string
	Role     catalog.Entry
	Random   bool
}

// Assign partitions a five-member pool across the role catalog.
//
// Both the pool and the roles are shuffled with unbiased permutations and
// zipped positionally: the first four shuffled members each get a distinct
// role, the fifth draws uniformly from the whole catalog. The inputs are
// never mutated.
func Assign(pool []string, roles []catalog.Entry, rnd *rand.Rand) ([]Assignment, error) {
	if len(roles) != RoleCount {
		return nil, ErrInvalidCatalog
	}
	seen := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		if _, dup := seen[r.Value]; dup {
			return nil, ErrInvalidCatalog
		}
		seen[r.Value] = struct{}{}
	}

	if len(pool) < PoolSize {
		return nil, ErrInsufficientMembers
	}
	if len(pool) > PoolSize {
		return nil, ErrPoolTooLarge
	}

	members := make([]string, PoolSize)
	copy(members, pool)
	rnd.Shuffle(PoolSize, func(i, j int) { members[i], members[j] = members[j], members[i] })

	shuffledRoles := make([]catalog.Entry, RoleCount)
	copy(shuffledRoles, roles)
	rnd.Shuffle(RoleCount, func(i, j int) { shuffledRoles[i], shuffledRoles[j] = shuffledRoles[j], shuffledRoles[i] })

	out := make([]Assignment, 0, PoolSize)
	for i := 0; i < RoleCount; i++ {
		out = append(out, Assignment{MemberID: members[i], Role: shuffledRoles[i]})
	}
	out = append(out, Assignment{
		MemberID: members[RoleCount],
		Role:     roles[rnd.IntN(RoleCount)],
		Random:   true,
	})
	return out, nil
}

// Narrow removes the excluded members from the pool, validating that the
// remainder is exactly one assignment's worth.
func Narrow(pool, excluded []string) ([]string, error) {
	if len(pool)-len(excluded) != PoolSize {
		return nil, ErrBadExclusion
	}

	drop := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		drop[id] = struct{}{}
	}

	out := make([]string, 0, PoolSize)
	for _, id := range pool {
		if _, ok := drop[id]; ok {
			delete(drop, id)
			continue
		}
		out = append(out, id)
	}
	if len(out) != PoolSize || len(drop) != 0 {
		// Exclusions named members outside the pool, or duplicates.
		return nil, ErrBadExclusion
	}
	return out, nil
}
