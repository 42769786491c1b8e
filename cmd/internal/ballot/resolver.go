package ballot

import "math/rand/v2"

// Method tags how a winner was selected.
type Method string

const (
	// MethodPlurality marks a unique maximum tally.
	MethodPlurality Method = "plurality"
	// MethodTieRandom marks a uniform draw among choices tied for the maximum.
	MethodTieRandom Method = "tie_random"
	// MethodRandomNoVotes marks a uniform draw over the whole catalog because
	// no ballots were cast.
	MethodRandomNoVotes Method = "random_no_votes"
)

// Resolution is the outcome of a closed round.
type Resolution struct {
	Choice string
	Method Method
	Votes  int
	Tally  map[string]int
}

// Resolve picks a winner from final tallies.
//
// The tied set is collected in catalog order and then drawn from by index, so
// catalog position never biases the outcome; rnd is consulted fresh on every
// call.
func Resolve(tally map[string]int, choiceCatalog []string, rnd *rand.Rand) Resolution {
	final := make(map[string]int, len(choiceCatalog))
	maxVotes := 0
	for _, c := range choiceCatalog {
		n := tally[c]
		final[c] = n
		if n > maxVotes {
			maxVotes = n
		}
	}

	if maxVotes == 0 {
		return Resolution{
			Choice: choiceCatalog[rnd.IntN(len(choiceCatalog))],
			Method: MethodRandomNoVotes,
			Votes:  0,
			Tally:  final,
		}
	}

	tied := make([]string, 0, 2)
	for _, c := range choiceCatalog {
		if final[c] == maxVotes {
			tied = append(tied, c)
		}
	}

	if len(tied) == 1 {
		return Resolution{Choice: tied[0], Method: MethodPlurality, Votes: maxVotes, Tally: final}
	}
	return Resolution{
		Choice: tied[rnd.IntN(len(tied))],
		Method: MethodTieRandom,
		Votes:  maxVotes,
		Tally:  final,
	}
}
