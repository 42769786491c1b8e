package ballot

import "errors"

var (
	// ErrInvalidInput is returned for structurally bad arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientVoters is returned when fewer than two voters are eligible.
	ErrInsufficientVoters = errors.New("at least two eligible voters required")

	// ErrRoundActive is returned when the room already has a live round.
	ErrRoundActive = errors.New("a vote round is already running")

	// ErrNoRound is returned when the room has no live round.
	ErrNoRound = errors.New("no vote round running")

	// ErrRoundClosed is returned for ballots cast at or after the deadline.
	ErrRoundClosed = errors.New("vote round is closed")

	// ErrIneligible is returned for ballots from outside the eligible-voter set.
	ErrIneligible = errors.New("voter is not eligible")

	// ErrUnknownChoice is returned for ballots naming a choice outside the catalog.
	ErrUnknownChoice = errors.New("choice not in catalog")
)
