package roster

import "errors"

var (
	// ErrInvalidCatalog is returned when the role catalog is not four distinct roles.
	ErrInvalidCatalog = errors.New("role catalog must hold four distinct roles")

	// ErrInsufficientMembers is returned when fewer than five members are available.
	ErrInsufficientMembers = errors.New("at least five members required")

	// ErrPoolTooLarge is returned when more than five members reach the engine;
	// the exclusion step must narrow the pool first.
	ErrPoolTooLarge = errors.New("pool exceeds five members")

	// ErrSelectionTimeout is returned when the interactive exclusion step does
	// not complete in time; no assignment is produced.
	ErrSelectionTimeout = errors.New("exclusion selection timed out")

	// ErrBadExclusion is returned when the excluded set does not narrow the
	// pool to exactly five members of the original pool.
	ErrBadExclusion = errors.New("exclusions must leave exactly five pool members")
)
