package party

import "errors"

var (
	// ErrInvalidInput is returned for structurally bad arguments (empty ids, nil stores).
	ErrInvalidInput = errors.New("invalid input")

	// ErrDuplicateSession is returned when an owner already has a live session.
	ErrDuplicateSession = errors.New("owner already has a live session")

	// ErrUnknownPreset is returned for an unrecognized capacity preset.
	ErrUnknownPreset = errors.New("unknown capacity preset")

	// ErrVoiceRequired is returned when an immediate schedule has no voice target.
	ErrVoiceRequired = errors.New("immediate schedule requires a voice target")

	// ErrBadTimeFormat is returned for a malformed or missing start time.
	ErrBadTimeFormat = errors.New("malformed start time")

	// ErrScheduleInPast is returned when a fully qualified start time is not in the future.
	ErrScheduleInPast = errors.New("start time is in the past")

	// ErrUnknownRole is returned when a stated role preference is not in the catalog.
	ErrUnknownRole = errors.New("unknown role preference")

	// ErrNotFound is returned when a session does not exist (or was just terminated).
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyJoined is returned when the actor is already on the roster.
	ErrAlreadyJoined = errors.New("already joined")

	// ErrFull is returned when the roster is at capacity.
	ErrFull = errors.New("session is full")

	// ErrOwnerCannotLeave is returned when the owner tries to leave instead of terminating.
	ErrOwnerCannotLeave = errors.New("owner cannot leave own session")

	// ErrNotJoined is returned when the actor is not on the roster.
	ErrNotJoined = errors.New("not a participant")

	// ErrNotOwner is returned when a non-owner tries to terminate a session.
	ErrNotOwner = errors.New("only the owner may end the session")
)
