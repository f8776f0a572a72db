package session

import "errors"

var (
	// ErrNameRequired is returned when a player tries to enter a room
	// without a display name.
	ErrNameRequired = errors.New("player name required")

	// ErrNotHost is returned when a follower calls a host-only operation.
	ErrNotHost = errors.New("not the room host")

	// ErrRoomNotJoinable is returned when the room exists but the session
	// has already started or finished.
	ErrRoomNotJoinable = errors.New("session already started")

	// ErrAlreadyGuessed is returned on a second guess confirmation within
	// one round.
	ErrAlreadyGuessed = errors.New("guess already confirmed")

	// ErrNoActiveRound is returned when a guess arrives outside an active
	// round.
	ErrNoActiveRound = errors.New("no active round")

	// ErrNotAtResults is returned when a round advance is requested
	// outside the results state.
	ErrNotAtResults = errors.New("not at round results")

	// ErrRoundNotVisible is surfaced when a follower's round row never
	// becomes readable within the reconciliation budget.
	ErrRoundNotVisible = errors.New("round not visible in store")
)
