// Package store holds the room-store contract: the request shapes, error
// taxonomy and identifier generators shared by every adapter. The Postgres
// adapter in this package is the production implementation; the session
// coordinator only depends on the interface it declares for itself.
package store

import (
	"errors"

	"github.com/google/uuid"

	"github.com/geodueler/geodueler/go/internal/models"
)

// ErrNotFound is returned when a row does not exist. During round-start
// reconciliation this is an expected, retryable condition.
var ErrNotFound = errors.New("not found")

// ErrUnavailable is returned when the store is not configured or not
// reachable. Callers degrade to solo-only play rather than failing.
var ErrUnavailable = errors.New("store unavailable")

// ErrDuplicate is returned when a write is rejected by a uniqueness
// constraint. It is surfaced, never retried automatically.
var ErrDuplicate = errors.New("duplicate row")

// CreateRoomRequest contains all data needed to create a room with its
// host player.
type CreateRoomRequest struct {
	HostID       string
	HostName     string
	MaxRounds    int
	TimeLimitSec int
}

// UpsertPlayerRequest contains all data needed to add a player to a room.
// Rejoining with the same ID updates the existing row.
type UpsertPlayerRequest struct {
	ID     string
	RoomID uuid.UUID
	Name   string
	IsHost bool
}

// CreateRoundRequest contains all data needed to persist a round target.
type CreateRoundRequest struct {
	RoomID      uuid.UUID
	RoundNumber int
	Lat         float64
	Lng         float64
}

// UpsertGuessRequest contains all data needed to record a guess. A later
// submission for the same (round, player) replaces the earlier row.
type UpsertGuessRequest struct {
	RoundID    uuid.UUID
	PlayerID   string
	GuessLat   *float64
	GuessLng   *float64
	DistanceKm float64
	Score      int
}

// AppendLeaderboardRequest contains all data for one append-only
// leaderboard entry.
type AppendLeaderboardRequest struct {
	PlayerName string
	Score      int
	Rounds     int
}

// RoundGuess is a guess row joined with the submitting player's name, as
// needed for the host's results aggregation.
type RoundGuess struct {
	models.Guess
	PlayerName string `json:"player_name"`
}
