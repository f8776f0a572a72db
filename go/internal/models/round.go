package models

import "github.com/google/uuid"

// Round is one guessing challenge within a session. The target coordinates
// never change after creation; exactly one row exists per (room, number).
type Round struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"room_id"`
	RoundNumber int       `json:"round_number"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
}

// Guess is one player's submitted coordinate for a round, keyed by
// (round, player). A nil coordinate pair means the round timed out with no
// guess, which scores as the maximum-distance sentinel.
type Guess struct {
	RoundID    uuid.UUID `json:"round_id"`
	PlayerID   string    `json:"player_id"`
	GuessLat   *float64  `json:"guess_lat"`
	GuessLng   *float64  `json:"guess_lng"`
	DistanceKm float64   `json:"distance"`
	Score      int       `json:"score"`
}
