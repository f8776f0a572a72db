package models

import "time"

// LeaderboardEntry records one finished session for one player. Entries are
// append-only; they are never updated or deleted.
type LeaderboardEntry struct {
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	Rounds     int       `json:"rounds"`
	CreatedAt  time.Time `json:"created_at"`
}
