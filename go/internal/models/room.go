package models

import (
	"time"

	"github.com/google/uuid"
)

// RoomStatus defines the lifecycle status of a room.
// The status is monotonic: waiting -> playing -> finished.
type RoomStatus string

const (
	RoomStatusWaiting  RoomStatus = "waiting"
	RoomStatusPlaying  RoomStatus = "playing"
	RoomStatusFinished RoomStatus = "finished"
)

// RoomSettings holds the per-room game configuration chosen by the host.
type RoomSettings struct {
	MaxRounds    int `json:"max_rounds"`
	TimeLimitSec int `json:"time_limit"`
}

// Room represents a single multiplayer session instance, identified by a
// short human-shareable code.
type Room struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	HostID       string     `json:"host_id"`
	Status       RoomStatus `json:"status"`
	CurrentRound int        `json:"current_round"`
	MaxRounds    int        `json:"max_rounds"`
	TimeLimitSec int        `json:"time_limit"`
	CreatedAt    time.Time  `json:"created_at"`
}
