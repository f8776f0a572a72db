package models

import "github.com/google/uuid"

// Player represents one client's membership in a room. The ID is a
// client-generated opaque token, not a server-assigned key; rejoining with
// the same ID updates the existing row instead of duplicating it.
type Player struct {
	ID     string    `json:"id"`
	RoomID uuid.UUID `json:"room_id"`
	Name   string    `json:"name"`
	Score  int       `json:"score"`
	IsHost bool      `json:"is_host"`
}
