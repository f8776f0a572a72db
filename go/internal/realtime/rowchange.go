package realtime

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NotifyChannel is the Postgres NOTIFY channel the schema triggers write
// to and the row-change listener LISTENs on.
const NotifyChannel = "room_row_changes"

// Table identifies which entity a row-change notification is about.
type Table string

const (
	TableRooms   Table = "rooms"
	TablePlayers Table = "players"
	TableGuesses Table = "guesses"
)

// Op is the row operation behind a notification.
type Op string

const (
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// RowChange is a push signal that a persisted row in the subscriber's room
// was inserted, updated or deleted. Row carries the new row (old row for
// deletes) as raw JSON; subscribers that need fresh state re-read the
// store instead of trusting the payload.
type RowChange struct {
	Table  Table           `json:"table"`
	Op     Op              `json:"op"`
	RoomID uuid.UUID       `json:"room_id"`
	Row    json.RawMessage `json:"row"`
}
