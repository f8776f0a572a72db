// Package realtime carries the per-room notification channel: the
// host-to-follower broadcast events and the row-change notifications that
// back them up. Delivery on both legs is at-most-once and best-effort; the
// coordinator never treats a broadcast as the only way a state change
// becomes visible.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/geodueler/geodueler/go/internal/geo"
)

// Broadcast event names on the wire.
const (
	EventSessionStarting = "SESSION_STARTING"
	EventRoundResults    = "ROUND_RESULTS"
	EventNextRound       = "NEXT_ROUND"
	EventSessionOver     = "SESSION_OVER"
)

// ErrUnknownEvent is returned when an envelope names an event outside the
// closed set below. Subscribers log and drop these.
var ErrUnknownEvent = errors.New("unknown event")

// Event is the closed set of host-authored broadcast events. Every
// implementation lives in this file; the coordinator handles the set
// exhaustively in one switch.
type Event interface {
	EventName() string
}

// SessionStarting carries the full location sequence for the session, so
// followers need no store read to learn round targets.
type SessionStarting struct {
	Locations []geo.Location `json:"locations"`
}

func (SessionStarting) EventName() string { return EventSessionStarting }

// GuessResult is one player's outcome inside a RoundResults payload.
type GuessResult struct {
	PlayerID   string   `json:"playerId"`
	PlayerName string   `json:"playerName"`
	GuessLat   *float64 `json:"guessLat"`
	GuessLng   *float64 `json:"guessLng"`
	DistanceKm float64  `json:"distanceKm"`
	Score      int      `json:"score"`
}

// RoundResults is the host-aggregated outcome of one round. Guesses are
// sorted by score descending; ties keep stable relative order.
type RoundResults struct {
	RoundIndex    int           `json:"roundIndex"`
	TargetLat     float64       `json:"targetLat"`
	TargetLng     float64       `json:"targetLng"`
	TargetCountry string        `json:"targetCountry,omitempty"`
	TargetCity    string        `json:"targetCity,omitempty"`
	TargetImg     string        `json:"targetImg,omitempty"`
	Guesses       []GuessResult `json:"guesses"`
}

func (RoundResults) EventName() string { return EventRoundResults }

// NextRound tells followers which round index to enter.
type NextRound struct {
	RoundIndex int `json:"roundIndex"`
}

func (NextRound) EventName() string { return EventNextRound }

// FinalStanding is one player's final rank entry inside a SessionOver
// payload.
type FinalStanding struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SessionOver carries the final standings, sorted by score descending.
type SessionOver struct {
	Players []FinalStanding `json:"players"`
}

func (SessionOver) EventName() string { return EventSessionOver }

// envelope is the wire framing for broadcast events.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MarshalEvent frames an event for the wire.
func MarshalEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", ev.EventName(), err)
	}
	return json.Marshal(envelope{Event: ev.EventName(), Data: data})
}

// DecodeEvent parses a wire frame back into its concrete event type.
func DecodeEvent(raw []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	var ev Event
	switch env.Event {
	case EventSessionStarting:
		ev = &SessionStarting{}
	case EventRoundResults:
		ev = &RoundResults{}
	case EventNextRound:
		ev = &NextRound{}
	case EventSessionOver:
		ev = &SessionOver{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}

	if err := json.Unmarshal(env.Data, ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Event, err)
	}
	return ev, nil
}
