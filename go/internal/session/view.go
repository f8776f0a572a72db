package session

import (
	"github.com/geodueler/geodueler/go/internal/geo"
	"github.com/geodueler/geodueler/go/internal/models"
	"github.com/geodueler/geodueler/go/internal/realtime"
)

// State is the coordinator's position in the round state machine.
type State string

const (
	StateWaiting      State = "WAITING"
	StateRoundActive  State = "ROUND_ACTIVE"
	StateRoundResults State = "ROUND_RESULTS"
	StateFinished     State = "FINISHED"
)

// RoundScore is the local player's outcome for one completed round.
type RoundScore struct {
	RoundIndex int
	Score      int
	DistanceKm float64
	GuessLat   *float64
	GuessLng   *float64
}

// Snapshot is the immutable client-session view handed to the UI layer.
// Every field is a copy; mutating a snapshot never affects the
// coordinator.
type Snapshot struct {
	State      State
	Room       *models.Room
	Players    []models.Player
	IsHost     bool
	IsSolo     bool
	PlayerID   string
	PlayerName string

	RoundIndex     int
	MaxRounds      int
	TimeLeft       int
	Target         *geo.Location
	GuessConfirmed bool
	GuessCount     int

	TotalScore  int
	RoundScores []RoundScore
	LastResults *realtime.RoundResults
	Standings   []realtime.FinalStanding

	// LastError carries the most recent user-facing transient failure,
	// empty when the last transition succeeded.
	LastError string
}

// snapshot builds the view from loop-owned state. Must only be called
// from inside the coordinator loop.
func (c *Coordinator) snapshot() Snapshot {
	s := Snapshot{
		State:          c.state,
		IsHost:         c.isHost,
		IsSolo:         c.isSolo,
		PlayerID:       c.playerID,
		PlayerName:     c.playerName,
		RoundIndex:     c.roundIndex,
		MaxRounds:      c.maxRounds(),
		TimeLeft:       c.timeLeft,
		GuessConfirmed: c.guessConfirmed,
		GuessCount:     c.guessCount,
		TotalScore:     c.totalScore,
		LastError:      c.lastError,
	}
	if c.room != nil {
		room := *c.room
		s.Room = &room
	}
	if c.target != nil {
		target := *c.target
		s.Target = &target
	}
	if len(c.players) > 0 {
		s.Players = append([]models.Player(nil), c.players...)
	}
	if len(c.roundScores) > 0 {
		s.RoundScores = append([]RoundScore(nil), c.roundScores...)
	}
	if c.lastResults != nil {
		rr := *c.lastResults
		rr.Guesses = append([]realtime.GuessResult(nil), c.lastResults.Guesses...)
		s.LastResults = &rr
	}
	if len(c.standings) > 0 {
		s.Standings = append([]realtime.FinalStanding(nil), c.standings...)
	}
	return s
}
