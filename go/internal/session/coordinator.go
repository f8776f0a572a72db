// Package session implements the round/result/finish state machine that
// coordinates a geography-guessing session across clients sharing only a
// row store and a best-effort pub/sub channel.
//
// Exactly one coordinator per room runs as host: it generates the round
// sequence, creates round rows, aggregates results and advances state.
// All other instances are followers and only react to broadcast events
// and row-change notifications. There is no host failover: if the host
// disconnects mid-session, followers stall on their current screen.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/geodueler/geodueler/go/internal/geo"
	"github.com/geodueler/geodueler/go/internal/models"
	"github.com/geodueler/geodueler/go/internal/realtime"
	"github.com/geodueler/geodueler/go/internal/scoring"
	"github.com/geodueler/geodueler/go/internal/store"
)

// coordinate is a confirmed guess position.
type coordinate struct {
	Lat float64
	Lng float64
}

// Coordinator owns all session state for one client. Every field below
// the cmds channel is owned by the Run loop; public methods hand work to
// the loop and wait, so callers never touch state concurrently.
type Coordinator struct {
	store   Store   // nil: solo-only
	channel Channel // nil: solo-only
	cfg     Config

	clock    clockwork.Clock
	sequence func(n int) []geo.Location

	cmds chan func()

	// Loop-owned session context.
	playerID   string
	playerName string
	state      State
	isHost     bool
	isSolo     bool
	room       *models.Room
	players    []models.Player
	locations  []geo.Location

	roundIndex     int
	roundID        uuid.UUID
	target         *geo.Location
	guessConfirmed bool
	guessCount     int
	timeLeft       int

	totalScore  int
	roundScores []RoundScore
	lastResults *realtime.RoundResults
	standings   []realtime.FinalStanding
	lastError   string

	sub       Subscription
	countdown clockwork.Ticker
	tickCh    <-chan time.Time
	graceCh   <-chan time.Time
}

// New creates a coordinator. Both store and channel may be nil, which
// degrades the client to solo-only play.
func New(st Store, ch Channel, cfg Config) *Coordinator {
	return &Coordinator{
		store:    st,
		channel:  ch,
		cfg:      cfg,
		clock:    clockwork.NewRealClock(),
		sequence: geo.RandomSequence,
		cmds:     make(chan func()),
		playerID: store.GeneratePlayerID(),
		state:    StateWaiting,
	}
}

// Run drives the coordinator until the context is cancelled. All state
// transitions happen on this goroutine; store and channel I/O for a
// transition runs inline, suspending only this session.
func (c *Coordinator) Run(ctx context.Context) error {
	defer c.teardown(context.WithoutCancel(ctx))

	for {
		var (
			events <-chan realtime.Event
			rows   <-chan realtime.RowChange
		)
		if c.sub != nil {
			events = c.sub.Events()
			rows = c.sub.RowChanges()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-c.cmds:
			cmd()
		case ev, ok := <-events:
			if ok {
				c.handleEvent(ctx, ev)
			}
		case rc, ok := <-rows:
			if ok {
				c.handleRowChange(ctx, rc)
			}
		case <-c.tickCh:
			c.handleTick(ctx)
		case <-c.graceCh:
			c.graceCh = nil
			c.finishRound(ctx)
		}
	}
}

// do runs fn on the loop goroutine and returns its error.
func (c *Coordinator) do(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	select {
	case c.cmds <- func() { done <- fn(ctx) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns an immutable copy of the current session view.
func (c *Coordinator) Snapshot(ctx context.Context) (Snapshot, error) {
	var s Snapshot
	err := c.do(ctx, func(context.Context) error {
		s = c.snapshot()
		return nil
	})
	return s, err
}

// StartSolo begins a local-only session: no room, no store writes during
// rounds, a leaderboard entry at the end when a store is reachable.
func (c *Coordinator) StartSolo(ctx context.Context, name string) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != StateWaiting || c.room != nil {
			return ErrRoomNotJoinable
		}
		c.playerName = strings.TrimSpace(name)
		if c.playerName == "" {
			c.playerName = c.cfg.DefaultName
		}
		c.isSolo = true
		c.isHost = false
		c.locations = c.sequence(c.cfg.DefaultRounds)
		c.resetScores()
		log.Info().Str("player_id", c.playerID).Msg("starting solo session")
		return c.startRound(ctx, 0)
	})
}

// CreateRoom creates a multiplayer room with this client as host and
// enters its lobby.
func (c *Coordinator) CreateRoom(ctx context.Context, name string, settings models.RoomSettings) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.store == nil || c.channel == nil {
			return store.ErrUnavailable
		}
		if c.state != StateWaiting || c.room != nil {
			return ErrRoomNotJoinable
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrNameRequired
		}
		if settings.MaxRounds <= 0 {
			settings.MaxRounds = c.cfg.DefaultRounds
		}
		if settings.TimeLimitSec <= 0 {
			settings.TimeLimitSec = c.cfg.DefaultTimeLimitSec
		}

		room, err := c.store.CreateRoom(ctx, store.CreateRoomRequest{
			HostID:       c.playerID,
			HostName:     name,
			MaxRounds:    settings.MaxRounds,
			TimeLimitSec: settings.TimeLimitSec,
		})
		if err != nil {
			return err
		}

		sub, err := c.channel.Subscribe(ctx, room.ID)
		if err != nil {
			return err
		}

		c.playerName = name
		c.room = room
		c.isHost = true
		c.sub = sub
		c.players = []models.Player{{ID: c.playerID, RoomID: room.ID, Name: name, IsHost: true}}
		c.lastError = ""
		log.Info().Str("room_code", room.Code).Str("room_id", room.ID.String()).Msg("room created")
		c.notify()
		return nil
	})
}

// JoinRoom enters an existing waiting room as a follower. Joining with
// the same player id again updates, not duplicates, the player row.
func (c *Coordinator) JoinRoom(ctx context.Context, name, code string) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.store == nil || c.channel == nil {
			return store.ErrUnavailable
		}
		if c.state != StateWaiting || c.room != nil {
			return ErrRoomNotJoinable
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return ErrNameRequired
		}

		room, err := c.store.GetRoomByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
		if err != nil {
			return err
		}
		if room.Status != models.RoomStatusWaiting {
			return ErrRoomNotJoinable
		}

		if _, err := c.store.UpsertPlayer(ctx, store.UpsertPlayerRequest{
			ID:     c.playerID,
			RoomID: room.ID,
			Name:   name,
		}); err != nil {
			return err
		}

		sub, err := c.channel.Subscribe(ctx, room.ID)
		if err != nil {
			return err
		}

		players, err := c.store.ListPlayersByRoom(ctx, room.ID)
		if err != nil {
			return err
		}

		c.playerName = name
		c.room = room
		c.isHost = false
		c.sub = sub
		c.players = players
		c.lastError = ""
		log.Info().Str("room_code", room.Code).Str("player_id", c.playerID).Msg("joined room")
		c.notify()
		return nil
	})
}

// StartSession is the host's Waiting -> RoundActive(0) transition: it
// fixes the location sequence, broadcasts it, then persists room status
// so followers that miss the broadcast still transition off the
// row-change notification.
func (c *Coordinator) StartSession(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.room == nil || c.isSolo {
			return ErrRoomNotJoinable
		}
		if !c.isHost {
			return ErrNotHost
		}
		if c.state != StateWaiting {
			return ErrRoomNotJoinable
		}

		c.locations = c.sequence(c.room.MaxRounds)
		c.resetScores()

		if err := c.channel.Broadcast(ctx, c.room.ID, &realtime.SessionStarting{Locations: c.locations}); err != nil {
			log.Error().Err(err).Msg("failed to broadcast session start")
		}
		c.clock.Sleep(c.cfg.BroadcastSettle)

		zero := 0
		if err := c.store.UpdateRoomStatus(ctx, c.room.ID, models.RoomStatusPlaying, &zero); err != nil {
			return err
		}
		c.room.Status = models.RoomStatusPlaying
		c.room.CurrentRound = 0

		return c.startRound(ctx, 0)
	})
}

// SubmitGuess confirms the local player's guess for the active round.
// Exactly one confirmation is allowed per round; the countdown timer is
// cancelled by it.
func (c *Coordinator) SubmitGuess(ctx context.Context, lat, lng float64) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != StateRoundActive {
			return ErrNoActiveRound
		}
		if c.guessConfirmed {
			return ErrAlreadyGuessed
		}
		return c.confirmGuess(ctx, &coordinate{Lat: lat, Lng: lng})
	})
}

// AdvanceRound moves the session past a results screen: to the next
// round, or to the final standings after the last one. Host-only in
// multiplayer; followers are advanced by the host's broadcasts.
func (c *Coordinator) AdvanceRound(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		if c.state != StateRoundResults {
			return ErrNotAtResults
		}
		if !c.isSolo && !c.isHost {
			return ErrNotHost
		}

		if c.roundIndex+1 >= c.maxRounds() {
			return c.finishSession(ctx)
		}

		next := c.roundIndex + 1
		if c.isHost && !c.isSolo {
			if err := c.channel.Broadcast(ctx, c.room.ID, &realtime.NextRound{RoundIndex: next}); err != nil {
				log.Error().Err(err).Int("round", next).Msg("failed to broadcast next round")
			}
		}
		return c.startRound(ctx, next)
	})
}

// Leave tears the local session down: timers stopped, channel
// unsubscribed, the player row removed in multiplayer. Other
// participants observe no formal transition.
func (c *Coordinator) Leave(ctx context.Context) error {
	return c.do(ctx, func(ctx context.Context) error {
		c.teardown(ctx)
		c.resetSession()
		c.notify()
		return nil
	})
}

// --- loop-side handlers ---

// handleEvent reacts to host broadcasts. The closed event set is handled
// exhaustively; the host ignores its own echoes.
func (c *Coordinator) handleEvent(ctx context.Context, ev realtime.Event) {
	if c.isHost {
		return
	}

	switch ev := ev.(type) {
	case *realtime.SessionStarting:
		if c.state != StateWaiting {
			return
		}
		c.locations = ev.Locations
		c.resetScores()
		c.notify()

	case *realtime.RoundResults:
		if c.state == StateRoundActive && ev.RoundIndex == c.roundIndex {
			c.applyResults(ev)
		}

	case *realtime.NextRound:
		if c.state == StateRoundActive || c.state == StateRoundResults {
			if ev.RoundIndex > c.roundIndex {
				if err := c.startRound(ctx, ev.RoundIndex); err != nil {
					c.failRound(err)
				}
			}
		}

	case *realtime.SessionOver:
		c.applyFinal(ctx, ev.Players)

	default:
		log.Warn().Str("event", ev.EventName()).Msg("unhandled broadcast event")
	}
}

// handleRowChange reacts to store notifications. Every broadcast-driven
// transition is also reachable from here, so a missed broadcast degrades
// to a slower transition instead of a stall.
func (c *Coordinator) handleRowChange(ctx context.Context, rc realtime.RowChange) {
	switch rc.Table {
	case realtime.TableRooms:
		var room models.Room
		if err := decodeRow(rc.Row, &room); err != nil {
			log.Warn().Err(err).Msg("bad room row change")
			return
		}
		c.applyRoomChange(ctx, &room)

	case realtime.TablePlayers:
		c.refreshPlayers(ctx)

	case realtime.TableGuesses:
		c.refreshGuessCount(ctx)
	}
}

func (c *Coordinator) applyRoomChange(ctx context.Context, room *models.Room) {
	if c.room == nil || room.ID != c.room.ID {
		return
	}
	c.room = room

	switch room.Status {
	case models.RoomStatusPlaying:
		// The host drives its own transitions; only followers take the
		// row change as a start signal. The broadcast may not have
		// arrived yet; proceed on the round index alone and let
		// round-entry reconciliation find the target.
		if c.state == StateWaiting && !c.isHost {
			if err := c.startRound(ctx, room.CurrentRound); err != nil {
				c.failRound(err)
			}
			return
		}
		if !c.isHost && room.CurrentRound > c.roundIndex &&
			(c.state == StateRoundActive || c.state == StateRoundResults) {
			if err := c.startRound(ctx, room.CurrentRound); err != nil {
				c.failRound(err)
			}
			return
		}
		c.notify()

	case models.RoomStatusFinished:
		if !c.isHost && c.state != StateFinished {
			// Missed SESSION_OVER: reconstruct standings from the store.
			standings := c.standingsFromStore(ctx)
			c.applyFinal(ctx, standings)
			return
		}
		c.notify()

	default:
		c.notify()
	}
}

func (c *Coordinator) refreshPlayers(ctx context.Context) {
	if c.isSolo || c.store == nil || c.room == nil {
		return
	}
	players, err := c.store.ListPlayersByRoom(ctx, c.room.ID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to refresh players")
		return
	}
	c.players = players
	c.notify()
}

func (c *Coordinator) refreshGuessCount(ctx context.Context) {
	if c.isSolo || c.store == nil || c.state != StateRoundActive || c.roundID == uuid.Nil {
		return
	}
	n, err := c.store.CountGuessesForRound(ctx, c.roundID)
	if err != nil {
		log.Warn().Err(err).Msg("failed to count guesses")
		return
	}
	c.guessCount = n
	c.notify()
}

func (c *Coordinator) handleTick(ctx context.Context) {
	if c.state != StateRoundActive || c.guessConfirmed {
		return
	}
	c.timeLeft--
	if c.timeLeft > 0 {
		c.notify()
		return
	}
	// Countdown expired: auto-submit an empty guess, which scores as the
	// maximum-distance sentinel.
	if err := c.confirmGuess(ctx, nil); err != nil {
		log.Error().Err(err).Msg("auto-submit failed")
	}
}

// --- transitions ---

// startRound enters RoundActive(index) on every instance. The host
// persists the round row (and the round index for rounds after the
// first); followers wait out the settle delay and then poll the store
// for the round row with bounded backoff.
func (c *Coordinator) startRound(ctx context.Context, index int) error {
	if c.state == StateRoundActive && c.roundIndex == index {
		return nil
	}

	c.state = StateRoundActive
	c.roundIndex = index
	c.roundID = uuid.Nil
	c.guessConfirmed = false
	c.guessCount = 0
	c.lastResults = nil
	c.lastError = ""

	if index < len(c.locations) {
		loc := c.locations[index]
		c.target = &loc
	} else {
		c.target = nil
	}

	if !c.isSolo {
		if c.isHost {
			if err := c.hostCreateRound(ctx, index); err != nil {
				return err
			}
		} else if err := c.followerFetchRound(ctx, index); err != nil {
			return err
		}
	}

	c.timeLeft = c.timeLimit()
	c.startCountdown()

	log.Info().
		Int("round", index).
		Bool("host", c.isHost).
		Bool("solo", c.isSolo).
		Msg("round started")
	c.notify()
	return nil
}

func (c *Coordinator) hostCreateRound(ctx context.Context, index int) error {
	if index > 0 {
		// Keep current_round fresh so followers can recover a missed
		// NEXT_ROUND broadcast from the row-change notification.
		if err := c.store.UpdateRoomStatus(ctx, c.room.ID, models.RoomStatusPlaying, &index); err != nil {
			log.Error().Err(err).Int("round", index).Msg("failed to persist round index")
		} else {
			c.room.CurrentRound = index
		}
	}

	round, err := c.store.CreateRound(ctx, store.CreateRoundRequest{
		RoomID:      c.room.ID,
		RoundNumber: index,
		Lat:         c.target.Lat,
		Lng:         c.target.Lng,
	})
	if errors.Is(err, store.ErrDuplicate) {
		round, err = c.store.GetRoundByNumber(ctx, c.room.ID, index)
	}
	if err != nil {
		return err
	}
	c.roundID = round.ID
	return nil
}

// followerFetchRound is the wait-then-read reconciliation: the channel
// gives no ordering guarantee relative to store visibility, so the
// follower sleeps out the settle delay and then re-reads with linearly
// growing backoff until the host's round row appears.
func (c *Coordinator) followerFetchRound(ctx context.Context, index int) error {
	c.clock.Sleep(c.cfg.RoundSettleDelay)

	var round *models.Round
	var err error
	for attempt := 0; ; attempt++ {
		round, err = c.store.GetRoundByNumber(ctx, c.room.ID, index)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if attempt >= c.cfg.RoundPollRetries {
			return ErrRoundNotVisible
		}
		c.clock.Sleep(c.cfg.RoundPollBackoff * time.Duration(attempt+1))
	}

	c.roundID = round.ID
	if c.target == nil {
		// The session-starting broadcast never arrived; the persisted
		// round row is the only source of the target.
		c.target = &geo.Location{Lat: round.Lat, Lng: round.Lng}
	}
	return nil
}

// confirmGuess applies the guess sub-protocol: local scoring, the guess
// upsert, and the read-then-write score increment, all serialized through
// this loop.
func (c *Coordinator) confirmGuess(ctx context.Context, coord *coordinate) error {
	c.guessConfirmed = true
	c.stopCountdown()

	var (
		guessLat, guessLng *float64
		distanceKm         float64
		roundScore         int
	)
	if coord != nil && c.target != nil {
		distanceKm = scoring.Distance(c.target.Lat, c.target.Lng, coord.Lat, coord.Lng)
		roundScore = scoring.Score(distanceKm)
		guessLat, guessLng = &coord.Lat, &coord.Lng
	} else {
		distanceKm = scoring.MaxDistanceKm
		roundScore = 0
	}

	c.totalScore += roundScore
	c.roundScores = append(c.roundScores, RoundScore{
		RoundIndex: c.roundIndex,
		Score:      roundScore,
		DistanceKm: distanceKm,
		GuessLat:   guessLat,
		GuessLng:   guessLng,
	})

	if !c.isSolo && c.roundID != uuid.Nil {
		if _, err := c.store.UpsertGuess(ctx, store.UpsertGuessRequest{
			RoundID:    c.roundID,
			PlayerID:   c.playerID,
			GuessLat:   guessLat,
			GuessLng:   guessLng,
			DistanceKm: distanceKm,
			Score:      roundScore,
		}); err != nil {
			log.Error().Err(err).Msg("failed to persist guess")
			c.lastError = "could not save your guess"
		} else if err := c.store.AddPlayerScore(ctx, c.playerID, roundScore); err != nil {
			log.Error().Err(err).Msg("failed to add player score")
			c.lastError = "could not update your score"
		}
	}

	log.Info().
		Int("round", c.roundIndex).
		Int("score", roundScore).
		Float64("distance_km", distanceKm).
		Msg("guess confirmed")

	switch {
	case c.isSolo:
		c.finishRound(ctx)
	case c.isHost:
		// Give late guesses from other players time to land before
		// aggregating.
		if c.cfg.MultiplayerGrace <= 0 {
			c.finishRound(ctx)
		} else {
			c.graceCh = c.clock.After(c.cfg.MultiplayerGrace)
			c.notify()
		}
	default:
		c.notify()
	}
	return nil
}

// finishRound aggregates and publishes round results. Only the host (or
// a solo player) runs it; followers receive the payload and never read
// guesses themselves.
func (c *Coordinator) finishRound(ctx context.Context) {
	if c.state != StateRoundActive {
		return
	}

	results := &realtime.RoundResults{RoundIndex: c.roundIndex}
	if c.target != nil {
		results.TargetLat = c.target.Lat
		results.TargetLng = c.target.Lng
		results.TargetCountry = c.target.Country
		results.TargetCity = c.target.City
		results.TargetImg = c.target.Img
	}

	if !c.isSolo && c.roundID != uuid.Nil {
		guesses, err := c.store.ListGuessesForRound(ctx, c.roundID)
		if err != nil {
			log.Error().Err(err).Msg("failed to aggregate round guesses")
			c.lastError = "could not load round results"
		}
		for _, g := range guesses {
			results.Guesses = append(results.Guesses, realtime.GuessResult{
				PlayerID:   g.PlayerID,
				PlayerName: g.PlayerName,
				GuessLat:   g.GuessLat,
				GuessLng:   g.GuessLng,
				DistanceKm: g.DistanceKm,
				Score:      g.Score,
			})
		}
	} else if len(c.roundScores) > 0 {
		rs := c.roundScores[len(c.roundScores)-1]
		results.Guesses = []realtime.GuessResult{{
			PlayerID:   c.playerID,
			PlayerName: c.playerName,
			GuessLat:   rs.GuessLat,
			GuessLng:   rs.GuessLng,
			DistanceKm: rs.DistanceKm,
			Score:      rs.Score,
		}}
	}

	// Score descending; ties keep stable relative order.
	sort.SliceStable(results.Guesses, func(i, j int) bool {
		return results.Guesses[i].Score > results.Guesses[j].Score
	})

	if c.isHost && !c.isSolo {
		if err := c.channel.Broadcast(ctx, c.room.ID, results); err != nil {
			log.Error().Err(err).Int("round", c.roundIndex).Msg("failed to broadcast round results")
		}
	}
	c.applyResults(results)
}

func (c *Coordinator) applyResults(results *realtime.RoundResults) {
	c.stopCountdown()
	c.graceCh = nil
	c.state = StateRoundResults
	c.lastResults = results
	c.notify()
}

// finishSession is the host/solo RoundResults -> Finished transition.
func (c *Coordinator) finishSession(ctx context.Context) error {
	if c.isSolo {
		c.appendOwnLeaderboardEntry(ctx)
		c.state = StateFinished
		c.standings = []realtime.FinalStanding{{ID: c.playerID, Name: c.playerName, Score: c.totalScore}}
		log.Info().Int("total_score", c.totalScore).Msg("solo session finished")
		c.notify()
		return nil
	}

	standings := c.standingsFromStore(ctx)
	c.appendOwnLeaderboardEntry(ctx)

	if err := c.channel.Broadcast(ctx, c.room.ID, &realtime.SessionOver{Players: standings}); err != nil {
		log.Error().Err(err).Msg("failed to broadcast session over")
	}
	if err := c.store.UpdateRoomStatus(ctx, c.room.ID, models.RoomStatusFinished, nil); err != nil {
		log.Error().Err(err).Msg("failed to mark room finished")
	}
	c.room.Status = models.RoomStatusFinished

	c.state = StateFinished
	c.standings = standings
	log.Info().Int("players", len(standings)).Msg("session finished")
	c.notify()
	return nil
}

// applyFinal is the follower side of session termination: apply the
// received (or reconstructed) standings and append this client's own
// leaderboard entry exactly once.
func (c *Coordinator) applyFinal(ctx context.Context, standings []realtime.FinalStanding) {
	if c.state == StateFinished {
		return
	}
	c.stopCountdown()
	c.graceCh = nil
	c.appendOwnLeaderboardEntry(ctx)
	c.state = StateFinished
	c.standings = standings
	c.notify()
}

// standingsFromStore reads the final player list, which the store
// already orders by score descending.
func (c *Coordinator) standingsFromStore(ctx context.Context) []realtime.FinalStanding {
	players, err := c.store.ListPlayersByRoom(ctx, c.room.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to read final standings")
		return nil
	}
	standings := make([]realtime.FinalStanding, 0, len(players))
	for _, p := range players {
		standings = append(standings, realtime.FinalStanding{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	return standings
}

// appendOwnLeaderboardEntry records this client's finished session. Each
// participating client appends exactly one entry for itself.
func (c *Coordinator) appendOwnLeaderboardEntry(ctx context.Context) {
	if c.store == nil || c.playerName == "" {
		return
	}
	if err := c.store.AppendLeaderboardEntry(ctx, store.AppendLeaderboardRequest{
		PlayerName: c.playerName,
		Score:      c.totalScore,
		Rounds:     c.maxRounds(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to append leaderboard entry")
	}
}

// --- helpers ---

func (c *Coordinator) failRound(err error) {
	log.Error().Err(err).Int("round", c.roundIndex).Msg("round entry failed")
	c.lastError = err.Error()
	c.notify()
}

func (c *Coordinator) maxRounds() int {
	if c.room != nil {
		return c.room.MaxRounds
	}
	if len(c.locations) > 0 {
		return len(c.locations)
	}
	return c.cfg.DefaultRounds
}

func (c *Coordinator) timeLimit() int {
	if c.room != nil {
		return c.room.TimeLimitSec
	}
	return c.cfg.DefaultTimeLimitSec
}

func (c *Coordinator) startCountdown() {
	c.stopCountdown()
	c.countdown = c.clock.NewTicker(time.Second)
	c.tickCh = c.countdown.Chan()
}

func (c *Coordinator) stopCountdown() {
	if c.countdown != nil {
		c.countdown.Stop()
		c.countdown = nil
	}
	c.tickCh = nil
}

func (c *Coordinator) resetScores() {
	c.totalScore = 0
	c.roundScores = nil
	c.standings = nil
	c.lastResults = nil
}

func (c *Coordinator) resetSession() {
	c.state = StateWaiting
	c.isHost = false
	c.isSolo = false
	c.room = nil
	c.players = nil
	c.locations = nil
	c.roundIndex = 0
	c.roundID = uuid.Nil
	c.target = nil
	c.guessConfirmed = false
	c.guessCount = 0
	c.timeLeft = 0
	c.lastError = ""
	c.resetScores()
}

// teardown releases timers, the subscription and, in multiplayer, this
// client's player row.
func (c *Coordinator) teardown(ctx context.Context) {
	c.stopCountdown()
	c.graceCh = nil
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close subscription")
		}
		c.sub = nil
	}
	if !c.isSolo && c.store != nil && c.room != nil {
		if err := c.store.RemovePlayer(ctx, c.playerID); err != nil {
			log.Warn().Err(err).Msg("failed to remove player on leave")
		}
	}
}

func (c *Coordinator) notify() {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange(c.snapshot())
	}
}

func decodeRow(raw json.RawMessage, v any) error {
	return json.Unmarshal(raw, v)
}
