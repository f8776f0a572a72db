package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/geodueler/geodueler/go/internal/models"
	"github.com/geodueler/geodueler/go/internal/realtime"
	"github.com/geodueler/geodueler/go/internal/store"
)

// fakeHub is an in-process stand-in for the realtime client: broadcasts
// fan out to every subscriber of the room, including the sender, exactly
// like the NATS transport echoes a publisher's own messages.
type fakeHub struct {
	mu   sync.Mutex
	subs map[uuid.UUID][]*fakeSub
}

func newFakeHub() *fakeHub {
	return &fakeHub{subs: make(map[uuid.UUID][]*fakeSub)}
}

type fakeSub struct {
	hub    *fakeHub
	roomID uuid.UUID
	events chan realtime.Event
	rows   chan realtime.RowChange
}

func (s *fakeSub) Events() <-chan realtime.Event         { return s.events }
func (s *fakeSub) RowChanges() <-chan realtime.RowChange { return s.rows }

func (s *fakeSub) Close() error {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	subs := s.hub.subs[s.roomID]
	for i, sub := range subs {
		if sub == s {
			s.hub.subs[s.roomID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

func (h *fakeHub) Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub := &fakeSub{
		hub:    h,
		roomID: roomID,
		events: make(chan realtime.Event, 64),
		rows:   make(chan realtime.RowChange, 64),
	}
	h.subs[roomID] = append(h.subs[roomID], sub)
	return sub, nil
}

func (h *fakeHub) Broadcast(ctx context.Context, roomID uuid.UUID, ev realtime.Event) error {
	// Round-trip through the wire codec so subscribers get fresh decoded
	// values, never aliases of the sender's payload.
	data, err := realtime.MarshalEvent(ev)
	if err != nil {
		return err
	}
	decoded, err := realtime.DecodeEvent(data)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[roomID] {
		select {
		case sub.events <- decoded:
		default:
		}
	}
	return nil
}

func (h *fakeHub) emitRow(rc realtime.RowChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[rc.RoomID] {
		select {
		case sub.rows <- rc:
		default:
		}
	}
}

// fakeStore is an in-memory room store that emits row-change
// notifications through the hub on every write, mirroring the database
// triggers.
type fakeStore struct {
	mu  sync.Mutex
	hub *fakeHub

	rooms       map[uuid.UUID]*models.Room
	roomsByCode map[string]uuid.UUID
	players     map[string]*models.Player
	rounds      map[uuid.UUID]*models.Round
	guesses     map[uuid.UUID]map[string]*models.Guess
	leaderboard []models.LeaderboardEntry
}

func newFakeStore(hub *fakeHub) *fakeStore {
	return &fakeStore{
		hub:         hub,
		rooms:       make(map[uuid.UUID]*models.Room),
		roomsByCode: make(map[string]uuid.UUID),
		players:     make(map[string]*models.Player),
		rounds:      make(map[uuid.UUID]*models.Round),
		guesses:     make(map[uuid.UUID]map[string]*models.Guess),
	}
}

func (s *fakeStore) emit(table realtime.Table, op realtime.Op, roomID uuid.UUID, row any) {
	if s.hub == nil {
		return
	}
	raw, _ := json.Marshal(row)
	s.hub.emitRow(realtime.RowChange{Table: table, Op: op, RoomID: roomID, Row: raw})
}

func (s *fakeStore) CreateRoom(ctx context.Context, req store.CreateRoomRequest) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := store.GenerateRoomCode()
	room := &models.Room{
		ID:           uuid.New(),
		Code:         code,
		HostID:       req.HostID,
		Status:       models.RoomStatusWaiting,
		MaxRounds:    req.MaxRounds,
		TimeLimitSec: req.TimeLimitSec,
		CreatedAt:    time.Now(),
	}
	s.rooms[room.ID] = room
	s.roomsByCode[code] = room.ID

	host := &models.Player{ID: req.HostID, RoomID: room.ID, Name: req.HostName, IsHost: true}
	s.players[req.HostID] = host

	s.emit(realtime.TableRooms, realtime.OpInsert, room.ID, room)
	s.emit(realtime.TablePlayers, realtime.OpInsert, room.ID, host)
	out := *room
	return &out, nil
}

func (s *fakeStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.roomsByCode[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := *s.rooms[id]
	return &out, nil
}

func (s *fakeStore) UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus, currentRound *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return store.ErrNotFound
	}
	room.Status = status
	if currentRound != nil {
		room.CurrentRound = *currentRound
	}
	s.emit(realtime.TableRooms, realtime.OpUpdate, roomID, room)
	return nil
}

func (s *fakeStore) UpsertPlayer(ctx context.Context, req store.UpsertPlayerRequest) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[req.ID]
	if ok {
		p.RoomID = req.RoomID
		p.Name = req.Name
		s.emit(realtime.TablePlayers, realtime.OpUpdate, req.RoomID, p)
	} else {
		p = &models.Player{ID: req.ID, RoomID: req.RoomID, Name: req.Name}
		s.players[req.ID] = p
		s.emit(realtime.TablePlayers, realtime.OpInsert, req.RoomID, p)
	}
	out := *p
	return &out, nil
}

func (s *fakeStore) ListPlayersByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var players []models.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			players = append(players, *p)
		}
	}
	sortPlayers(players)
	return players, nil
}

func (s *fakeStore) AddPlayerScore(ctx context.Context, playerID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return store.ErrNotFound
	}
	p.Score += delta
	s.emit(realtime.TablePlayers, realtime.OpUpdate, p.RoomID, p)
	return nil
}

func (s *fakeStore) RemovePlayer(ctx context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerID]
	if !ok {
		return nil
	}
	delete(s.players, playerID)
	s.emit(realtime.TablePlayers, realtime.OpDelete, p.RoomID, p)
	return nil
}

func (s *fakeStore) CreateRound(ctx context.Context, req store.CreateRoundRequest) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rounds {
		if r.RoomID == req.RoomID && r.RoundNumber == req.RoundNumber {
			return nil, store.ErrDuplicate
		}
	}
	round := &models.Round{
		ID:          uuid.New(),
		RoomID:      req.RoomID,
		RoundNumber: req.RoundNumber,
		Lat:         req.Lat,
		Lng:         req.Lng,
	}
	s.rounds[round.ID] = round
	out := *round
	return &out, nil
}

func (s *fakeStore) GetRoundByNumber(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rounds {
		if r.RoomID == roomID && r.RoundNumber == roundNumber {
			out := *r
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) UpsertGuess(ctx context.Context, req store.UpsertGuessRequest) (*models.Guess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	round, ok := s.rounds[req.RoundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.guesses[req.RoundID] == nil {
		s.guesses[req.RoundID] = make(map[string]*models.Guess)
	}
	g := &models.Guess{
		RoundID:    req.RoundID,
		PlayerID:   req.PlayerID,
		GuessLat:   req.GuessLat,
		GuessLng:   req.GuessLng,
		DistanceKm: req.DistanceKm,
		Score:      req.Score,
	}
	s.guesses[req.RoundID][req.PlayerID] = g
	s.emit(realtime.TableGuesses, realtime.OpInsert, round.RoomID, g)
	out := *g
	return &out, nil
}

func (s *fakeStore) ListGuessesForRound(ctx context.Context, roundID uuid.UUID) ([]store.RoundGuess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.RoundGuess
	for _, g := range s.guesses[roundID] {
		rg := store.RoundGuess{Guess: *g}
		if p, ok := s.players[g.PlayerID]; ok {
			rg.PlayerName = p.Name
		}
		out = append(out, rg)
	}
	return out, nil
}

func (s *fakeStore) CountGuessesForRound(ctx context.Context, roundID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.guesses[roundID]), nil
}

func (s *fakeStore) AppendLeaderboardEntry(ctx context.Context, req store.AppendLeaderboardRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaderboard = append(s.leaderboard, models.LeaderboardEntry{
		PlayerName: req.PlayerName,
		Score:      req.Score,
		Rounds:     req.Rounds,
		CreatedAt:  time.Now(),
	})
	return nil
}

func (s *fakeStore) leaderboardLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.leaderboard)
}

func sortPlayers(players []models.Player) {
	for i := 1; i < len(players); i++ {
		for j := i; j > 0 && players[j].Score > players[j-1].Score; j-- {
			players[j], players[j-1] = players[j-1], players[j]
		}
	}
}

// flakyRoundStore makes the round row invisible for the first N reads,
// simulating write-propagation lag.
type flakyRoundStore struct {
	*fakeStore
	mu       sync.Mutex
	failures int
}

func (s *flakyRoundStore) GetRoundByNumber(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	s.mu.Unlock()
	return s.fakeStore.GetRoundByNumber(ctx, roomID, roundNumber)
}
