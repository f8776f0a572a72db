package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/geodueler/geodueler/go/internal/models"
	"github.com/geodueler/geodueler/go/internal/realtime"
	"github.com/geodueler/geodueler/go/internal/store"
)

// Store defines what the coordinator needs from the room store. A nil
// Store restricts the coordinator to solo play.
type Store interface {
	CreateRoom(ctx context.Context, req store.CreateRoomRequest) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	UpdateRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus, currentRound *int) error
	UpsertPlayer(ctx context.Context, req store.UpsertPlayerRequest) (*models.Player, error)
	ListPlayersByRoom(ctx context.Context, roomID uuid.UUID) ([]models.Player, error)
	AddPlayerScore(ctx context.Context, playerID string, delta int) error
	RemovePlayer(ctx context.Context, playerID string) error
	CreateRound(ctx context.Context, req store.CreateRoundRequest) (*models.Round, error)
	GetRoundByNumber(ctx context.Context, roomID uuid.UUID, roundNumber int) (*models.Round, error)
	UpsertGuess(ctx context.Context, req store.UpsertGuessRequest) (*models.Guess, error)
	ListGuessesForRound(ctx context.Context, roundID uuid.UUID) ([]store.RoundGuess, error)
	CountGuessesForRound(ctx context.Context, roundID uuid.UUID) (int, error)
	AppendLeaderboardEntry(ctx context.Context, req store.AppendLeaderboardRequest) error
}

// Channel defines what the coordinator needs from the pub/sub channel.
type Channel interface {
	Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error)
	Broadcast(ctx context.Context, roomID uuid.UUID, ev realtime.Event) error
}

// Subscription is one room attachment's pair of notification streams.
type Subscription interface {
	Events() <-chan realtime.Event
	RowChanges() <-chan realtime.RowChange
	Close() error
}

// ChannelFromClient adapts the realtime client to the coordinator's
// channel interface.
func ChannelFromClient(c *realtime.Client) Channel {
	return clientChannel{c}
}

type clientChannel struct {
	client *realtime.Client
}

func (c clientChannel) Subscribe(ctx context.Context, roomID uuid.UUID) (Subscription, error) {
	return c.client.Subscribe(ctx, roomID)
}

func (c clientChannel) Broadcast(ctx context.Context, roomID uuid.UUID, ev realtime.Event) error {
	return c.client.Broadcast(ctx, roomID, ev)
}
