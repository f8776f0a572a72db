package realtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Client is the per-process handle to both channel legs: NATS for
// application broadcasts, the row listener for store-change notifications.
// The row listener may be nil, in which case subscriptions only carry
// broadcast events.
type Client struct {
	nc   *nats.Conn
	rows *RowListener
}

// NewClient bundles the two channel legs into one subscribable client.
func NewClient(nc *nats.Conn, rows *RowListener) *Client {
	return &Client{nc: nc, rows: rows}
}

// Subscription is one client's attachment to a room's channel. Both
// streams are buffered and best-effort; events overflowing a slow consumer
// are dropped, never redelivered.
type Subscription struct {
	events     chan Event
	rowChanges chan RowChange
	natsSub    *nats.Subscription
	cancelRows func()
}

// Events returns the broadcast event stream.
func (s *Subscription) Events() <-chan Event { return s.events }

// RowChanges returns the row-change notification stream.
func (s *Subscription) RowChanges() <-chan RowChange { return s.rowChanges }

// Close detaches from the room channel. Buffered items may still be read
// afterwards; no new ones arrive.
func (s *Subscription) Close() error {
	if s.cancelRows != nil {
		s.cancelRows()
	}
	if s.natsSub != nil {
		return s.natsSub.Unsubscribe()
	}
	return nil
}

// Subscribe attaches to a room's broadcast subject and row-change feed.
func (c *Client) Subscribe(ctx context.Context, roomID uuid.UUID) (*Subscription, error) {
	sub := &Subscription{
		events: make(chan Event, 64),
	}

	natsSub, err := c.nc.Subscribe(roomSubject(roomID), func(msg *nats.Msg) {
		ev, err := DecodeEvent(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("room_id", roomID.String()).Msg("dropping undecodable broadcast")
			return
		}
		select {
		case sub.events <- ev:
		default:
			log.Debug().
				Str("event", ev.EventName()).
				Str("room_id", roomID.String()).
				Msg("dropping broadcast for slow subscriber")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to room %s: %w", roomID, err)
	}
	sub.natsSub = natsSub

	if c.rows != nil {
		sub.rowChanges, sub.cancelRows = c.rows.register(roomID)
	} else {
		sub.rowChanges = make(chan RowChange)
	}
	return sub, nil
}

// Close drains the underlying NATS connection. The row listener is
// stopped separately by cancelling its Start context.
func (c *Client) Close() {
	if err := c.nc.Drain(); err != nil {
		log.Warn().Err(err).Msg("failed to drain NATS connection")
	}
}

// Broadcast publishes an event to everyone currently subscribed to the
// room, including this client. There is no delivery guarantee.
func (c *Client) Broadcast(ctx context.Context, roomID uuid.UUID, ev Event) error {
	data, err := MarshalEvent(ev)
	if err != nil {
		return err
	}
	if err := c.nc.Publish(roomSubject(roomID), data); err != nil {
		return fmt.Errorf("failed to broadcast %s: %w", ev.EventName(), err)
	}
	return nil
}
