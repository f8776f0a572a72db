package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ListenerConfig holds settings for the Postgres row-change listener.
type ListenerConfig struct {
	DatabaseURL   string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel string        // channel name to LISTEN on
	MinReconnect  time.Duration // pq.Listener reconnect backoff floor
	MaxReconnect  time.Duration // pq.Listener reconnect backoff ceiling
	PingInterval  time.Duration // how often to ping an idle connection
}

// DefaultListenerConfig returns the default row-change listener settings.
func DefaultListenerConfig(databaseURL string) ListenerConfig {
	return ListenerConfig{
		DatabaseURL:   databaseURL,
		NotifyChannel: NotifyChannel,
		MinReconnect:  10 * time.Second,
		MaxReconnect:  time.Minute,
		PingInterval:  90 * time.Second,
	}
}

// RowListener receives NOTIFY payloads produced by the schema triggers and
// fans them out to per-room subscribers. One listener connection serves
// the whole process.
type RowListener struct {
	listener *pq.Listener
	cfg      ListenerConfig

	mu   sync.Mutex
	subs map[uuid.UUID]map[chan RowChange]struct{}
}

// NewRowListener opens a LISTEN connection on the row-change channel.
func NewRowListener(cfg ListenerConfig) (*RowListener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		cfg.MinReconnect,
		cfg.MaxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("row-change listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.NotifyChannel, err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for row changes")

	return &RowListener{
		listener: l,
		cfg:      cfg,
		subs:     make(map[uuid.UUID]map[chan RowChange]struct{}),
	}, nil
}

// Start consumes notifications until the context is cancelled. A nil
// notification from pq signals a reconnect; subscribers may have missed
// rows during the gap, which the coordinator tolerates by re-reading the
// store on its own transitions.
func (l *RowListener) Start(ctx context.Context) error {
	ping := time.NewTicker(l.cfg.PingInterval)
	defer ping.Stop()
	defer l.listener.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n := <-l.listener.Notify:
			if n == nil {
				log.Warn().Msg("row-change listener reconnected; notifications may have been missed")
				continue
			}
			l.dispatch(n.Extra)
		case <-ping.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("row-change listener ping failed")
			}
		}
	}
}

func (l *RowListener) dispatch(payload string) {
	var rc RowChange
	if err := json.Unmarshal([]byte(payload), &rc); err != nil {
		log.Error().Err(err).Str("payload", payload).Msg("bad row-change payload")
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for ch := range l.subs[rc.RoomID] {
		select {
		case ch <- rc:
		default:
			// Best-effort delivery: a slow subscriber drops notifications
			// rather than blocking the listener.
			log.Debug().
				Str("table", string(rc.Table)).
				Str("room_id", rc.RoomID.String()).
				Msg("dropping row change for slow subscriber")
		}
	}
}

// register adds a buffered per-room subscription channel and returns it
// with its cancel func.
func (l *RowListener) register(roomID uuid.UUID) (chan RowChange, func()) {
	ch := make(chan RowChange, 64)

	l.mu.Lock()
	if l.subs[roomID] == nil {
		l.subs[roomID] = make(map[chan RowChange]struct{})
	}
	l.subs[roomID][ch] = struct{}{}
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if set := l.subs[roomID]; set != nil {
			delete(set, ch)
			if len(set) == 0 {
				delete(l.subs, roomID)
			}
		}
		l.mu.Unlock()
	}
	return ch, cancel
}
