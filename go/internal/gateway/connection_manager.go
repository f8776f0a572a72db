// Package gateway exposes a room's realtime traffic to browser clients
// over WebSocket. It is a read-only fanout: spectator UIs and overlays
// watch broadcast events and row-change notifications without holding a
// store or broker connection of their own.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/geodueler/geodueler/go/internal/realtime"
)

// Outbound frame types.
const (
	MessageTypeEvent     = "event"
	MessageTypeRowChange = "row_change"
)

// Message is the framing for everything the gateway pushes to a socket.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ConnectionManager manages WebSocket connections and the per-room
// realtime subscriptions that feed them.
type ConnectionManager struct {
	// Connection pools organized by room ID
	rooms map[uuid.UUID]*roomPool
	mu    sync.RWMutex

	// Upgrader for WebSocket connections
	upgrader websocket.Upgrader

	// Connection configuration
	config ConnectionConfig

	// Source of room events and row changes
	realtime *realtime.Client

	// Fanout channel
	broadcastCh chan BroadcastMessage
}

// roomPool is one room's set of sockets plus the single realtime
// subscription shared by all of them.
type roomPool struct {
	connections map[*Connection]bool
	sub         *realtime.Subscription
	cancel      context.CancelFunc
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID       string
	PlayerID string
	RoomID   uuid.UUID
	Conn     *websocket.Conn
	Send     chan []byte
	Manager  *ConnectionManager

	// Connection metadata
	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage is one marshaled frame bound for every socket in a
// room.
type BroadcastMessage struct {
	RoomID  uuid.UUID
	Payload []byte
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager fed by
// the given realtime client.
func NewConnectionManager(rt *realtime.Client, config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		rooms: make(map[uuid.UUID]*roomPool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		realtime:    rt,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and
// attaches it to the room's pool.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, playerID string, roomID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		PlayerID:    playerID,
		RoomID:      roomID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	if err := cm.registerConnection(connection); err != nil {
		conn.Close()
		return err
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", connection.ID).
		Str("player_id", playerID).
		Str("room_id", roomID.String()).
		Msg("WebSocket connection established")

	return nil
}

// registerConnection adds a connection to its room pool, creating the
// pool and its realtime subscription on first attach.
func (cm *ConnectionManager) registerConnection(conn *Connection) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	pool, exists := cm.rooms[conn.RoomID]
	if !exists {
		ctx, cancel := context.WithCancel(context.Background())
		sub, err := cm.realtime.Subscribe(ctx, conn.RoomID)
		if err != nil {
			cancel()
			return fmt.Errorf("failed to subscribe to room %s: %w", conn.RoomID, err)
		}
		pool = &roomPool{
			connections: make(map[*Connection]bool),
			sub:         sub,
			cancel:      cancel,
		}
		cm.rooms[conn.RoomID] = pool
		go cm.relayRoom(ctx, conn.RoomID, sub)
	}
	pool.connections[conn] = true

	log.Debug().
		Str("connection_id", conn.ID).
		Str("room_id", conn.RoomID.String()).
		Int("total_connections", len(pool.connections)).
		Msg("connection registered")
	return nil
}

// unregisterConnection removes a connection from the manager, tearing
// the room's subscription down with its last socket.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	pool, exists := cm.rooms[conn.RoomID]
	if !exists {
		return
	}
	if _, exists := pool.connections[conn]; !exists {
		return
	}
	delete(pool.connections, conn)
	close(conn.Send)

	if len(pool.connections) == 0 {
		if err := pool.sub.Close(); err != nil {
			log.Warn().Err(err).Str("room_id", conn.RoomID.String()).Msg("failed to close room subscription")
		}
		pool.cancel()
		delete(cm.rooms, conn.RoomID)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("player_id", conn.PlayerID).
		Str("room_id", conn.RoomID.String()).
		Msg("connection unregistered")
}

// relayRoom pumps one room's realtime streams into the fanout channel.
func (cm *ConnectionManager) relayRoom(ctx context.Context, roomID uuid.UUID, sub *realtime.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			payload, err := realtime.MarshalEvent(ev)
			if err != nil {
				log.Error().Err(err).Str("event", ev.EventName()).Msg("failed to marshal room event")
				continue
			}
			cm.enqueue(roomID, MessageTypeEvent, payload)
		case rc, ok := <-sub.RowChanges():
			if !ok {
				return
			}
			payload, err := json.Marshal(rc)
			if err != nil {
				log.Error().Err(err).Msg("failed to marshal row change")
				continue
			}
			cm.enqueue(roomID, MessageTypeRowChange, payload)
		}
	}
}

func (cm *ConnectionManager) enqueue(roomID uuid.UUID, msgType string, data json.RawMessage) {
	frame, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		log.Error().Err(err).Msg("failed to frame gateway message")
		return
	}
	select {
	case cm.broadcastCh <- BroadcastMessage{RoomID: roomID, Payload: frame}:
	default:
		log.Warn().Str("room_id", roomID.String()).Msg("broadcast channel full, dropping message")
	}
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	pool, exists := cm.rooms[message.RoomID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Create a snapshot of connections to avoid holding lock during broadcast
	targetConnections := make([]*Connection, 0, len(pool.connections))
	for conn := range pool.connections {
		targetConnections = append(targetConnections, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range targetConnections {
		select {
		case conn.Send <- message.Payload:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Str("player_id", conn.PlayerID).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() (totalConnections, activeRooms int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, pool := range cm.rooms {
		totalConnections += len(pool.connections)
	}
	return totalConnections, len(cm.rooms)
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		// The gateway is read-only; client frames are logged and dropped.
		log.Debug().
			Str("connection_id", c.ID).
			Str("player_id", c.PlayerID).
			RawJSON("message", message).
			Msg("received client message")
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
