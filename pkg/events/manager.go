package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
)

// ConnectionManager manages dashboard WebSocket connections.
// Each process has one ConnectionManager instance.
type ConnectionManager struct {
	// Active connections: connection_id → *Connection
	connections map[string]*Connection
	mu          sync.RWMutex

	views ViewProvider

	// Write timeout for WebSocket sends
	writeTimeout time.Duration
}

// sendQueueSize bounds the events queued for one client. A client that falls
// this far behind is disconnected; its page reconnects and gets a snapshot.
const sendQueueSize = 32

// Connection represents a single WebSocket client.
//
// All writes go through send and are performed by the connection's writer
// goroutine, so broadcasts from the channel loop never wait on a socket.
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	send   chan []byte
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager(views ViewProvider, writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		connections:  make(map[string]*Connection),
		views:        views,
		writeTimeout: writeTimeout,
	}
}

// HandleConnection manages the lifecycle of a single WebSocket connection.
// Called by the WebSocket HTTP handler after upgrade. Blocks until the
// connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &Connection{
		ID:     connID,
		Conn:   conn,
		ctx:    ctx,
		cancel: cancel,
		send:   make(chan []byte, sendQueueSize),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		m.writeLoop(c)
	}()

	// The greeting is queued before registering so it is always the first
	// frame; the snapshot follows registration so no update is missed.
	m.sendJSON(c, map[string]string{
		"type":          EventTypeConnectionEstablished,
		"connection_id": connID,
	})
	m.registerConnection(c)
	defer func() {
		m.unregisterConnection(c)
		<-writerDone
	}()
	m.sendSnapshot(c)

	// Read loop: process client messages until the connection closes
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Invalid WebSocket message",
				"connection_id", connID, "error", err)
			continue
		}

		m.handleClientMessage(c, &msg)
	}
}

// PublishView broadcasts a scene.updated event. It has the dashboard.Listener
// signature so it can be subscribed directly.
func (m *ConnectionManager) PublishView(view dashboard.View) {
	data, err := json.Marshal(ViewEvent{Type: EventTypeSceneUpdated, View: view})
	if err != nil {
		slog.Error("Failed to marshal scene update", "error", err)
		return
	}
	m.Broadcast(data)
}

// Broadcast queues an event payload for every connection. It never blocks:
// a connection whose queue is full is dropped.
func (m *ConnectionManager) Broadcast(event []byte) {
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		if c.ctx.Err() != nil {
			continue
		}
		select {
		case c.send <- event:
		default:
			slog.Warn("WebSocket client too slow, disconnecting",
				"connection_id", c.ID, "queued", len(c.send))
			c.cancel()
		}
	}
}

// ActiveConnections returns the count of active WebSocket connections.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// handleClientMessage dispatches a client message to the appropriate handler.
func (m *ConnectionManager) handleClientMessage(c *Connection, msg *ClientMessage) {
	switch msg.Action {
	case ActionPing:
		m.sendJSON(c, map[string]string{"type": EventTypePong})
	case ActionSnapshot:
		m.sendSnapshot(c)
	default:
		m.sendJSON(c, map[string]string{
			"type":    EventTypeError,
			"message": "unknown action: " + msg.Action,
		})
	}
}

func (m *ConnectionManager) sendSnapshot(c *Connection) {
	if m.views == nil {
		return
	}
	m.sendJSON(c, ViewEvent{Type: EventTypeSceneSnapshot, View: m.views.View()})
}

// registerConnection adds a connection to the tracking map.
func (m *ConnectionManager) registerConnection(c *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connections[c.ID] = c
}

// unregisterConnection removes a connection and closes it.
func (m *ConnectionManager) unregisterConnection(c *Connection) {
	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}

// sendJSON marshals a message and queues it for a single connection,
// waiting for queue space. Used for replies on the connection's read loop.
func (m *ConnectionManager) sendJSON(c *Connection, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Failed to marshal WebSocket message",
			"connection_id", c.ID, "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.ctx.Done():
	}
}

// writeLoop writes queued messages with a per-write timeout until the
// connection ends or a write fails.
func (m *ConnectionManager) writeLoop(c *Connection) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
			err := c.Conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if c.ctx.Err() == nil {
					slog.Warn("Failed to send WebSocket message",
						"connection_id", c.ID, "error", err)
				}
				c.cancel()
				return
			}
		}
	}
}
