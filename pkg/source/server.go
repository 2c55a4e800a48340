// Package source is a message source for crew flows: a WebSocket server that
// greets each client and broadcasts stage updates to all of them.
//
// Updates sent while no client is connected are held in a bounded backlog and
// delivered to the next client that connects, so a dashboard started after
// the flow still sees its beginning.
package source

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// Greeting is sent to every client right after it connects.
const Greeting = "Connected to CrewAI WebSocket Server"

// DefaultBacklog is the number of updates held while no client is connected.
const DefaultBacklog = 1000

// StatusActive is the status carried by every update.
const StatusActive = "active"

// Update is one frame on the wire.
type Update struct {
	Stage     models.Stage `json:"stage"`
	Message   string       `json:"message"`
	Timestamp string       `json:"timestamp,omitempty"`
	Status    string       `json:"status,omitempty"`
}

// Options configures a Server.
type Options struct {
	// WriteTimeout bounds each send to a client.
	WriteTimeout time.Duration
	// Backlog caps updates held while no client is connected. Zero means DefaultBacklog;
	// negative disables the backlog.
	Backlog int
	// OriginPatterns are passed to websocket.Accept. Empty means same-origin only.
	OriginPatterns []string
	// Now returns the update timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Server is an http.Handler that upgrades requests to WebSocket clients.
type Server struct {
	opts Options

	mu      sync.RWMutex
	clients map[string]*client
	backlog [][]byte
}

type client struct {
	id      string
	conn    *websocket.Conn
	ctx     context.Context
	writeMu sync.Mutex
}

// NewServer creates a server with no clients.
func NewServer(opts Options) *Server {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.Backlog == 0 {
		opts.Backlog = DefaultBacklog
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{
		opts:    opts,
		clients: make(map[string]*client),
	}
}

// ServeHTTP accepts a client and blocks until it disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.opts.OriginPatterns,
	})
	if err != nil {
		slog.Warn("WebSocket accept failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	// Clients never send data; CloseRead handles control frames and reports
	// the close through ctx.
	ctx := conn.CloseRead(r.Context())
	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		ctx:  ctx,
	}
	log := slog.With("client_id", c.id, "remote_addr", r.RemoteAddr)

	greeting, _ := json.Marshal(Update{Stage: models.StageSystem, Message: Greeting})
	if err := s.send(c, greeting); err != nil {
		log.Warn("Failed to greet client", "error", err)
		_ = conn.Close(websocket.StatusInternalError, "greeting failed")
		return
	}

	// Hold the write lock until the backlog is flushed so broadcasts queue
	// behind it and order is kept.
	c.writeMu.Lock()
	pending := s.register(c)
	log.Info("Client connected", "backlog", len(pending))
	for _, data := range pending {
		if err := s.write(c, data); err != nil {
			log.Warn("Failed to deliver backlog", "error", err)
			break
		}
	}
	c.writeMu.Unlock()

	<-ctx.Done()
	s.unregister(c)
	_ = conn.Close(websocket.StatusNormalClosure, "")
	log.Info("Client disconnected")
}

// SendUpdate broadcasts an update to every connected client, or holds it in
// the backlog when there are none.
func (s *Server) SendUpdate(_ context.Context, stage models.Stage, message string) error {
	data, err := json.Marshal(Update{
		Stage:     stage,
		Message:   message,
		Timestamp: s.opts.Now().UTC().Format(time.RFC3339),
		Status:    StatusActive,
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if len(s.clients) == 0 {
		if s.opts.Backlog > 0 {
			if len(s.backlog) >= s.opts.Backlog {
				s.backlog = s.backlog[1:]
			}
			s.backlog = append(s.backlog, data)
		}
		s.mu.Unlock()
		slog.Debug("No clients connected, update held", "stage", stage, "message", message)
		return nil
	}
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	slog.Debug("Broadcasting update", "stage", stage, "message", message, "clients", len(clients))
	for _, c := range clients {
		if err := s.send(c, data); err != nil {
			slog.Warn("Failed to send update", "client_id", c.id, "error", err)
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Backlog returns the number of held updates.
func (s *Server) Backlog() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.backlog)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

// register adds c and hands it the backlog.
func (s *Server) register(c *client) [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.id] = c
	pending := s.backlog
	s.backlog = nil
	return pending
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c.id)
}

func (s *Server) send(c *client, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return s.write(c, data)
}

// write sends data to c. c.writeMu must be held.
func (s *Server) write(c *client, data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, s.opts.WriteTimeout)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}
