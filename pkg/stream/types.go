// Package stream maintains the client connection to the message source.
//
// A Channel owns one connection at a time, records every valid message in an
// append-only log, and reconnects a bounded number of times with a fixed
// delay. All state transitions run on a single loop goroutine; dialing and
// reading happen on helper goroutines that only forward results to it.
//
// State machine:
//
//	idle ──Connect──▶ connecting ──dial ok──▶ open
//	                     │                     │
//	                 dial failed          read failed / peer closed
//	                     ▼                     ▼
//	                   closed ◀────────────────┘
//	                     │ attempt < max: timer ──▶ connecting
//	                     │ attempt = max
//	                     ▼
//	                 exhausted ──Connect──▶ connecting (attempts reset)
//
// Disconnect returns the channel to idle from any state.
package stream

import (
	"context"
	"errors"
	"time"

	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// Defaults for the message source connection.
const (
	DefaultURL                  = "ws://localhost:8765"
	DefaultReconnectDelay       = 3 * time.Second
	DefaultMaxReconnectAttempts = 5
)

// ErrConnClosed is returned by Conn.Read when the peer closed the connection
// normally. Any other read error is treated as a transport error.
var ErrConnClosed = errors.New("connection closed by peer")

// State is the connection lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateExhausted  State = "exhausted"
)

// Status is the connection state exposed to consumers.
type Status struct {
	State            State  `json:"state"`
	Connected        bool   `json:"connected"`
	LastError        string `json:"last_error,omitempty"`
	ReconnectAttempt int    `json:"reconnect_attempt"`
	URL              string `json:"url"`
}

// Snapshot is a consistent view of the log and the connection status.
// Messages must not be modified.
type Snapshot struct {
	Messages []models.Message
	Status   Status
}

// Listener receives a snapshot after every appended message and every status
// change. Listeners run on the channel's loop goroutine: they must return
// promptly and must not call Connect or Disconnect.
type Listener func(Snapshot)

// Config controls the connection target and the reconnect policy.
type Config struct {
	URL                  string
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// DefaultConfig returns the built-in connection settings.
func DefaultConfig() Config {
	return Config{
		URL:                  DefaultURL,
		ReconnectDelay:       DefaultReconnectDelay,
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
	}
}

// Conn is an established connection to the message source.
// Read blocks until the next frame arrives. Close may be called concurrently
// with Read and must unblock it.
type Conn interface {
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens connections to the message source.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}
