// Package events delivers scene updates to browser dashboards over WebSocket.
//
// Protocol (server → client):
//
//	connection.established {connection_id}
//	scene.snapshot         {view}   sent on connect and on request
//	scene.updated          {view}   sent after every recomputation
//	pong                            reply to ping
//
// Protocol (client → server):
//
//	{"action": "ping"}
//	{"action": "snapshot"}
//
// Updates are fire-and-forget: a client that misses one asks for a snapshot.
package events

import "github.com/codeready-toolchain/crewviz/pkg/dashboard"

// Server → client event types.
const (
	EventTypeConnectionEstablished = "connection.established"
	EventTypeSceneSnapshot         = "scene.snapshot"
	EventTypeSceneUpdated          = "scene.updated"
	EventTypePong                  = "pong"
	EventTypeError                 = "error"
)

// Client actions.
const (
	ActionPing     = "ping"
	ActionSnapshot = "snapshot"
)

// ClientMessage is the JSON structure for client → server WebSocket messages.
type ClientMessage struct {
	Action string `json:"action"` // "ping", "snapshot"
}

// ViewEvent carries a dashboard view to clients.
type ViewEvent struct {
	Type string         `json:"type"`
	View dashboard.View `json:"view"`
}

// ViewProvider returns the current view for new and resyncing clients.
// Implemented by *dashboard.Dashboard.
type ViewProvider interface {
	View() dashboard.View
}
