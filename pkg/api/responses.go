package api

import (
	"github.com/codeready-toolchain/crewviz/pkg/models"
	"github.com/codeready-toolchain/crewviz/pkg/stream"
)

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status           string        `json:"status"`
	Version          string        `json:"version"`
	Source           stream.Status `json:"source"`
	Messages         int           `json:"messages"`
	WebSocketClients int           `json:"websocket_clients"`
}

// MessagesResponse is returned by GET /api/v1/messages.
type MessagesResponse struct {
	Messages []models.Message `json:"messages"`
	Total    int              `json:"total"`
}

// ReconnectResponse is returned by POST /api/v1/reconnect.
type ReconnectResponse struct {
	Message string        `json:"message"`
	Status  stream.Status `json:"status"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
