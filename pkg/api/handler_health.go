package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/crewviz/pkg/version"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// healthHandler handles GET /health.
// A disconnected message source only degrades health: the source is an
// external dependency and restarting crewviz would not bring it back.
func (s *Server) healthHandler(c *gin.Context) {
	view := s.dashboard.View()

	status := healthStatusHealthy
	if !view.Status.Connected {
		status = healthStatusDegraded
	}

	clients := 0
	if s.connManager != nil {
		clients = s.connManager.ActiveConnections()
	}

	c.JSON(http.StatusOK, &HealthResponse{
		Status:           status,
		Version:          version.GitCommit,
		Source:           view.Status,
		Messages:         view.MessageCount,
		WebSocketClients: clients,
	})
}
