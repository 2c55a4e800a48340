package api

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// wsHandler upgrades HTTP connections to WebSocket and delegates to ConnectionManager.
// Same-host origins are always accepted; others must match server.allowed_ws_origins.
func (s *Server) wsHandler(c *gin.Context) {
	if s.connManager == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{Error: "WebSocket not available"})
		return
	}

	var patterns []string
	if s.cfg != nil && s.cfg.Server != nil {
		patterns = s.cfg.Server.AllowedWSOrigins
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: patterns,
	})
	if err != nil {
		// Accept has already written the error response.
		slog.Warn("WebSocket upgrade rejected",
			"origin", c.Request.Header.Get("Origin"), "error", err)
		c.Abort()
		return
	}

	// HandleConnection blocks until the WebSocket closes.
	s.connManager.HandleConnection(c.Request.Context(), conn)
}
