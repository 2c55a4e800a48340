// Package api serves the crew dashboard over HTTP: JSON endpoints for the
// current scene and connection status, a WebSocket feed of scene updates and
// a server-rendered HTML page.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/crewviz/pkg/config"
	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
	"github.com/codeready-toolchain/crewviz/pkg/events"
	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// DashboardService is the subset of *dashboard.Dashboard the API needs.
type DashboardService interface {
	View() dashboard.View
	Messages() []models.Message
	Reconnect(ctx context.Context) error
}

// Server is the HTTP API server.
type Server struct {
	cfg         *config.Config
	dashboard   DashboardService
	connManager *events.ConnectionManager
	engine      *gin.Engine
	httpServer  *http.Server
}

// NewServer creates a new API server. connManager may be nil, in which case
// /ws answers 503.
func NewServer(cfg *config.Config, dash DashboardService, connManager *events.ConnectionManager) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	s := &Server{
		cfg:         cfg,
		dashboard:   dash,
		connManager: connManager,
		engine:      engine,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.Use(gin.Recovery())
	s.engine.Use(requestLogger())
	s.engine.Use(securityHeaders())

	s.engine.GET("/", s.pageHandler)
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/ws", s.wsHandler)

	v1 := s.engine.Group("/api/v1")
	v1.GET("/scene", s.sceneHandler)
	v1.GET("/view", s.viewHandler)
	v1.GET("/messages", s.messagesHandler)
	v1.GET("/status", s.statusHandler)
	v1.POST("/reconnect", s.reconnectHandler)
}

// Handler returns the HTTP handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves on addr until Shutdown. It returns nil after a graceful shutdown.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP server listening", "addr", ln.Addr().String())
	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
