package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/crewviz/pkg/models"
)

// sceneHandler handles GET /api/v1/scene.
func (s *Server) sceneHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.View().Scene)
}

// viewHandler handles GET /api/v1/view: scene, status and message count together.
func (s *Server) viewHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.View())
}

// statusHandler handles GET /api/v1/status.
func (s *Server) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.View().Status)
}

// messagesHandler handles GET /api/v1/messages.
//
// Query parameters:
//   - stage: only messages of this stage
//   - since: skip the first N messages of the log (for incremental polling)
func (s *Server) messagesHandler(c *gin.Context) {
	log := s.dashboard.Messages()

	since := 0
	if raw := c.Query("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "since must be a non-negative integer"})
			return
		}
		since = min(n, len(log))
	}

	stage := models.Stage(c.Query("stage"))
	out := make([]models.Message, 0, len(log)-since)
	for _, m := range log[since:] {
		if stage != "" && m.Stage != stage {
			continue
		}
		out = append(out, m)
	}

	c.JSON(http.StatusOK, &MessagesResponse{
		Messages: out,
		Total:    len(log),
	})
}

// reconnectHandler handles POST /api/v1/reconnect: a manual reconnect, which
// also restores the retry budget after the channel gave up.
func (s *Server) reconnectHandler(c *gin.Context) {
	// The channel may outlive this request.
	if err := s.dashboard.Reconnect(context.WithoutCancel(c.Request.Context())); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, &ReconnectResponse{
		Message: "reconnect requested",
		Status:  s.dashboard.View().Status,
	})
}
