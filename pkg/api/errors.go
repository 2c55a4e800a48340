package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/crewviz/pkg/dashboard"
)

// abortWithError maps dashboard errors to HTTP error responses.
func abortWithError(c *gin.Context, err error) {
	if errors.Is(err, dashboard.ErrStopped) {
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{Error: "dashboard is shutting down"})
		return
	}

	// Unexpected error
	slog.Error("Unexpected dashboard error", "error", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
