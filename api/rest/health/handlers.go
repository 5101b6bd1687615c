package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nxtgenia/miniaturia/internal/logger"
)

const (
	serviceName    = "miniaturia"
	serviceVersion = "1.0.0"
	pingTimeout    = 2 * time.Second
)

// Handler godoc
// @Summary Health check
// @Description Reports service liveness and database reachability
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func Handler(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := Response{
			Status:  "healthy",
			Service: serviceName,
			Version: serviceVersion,
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
			defer cancel()

			if err := db.Ping(ctx); err != nil {
				logger.FromContext(c.Request.Context()).Warn("health check: database unreachable", "error", err)
				resp.Status = "degraded"
				resp.Database = "unreachable"
				c.JSON(http.StatusServiceUnavailable, resp)
				return
			}
			resp.Database = "ok"
		}

		c.JSON(http.StatusOK, resp)
	}
}

// responds with pong for testing
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, PingResponse{Message: "pong"})
}
