package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// gin context key holding the authenticated account id, set by auth.Middleware
const UserIDKey = "user_id"

// header used to propagate request ids to and from clients
const RequestIDHeader = "X-Request-ID"

// attaches a request id and a request-scoped logger to every request
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		reqLogger := defaultLogger.With("request_id", requestID)
		c.Request = c.Request.WithContext(WithContext(c.Request.Context(), reqLogger))

		start := time.Now()
		c.Next()

		// health probes are noisy
		if c.FullPath() == "/health" {
			return
		}

		reqLogger.Info("request completed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"user_id", c.GetString(UserIDKey),
		)
	}
}
