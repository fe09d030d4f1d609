package app

import (
	"net/http"
	"time"

	"todoweb/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// requestLogger puts a request-scoped logger into the request context and
// writes one line per request once the handler chain returns.
func requestLogger(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header(requestIDHeader, reqID)

		l := base.Sugar().With("request_id", reqID)
		c.Request = c.Request.WithContext(logger.ToContext(c.Request.Context(), l))

		c.Next()

		l.Infow("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Errorf(c.Request.Context(), "panic: %v", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	})
}
