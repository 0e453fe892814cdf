package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/logger"
)

// RequestLogger emits one structured line per request with latency, status
// and caller IP. The correlation id is picked up from the request context
// by logger.WithContext.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
		}

		reqLogger := logger.WithContext(c.Request.Context())
		if len(c.Errors) > 0 {
			reqLogger.Error("request failed", append(fields, zap.String("errors", c.Errors.String()))...)
			return
		}
		reqLogger.Info("request completed", fields...)
	}
}
