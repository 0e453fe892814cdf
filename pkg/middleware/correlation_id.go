package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swapgrid/trust-engine/pkg/logger"
)

const (
	// CorrelationIDHeader carries the request correlation id on the wire.
	CorrelationIDHeader = "X-Request-ID"
	// CorrelationIDKey is the gin context key the id is stored under.
	CorrelationIDKey = "correlation_id"
)

// CorrelationID adopts the caller's correlation id or mints one, stores it in
// both the gin context and the request context, and echoes it on the
// response so a flagged review or moderation case can be traced end to end.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(CorrelationIDKey, correlationID)

		ctx := context.WithValue(c.Request.Context(), logger.CorrelationIDContextKey, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Writer.Header().Set(CorrelationIDHeader, correlationID)
		c.Next()
	}
}

// GetCorrelationID returns the correlation id stored by the middleware, or
// an empty string outside of a request.
func GetCorrelationID(c *gin.Context) string {
	if id, exists := c.Get(CorrelationIDKey); exists {
		if correlationID, ok := id.(string); ok {
			return correlationID
		}
	}
	return ""
}
