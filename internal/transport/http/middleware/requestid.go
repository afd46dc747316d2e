package middleware

import (
	"github.com/gin-gonic/gin"

	"scrapegen/internal/requestid"
)

// RequestID makes every request traceable in the logs: an incoming
// X-Request-ID is kept, anything else gets a fresh one, and the chosen
// ID rides the request context so the slog handler can pick it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = requestid.New()
		}

		ctx := requestid.WithRequestID(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
