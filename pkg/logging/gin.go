package logging

import (
	"time"

	"github.com/gin-gonic/gin"
)

// GinMiddleware logs one line per request after the handler chain ran.
// userKey names the gin context value holding the authenticated user id.
func GinMiddleware(log Logger, userKey func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := map[string]any{
			"method":      c.Request.Method,
			"path":        c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		}
		if userKey != nil {
			if uid := userKey(c); uid != "" {
				fields["user_id"] = uid
			}
		}
		if len(c.Errors) > 0 {
			log.Error("request failed", c.Errors.Last().Err, fields)
			return
		}
		if c.Writer.Status() >= 500 {
			log.Warn("request", fields)
			return
		}
		log.Info("request", fields)
	}
}
