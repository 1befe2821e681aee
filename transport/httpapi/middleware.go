package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goliatone/go-portfolio/pkg/types"
)

// RequestLogger logs one entry per request. Server errors log at Warn, the
// rest at Debug.
func RequestLogger(log types.Logger) gin.HandlerFunc {
	if log == nil {
		log = types.NopLogger{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if status >= 500 {
			log.Warn("http request", fields...)
			return
		}
		log.Debug("http request", fields...)
	}
}
