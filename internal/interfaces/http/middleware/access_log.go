package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/envseal/envseal/pkg/logger"
)

// AccessLog emits one structured line per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	log = log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info(c.Request.Context(), "request completed",
			logger.String("method", c.Request.Method),
			logger.String("path", c.FullPath()),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		)
	}
}
