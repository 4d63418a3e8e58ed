package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/envseal/envseal/pkg/constants"
)

// HeaderRequestID is the correlation id header honored and echoed by the
// service.
const HeaderRequestID = "X-Request-Id"

// RequestID propagates the caller's correlation id, minting one when absent.
// The id is stored on the request context so the logger can pick it up.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, id)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(HeaderRequestID, id)
		c.Next()
	}
}
