// Package requestid tags every request with an id that follows it through
// logs and response headers.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header is echoed on every response so a caller can quote the id when
	// reporting a problem.
	Header     = "X-Request-ID"
	contextKey = "request_id"
)

// maxInboundLen guards the logs against oversized caller-supplied ids.
const maxInboundLen = 64

// Middleware adopts the caller's X-Request-ID when it is usable and mints a
// fresh one otherwise.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxInboundLen {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value reads the id assigned to this request, or "" outside the middleware.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, isStr := v.(string); isStr {
			return id
		}
	}
	return ""
}
