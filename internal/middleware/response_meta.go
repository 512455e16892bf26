package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	metaKey      = "response_meta"
	metaStartKey = "response_meta_start"
)

// WithResponseMeta stamps the request start time so handlers can attach
// timing and cache information to their response envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(metaStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit marks whether the response was served from the cache tier.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)["cache_hit"] = hit
}

// ExtractMeta returns the response metadata with the processing time filled
// in. Handlers call it last, just before writing the envelope.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta := ensureMeta(c)
	if start, ok := c.Get(metaStartKey); ok {
		if t, isTime := start.(time.Time); isTime {
			meta["processing_time_ms"] = time.Since(t).Milliseconds()
		}
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return map[string]interface{}{}
	}
	if meta, ok := c.Get(metaKey); ok {
		if typed, isMap := meta.(map[string]interface{}); isMap {
			return typed
		}
	}
	meta := make(map[string]interface{})
	c.Set(metaKey, meta)
	return meta
}
