package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseStartKey = "response_start"
	cacheHitKey      = "cache_hit"
)

// ResponseMeta stamps the request start so handlers can report processing
// time in the envelope meta.
func ResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(responseStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the response was served from cache.
func SetCacheHit(c *gin.Context, hit bool) {
	c.Set(cacheHitKey, hit)
}

// Meta returns the envelope metadata for the current request, or nil when
// ResponseMeta is not installed.
func Meta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	startValue, ok := c.Get(responseStartKey)
	if !ok {
		return nil
	}
	start, ok := startValue.(time.Time)
	if !ok {
		return nil
	}
	meta := map[string]interface{}{"processing_time_ms": time.Since(start).Milliseconds()}
	if hit, ok := c.Get(cacheHitKey); ok {
		meta[cacheHitKey] = hit
	}
	return meta
}
