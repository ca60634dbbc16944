package middleware

import (
	"github.com/gin-gonic/gin"
)

// CacheHeader reports whether a response was served from the schedule cache.
const CacheHeader = "X-Cache"

const cacheHitKey = "cache_hit"

// SetCacheHit records cache hit information for the current response. It
// must run before the body is written.
func SetCacheHit(c *gin.Context, hit bool) {
	c.Set(cacheHitKey, hit)
	if hit {
		c.Header(CacheHeader, "HIT")
		return
	}
	c.Header(CacheHeader, "MISS")
}

// CacheHit returns the recorded cache status and whether one was recorded.
func CacheHit(c *gin.Context) (hit bool, recorded bool) {
	if c == nil {
		return false, false
	}
	v, exists := c.Get(cacheHitKey)
	if !exists {
		return false, false
	}
	hit, ok := v.(bool)
	return hit, ok
}
