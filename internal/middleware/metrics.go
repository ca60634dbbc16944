package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codam/web-greeter/internal/service"
)

// Metrics captures request metrics. Unmatched routes are grouped under a
// single label so scanners cannot blow up label cardinality.
func Metrics(metricsSvc *service.MetricsService, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if _, ok := skip[path]; ok {
			return
		}
		if path == "" {
			path = "unmatched"
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
