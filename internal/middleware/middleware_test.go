package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codam/web-greeter/internal/service"
)

func TestSetCacheHit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/hit", func(c *gin.Context) {
		SetCacheHit(c, true)
		hit, recorded := CacheHit(c)
		assert.True(t, hit)
		assert.True(t, recorded)
		c.Status(http.StatusNoContent)
	})
	r.GET("/miss", func(c *gin.Context) {
		SetCacheHit(c, false)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/hit", nil))
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/miss", nil))
	assert.Equal(t, "MISS", w.Header().Get(CacheHeader))

	_, recorded := CacheHit(nil)
	assert.False(t, recorded)
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics, "/metrics"))
	r.GET("/api/config/:hostname", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/api/config/f1r1s1.codam.nl", "/api/config/f1r1s2.codam.nl", "/metrics", "/wp-admin"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	expected := `
# HELP http_requests_total Total number of HTTP requests
# TYPE http_requests_total counter
http_requests_total{method="GET",path="/api/config/:hostname",status="200"} 2
http_requests_total{method="GET",path="unmatched",status="404"} 1
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "http_requests_total"))
}
