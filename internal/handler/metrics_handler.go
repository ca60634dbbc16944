package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codam/web-greeter/internal/dto"
	"github.com/codam/web-greeter/internal/service"
	"github.com/codam/web-greeter/pkg/response"
)

type readinessSource interface {
	DataSourceConfigured() bool
	KnownHosts() int
	LastCacheChange() time.Time
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics   *service.MetricsService
	readiness readinessSource
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, readiness readinessSource) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, readiness: readiness}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Readiness of the schedule backend
// @Tags Observability
// @Produce json
// @Success 200 {object} dto.HealthResponse
// @Router /health [get]
func (h *MetricsHandler) Health(c *gin.Context) {
	out := dto.HealthResponse{Status: response.StatusOK}
	if h.readiness != nil {
		out.DataSource = h.readiness.DataSourceConfigured()
		out.KnownHosts = h.readiness.KnownHosts()
		if t := h.readiness.LastCacheChange(); !t.IsZero() {
			out.LastCacheChange = t.UTC().Format(time.RFC3339)
		}
	}
	response.JSON(c, http.StatusOK, out)
}
