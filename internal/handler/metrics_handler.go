package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonp69/DL-Homework-Garden/internal/service"
	"github.com/jonp69/DL-Homework-Garden/pkg/response"
)

// MetricsHandler serves the scrape endpoint, the probe endpoints and the
// aggregated runtime counters.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler wires the handler to the metrics service.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Prometheus proxies to the registry's scrape handler. With metrics
// disabled the service answers 503, so the scraper records an outage
// rather than an empty success.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health answers liveness and readiness probes. The daemon serves from
// memory once started, so both reduce to the process being up.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// System returns the aggregated runtime counters snapshot.
func (h *MetricsHandler) System(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
