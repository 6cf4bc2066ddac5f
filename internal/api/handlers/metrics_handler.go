package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/desokroshan/truckflow-ai/internal/metrics"
	"github.com/desokroshan/truckflow-ai/internal/services"
)

// MetricsHandler serves the dashboard metrics and internal service metrics
type MetricsHandler struct {
	service *services.DispatchService
	system  *metrics.Metrics
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(service *services.DispatchService, system *metrics.Metrics) *MetricsHandler {
	return &MetricsHandler{
		service: service,
		system:  system,
	}
}

// GetDashboardMetrics returns the dashboard summary figures
func (h *MetricsHandler) GetDashboardMetrics(c *gin.Context) {
	m, err := h.service.Metrics(c)
	if err != nil {
		log.Error().Err(err).Msg("Failed to compute dashboard metrics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch metrics"})
		return
	}
	c.JSON(http.StatusOK, m)
}

// GetSystemMetrics returns internal counters and error rates
func (h *MetricsHandler) GetSystemMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.system.GetAllMetrics())
}

// RegisterRoutes registers the handler's routes
func (h *MetricsHandler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/metrics", h.GetDashboardMetrics)
	api.GET("/metrics/system", h.GetSystemMetrics)
}
