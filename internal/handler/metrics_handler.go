package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/icap-edu/icap-portal-gateway/internal/service"
	"github.com/icap-edu/icap-portal-gateway/pkg/response"
)

// MetricsHandler exposes the aggregated metrics summary to the admin portal.
type MetricsHandler struct {
	metrics *service.MetricsService
}

// NewMetricsHandler creates a new handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Summary godoc
// @Summary Gateway metrics summary
// @Description Returns request, upstream and cache aggregates for the admin dashboard
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/metrics/summary [get]
func (h *MetricsHandler) Summary(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
