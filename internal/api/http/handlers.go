// Package http provides the Gin handlers for the tool-invocation surface.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/memstore/internal/infrastructure/logging"
	"github.com/GriffinCanCode/memstore/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/memstore/internal/service"
	"github.com/GriffinCanCode/memstore/internal/shared/id"
	"github.com/GriffinCanCode/memstore/internal/types"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	registry  *service.Registry
	logger    *logging.Logger
	metrics   *monitoring.Metrics
	startTime time.Time
}

// NewHandlers creates the handler set.
func NewHandlers(registry *service.Registry, logger *logging.Logger, metrics *monitoring.Metrics) *Handlers {
	return &Handlers{
		registry:  registry,
		logger:    logger,
		metrics:   metrics,
		startTime: time.Now(),
	}
}

// Root returns service information.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":  "memstore",
		"instance": id.Instance().String(),
		"uptime":   time.Since(h.startTime).String(),
	})
}

// Health returns service health.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"instance": id.Instance().String(),
	})
}

// ListServices returns registered service definitions.
func (h *Handlers) ListServices(c *gin.Context) {
	services := h.registry.List()
	c.JSON(http.StatusOK, gin.H{
		"services": services,
		"count":    len(services),
	})
}

// ExecuteService dispatches a tool invocation and returns its result.
//
// Domain failures (validation, conflicts, lock timeouts) come back as a
// 200 with success=false and literal error text; the calling agent reads
// the text to decide whether to re-read and retry.
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req types.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID := id.NewRequestID().String()
	appCtx := &types.Context{RequestID: &requestID, AgentID: req.AgentID}

	result, err := h.registry.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		h.logger.Warn("tool dispatch failed",
			zap.String("tool_id", req.ToolID),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Metrics serves the Prometheus exposition endpoint.
func (h *Handlers) Metrics() gin.HandlerFunc {
	handler := promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{})
	return gin.WrapH(handler)
}
