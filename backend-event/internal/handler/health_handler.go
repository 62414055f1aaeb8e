package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wafflestudio/moiming-web/pkg/response"
)

// Pinger is a dependency the readiness probe checks
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	service string
	version string
	checks  map[string]Pinger
	timeout time.Duration
}

// NewHealthHandler creates a HealthHandler. checks maps a dependency name to its pinger.
func NewHealthHandler(service, version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{
		service: service,
		version: version,
		checks:  checks,
		timeout: 2 * time.Second,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, response.Success(gin.H{
		"status":  "ok",
		"service": h.service,
		"version": h.version,
	}))
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	ready := true
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			status[name] = err.Error()
			ready = false
			continue
		}
		status[name] = "ok"
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, response.ErrorWithDetails(response.ErrCodeServiceUnavailable, "Dependencies unavailable", status))
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"status": "ready", "checks": status}))
}
