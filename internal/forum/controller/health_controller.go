package controller

import (
	"context"
	"net/http"
	"sort"

	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// HealthController serves liveness with optional dependency checks.
type HealthController struct {
	checks map[string]HealthCheck
}

func NewHealthController(checks map[string]HealthCheck) *HealthController {
	return &HealthController{checks: checks}
}

// Health handles GET /health. Any failing check turns the status into 503.
func (h *HealthController) Health(c *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](c.Request.Context()); err != nil {
			status.Status = "degraded"
			status.Checks[name] = err.Error()
			continue
		}
		status.Checks[name] = "ok"
	}
	if status.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	response.Success(c, status)
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
