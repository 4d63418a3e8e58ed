package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks map[string]func() error
}

// NewHealthHandler builds a handler over named readiness checks.
func NewHealthHandler(checks map[string]func() error) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Live handles GET /healthz. The process is alive if it can answer at all.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /readyz and runs every registered dependency check.
func (h *HealthHandler) Ready(c *gin.Context) {
	status := http.StatusOK
	results := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check(); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, gin.H{"status": http.StatusText(status), "checks": results})
}
