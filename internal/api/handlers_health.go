// handlers_health.go - Health check handlers
package api

import (
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/mem"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	sessions SessionManager
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sessions SessionManager) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		sessions: sessions,
	}
}

// HandleHealth returns server health status along with host memory usage.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":     "ok",
		"version":    h.version,
		"goroutines": runtime.NumGoroutine(),
	}
	if h.sessions != nil {
		resp["collages"] = h.sessions.Count()
	}

	// Memory stats are informational; a failing probe does not fail the check.
	if vm, err := mem.VirtualMemoryWithContext(c.Request().Context()); err == nil {
		resp["memory"] = map[string]interface{}{
			"total":       vm.Total,
			"available":   vm.Available,
			"usedPercent": vm.UsedPercent,
		}
	}

	return c.JSON(http.StatusOK, resp)
}
