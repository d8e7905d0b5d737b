// handlers_analytics.go - Drag analytics handlers
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const maxTopDraggedLimit = 100

// AnalyticsHandlerImpl implements the AnalyticsHandler interface
type AnalyticsHandlerImpl struct {
	store AnalyticsStore
}

// NewAnalyticsHandler creates a new analytics handler. store may be nil
// when analytics are disabled.
func NewAnalyticsHandler(store AnalyticsStore) AnalyticsHandler {
	return &AnalyticsHandlerImpl{store: store}
}

// HandleTopDragged returns the most dragged collage images
func (h *AnalyticsHandlerImpl) HandleTopDragged(c echo.Context) error {
	if h.store == nil {
		return NewServiceUnavailableError("analytics are disabled")
	}

	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return NewValidationError("limit")
		}
		limit = min(n, maxTopDraggedLimit)
	}

	stats, err := h.store.TopImages(c.Request().Context(), limit)
	if err != nil {
		return NewInternalError("failed to query drag analytics", err)
	}
	return c.JSON(http.StatusOK, stats)
}

// HandleCollageSummary returns drag counts for one collage session
func (h *AnalyticsHandlerImpl) HandleCollageSummary(c echo.Context) error {
	if h.store == nil {
		return NewServiceUnavailableError("analytics are disabled")
	}

	stats, err := h.store.SessionSummary(c.Request().Context(), c.Param("id"))
	if err != nil {
		return NewInternalError("failed to query drag analytics", err)
	}
	return c.JSON(http.StatusOK, stats)
}
