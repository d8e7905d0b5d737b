package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalytics_TopDragged(t *testing.T) {
	env := newTestEnv(t)
	env.analytics.top = []analytics.ImageStat{
		{ImageSrc: "/a.png", Drags: 5, LastDragged: time.UnixMilli(1_700_000_000_000).UTC()},
	}

	rec := env.do(http.MethodGet, "/api/analytics/top-dragged", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"imageSrc":"/a.png"`)
	assert.Contains(t, rec.Body.String(), `"drags":5`)
	assert.Equal(t, 10, env.analytics.limit)

	rec = env.do(http.MethodGet, "/api/analytics/top-dragged?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, maxTopDraggedLimit, env.analytics.limit)

	rec = env.do(http.MethodGet, "/api/analytics/top-dragged?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalytics_CollageSummary(t *testing.T) {
	env := newTestEnv(t)
	env.analytics.summary = &analytics.SessionStats{Starts: 3, Stops: 2, Actors: 2}

	rec := env.do(http.MethodGet, "/api/analytics/collage/abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sessionId":"abc"`)
	assert.Contains(t, rec.Body.String(), `"starts":3`)
}

func TestAnalytics_StoreError(t *testing.T) {
	env := newTestEnv(t)
	env.analytics.err = errors.New("duckdb unavailable")

	rec := env.do(http.MethodGet, "/api/analytics/top-dragged", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	rec = env.do(http.MethodGet, "/api/analytics/collage/abc", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAnalytics_Disabled(t *testing.T) {
	e := echo.New()
	h := NewAnalyticsHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/analytics/top-dragged", nil)
	rec := httptest.NewRecorder()
	err := h.HandleTopDragged(e.NewContext(req, rec))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
}
