package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/analytics"
	"github.com/portfolio-collage/backend/internal/collage"
	"github.com/portfolio-collage/backend/internal/session"
	"github.com/portfolio-collage/backend/internal/testutil"
)

type fakeAnalytics struct {
	top     []analytics.ImageStat
	summary *analytics.SessionStats
	err     error
	limit   int
}

func (f *fakeAnalytics) TopImages(_ context.Context, limit int) ([]analytics.ImageStat, error) {
	f.limit = limit
	return f.top, f.err
}

func (f *fakeAnalytics) SessionSummary(_ context.Context, id string) (*analytics.SessionStats, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := *f.summary
	s.SessionID = id
	return &s, nil
}

type testEnv struct {
	e         *echo.Echo
	sessions  *session.Manager
	content   *testutil.MockContentStore
	analytics *fakeAnalytics
}

func defaultTestSources() ([]collage.ImageSource, error) {
	return []collage.ImageSource{
		{Src: "/images/a.png", Alt: "A", Width: 400, Height: 300},
		{Src: "/images/b.gif", Alt: "B", Width: 300, Height: 300},
		{Src: "/videos/c.mp4", Alt: "C", Width: 1920, Height: 1080},
	}, nil
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sessions := session.NewManager(nil)
	t.Cleanup(sessions.Close)

	defaults := session.DefaultOptions()
	defaults.Simulate = false

	env := &testEnv{
		e:         echo.New(),
		sessions:  sessions,
		content:   testutil.NewMockContentStore(),
		analytics: &fakeAnalytics{summary: &analytics.SessionStats{}},
	}
	SetupMiddleware(env.e)
	RegisterRoutes(env.e, NewHandlers(&Dependencies{
		Content:      env.content,
		Sessions:     sessions,
		Analytics:    env.analytics,
		Sources:      defaultTestSources,
		Defaults:     defaults,
		AllowEditing: true,
		Version:      "test",
	}))
	return env
}

// do sends a request through the full router and returns the recorder.
func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

// mount creates a static collage with the default test images.
func (env *testEnv) mount(t *testing.T) string {
	t.Helper()
	rec := env.do(http.MethodPost, "/api/collage", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("mount failed: %d %s", rec.Code, rec.Body.String())
	}
	return decodeID(t, rec.Body.String())
}
