package main

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/api"
	"github.com/portfolio-collage/backend/internal/collage"
	"github.com/portfolio-collage/backend/internal/config"
	"github.com/portfolio-collage/backend/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_CancelEndsStreamsBeforeShutdown(t *testing.T) {
	sessions := session.NewManager(nil)
	defer sessions.Close()

	opts := session.DefaultOptions()
	opts.Simulate = false
	sources := func() ([]collage.ImageSource, error) {
		return []collage.ImageSource{{Src: "/images/a.png", Width: 100, Height: 100}}, nil
	}
	imgs, _ := sources()
	sess, err := sessions.CreateSession(imgs, opts)
	require.NoError(t, err)

	e := echo.New()
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Sessions: sessions,
		Sources:  sources,
		Defaults: opts,
	}))

	base, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newServer(config.DefaultConfig(), base)
	s.Handler = e

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(ln)

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/collage/" + sess.ID + "/drags/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: drags\n", line)

	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	assert.NoError(t, s.Shutdown(shutdownCtx))

	_, err = io.ReadAll(resp.Body)
	assert.NoError(t, err)
}

func TestIsStream(t *testing.T) {
	e := echo.New()
	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   bool
	}{
		{"sse path", "/api/collage/x/drags/stream", nil, true},
		{"websocket path", "/api/collage/x/ws", nil, true},
		{"sse accept", "/api/other", map[string]string{"Accept": "text/event-stream"}, true},
		{"upgrade", "/api/other", map[string]string{"Upgrade": "WebSocket"}, true},
		{"plain", "/api/portfolio", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			c := e.NewContext(req, httptest.NewRecorder())
			assert.Equal(t, tt.want, isStream(c))
		})
	}
}
